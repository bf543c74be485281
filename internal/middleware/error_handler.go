package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// quietPaths are polled by load balancers and logged at debug only.
var quietPaths = map[string]bool{"/health": true}

// ErrorHandler answers errors a handler attached with c.Error but did not
// respond to. Classified errors keep their status; anything else is a
// persistence failure and the client sees only the generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		kind := apierror.KindOf(err)
		log.Error().
			Err(err).
			Str("request_id", c.GetString(RequestIDKey)).
			Str("route", c.FullPath()).
			Str("kind", string(kind)).
			Msg("request error")

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(apierror.HTTPStatus(err), apierror.WithCode(apierror.Message(err), kind))
	}
}

// Recovery turns a panic into a 500 and logs the stack server-side.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error().
				Str("request_id", c.GetString(RequestIDKey)).
				Str("route", c.FullPath()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apierror.WithCode("internal server error", apierror.KindPersistence))
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}

// Logger writes one access line per request. 5xx is logged at warn, and
// the caller's identity is attached once JWTAuth has run.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Warn()
		case quietPaths[c.Request.URL.Path]:
			ev = log.Debug()
		default:
			ev = log.Info()
		}
		if claims := GetClaims(c); claims != nil {
			ev = ev.Str("user_id", claims.UserID).Str("role", claims.Role)
		}
		ev.
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
