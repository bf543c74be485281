package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode("invalid JSON: "+err.Error(), apierror.KindValidation))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.WithCode(err.Error(), apierror.KindValidation))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps a service error to its HTTP status. Persistence errors
// are logged with the request id and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := apierror.HTTPStatus(err)
	kind := apierror.KindOf(err)
	if kind == apierror.KindPersistence {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("persistence failure")
	}
	c.JSON(status, apierror.WithCode(apierror.Message(err), kind))
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode("invalid "+name, apierror.KindValidation))
		return uuid.Nil, false
	}
	return id, true
}

// claimsOrAbort returns the caller's claims or writes a 401.
func claimsOrAbort(c *gin.Context) (*middleware.JWTClaims, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.UserUUID() == uuid.Nil {
		c.JSON(http.StatusUnauthorized, apierror.WithCode("authentication required", apierror.KindUnauthorized))
		return nil, false
	}
	return claims, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
