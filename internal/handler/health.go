package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/infra"
	"github.com/floradistro/websitev2-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// terminalCB may be nil when card payments use the stub authorizer.
func Health(db *gorm.DB, rdb *redis.Client, terminalCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if terminalCB != nil {
			body["terminal"] = terminalCB.Snapshot()
		}
		if redisStatus == "connected" {
			dlq := gin.H{}
			for _, q := range []string{worker.QueueReceipt, worker.QueueEmail, worker.QueueInventory} {
				if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
					dlq[q] = n
				}
			}
			body["dlq"] = dlq
		}
		c.JSON(status, body)
	}
}
