package handler

import (
	"errors"
	"net/http"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// dlqQueues maps the public queue name to its Redis list.
var dlqQueues = map[string]string{
	"receipt":   worker.QueueReceipt,
	"email":     worker.QueueEmail,
	"inventory": worker.QueueInventory,
}

// DLQHandler lets admins inspect and replay dead-lettered jobs.
type DLQHandler struct {
	rdb *redis.Client
}

func NewDLQHandler(rdb *redis.Client) *DLQHandler {
	return &DLQHandler{rdb: rdb}
}

func (h *DLQHandler) queue(c *gin.Context) (string, bool) {
	q, ok := dlqQueues[c.Param("queue")]
	if !ok {
		c.JSON(http.StatusNotFound, apierror.WithCode("unknown queue", apierror.KindNotFound))
		return "", false
	}
	return q, true
}

// List godoc
// @Summary Peek at dead-lettered jobs, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param queue path string true "receipt, email or inventory"
// @Param limit query int false "max entries (default 20, max 100)"
// @Router /v1/admin/dlq/{queue} [get]
func (h *DLQHandler) List(c *gin.Context) {
	q, ok := h.queue(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	ctx := c.Request.Context()
	total, err := worker.DLQLength(ctx, h.rdb, q)
	if err != nil {
		respondError(c, apierror.Persistence("read dead letter queue", err))
		return
	}
	entries, err := worker.PeekDLQ(ctx, h.rdb, q, int64(limit))
	if err != nil {
		respondError(c, apierror.Persistence("read dead letter queue", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": c.Param("queue"), "total": total, "entries": entries})
}

// Requeue godoc
// @Summary Replay the oldest dead-lettered job onto its queue
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param queue path string true "receipt or email"
// @Router /v1/admin/dlq/{queue}/requeue [post]
func (h *DLQHandler) Requeue(c *gin.Context) {
	q, ok := h.queue(c)
	if !ok {
		return
	}
	if q == worker.QueueInventory {
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode("inventory retries are replayed by the retry sweep", apierror.KindValidation))
		return
	}
	entry, err := worker.RequeueDLQ(c.Request.Context(), h.rdb, q)
	if errors.Is(err, worker.ErrDLQEmpty) {
		c.JSON(http.StatusNotFound, apierror.WithCode(err.Error(), apierror.KindNotFound))
		return
	}
	if err != nil {
		respondError(c, apierror.Persistence("requeue job", err))
		return
	}
	c.JSON(http.StatusOK, entry)
}
