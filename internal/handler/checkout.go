package handler

import (
	"net/http"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyHeader carries the client's checkout key; it takes precedence
// over the body field.
const IdempotencyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	svc      service.CheckoutService
	receipts service.ReceiptService
}

func NewCheckoutHandler(svc service.CheckoutService, receipts service.ReceiptService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, receipts: receipts}
}

// Checkout godoc
// @Summary Complete a sale from explicit lines or the session cart
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client retry key"
// @Param body body dto.CheckoutRequest true "Checkout"
// @Success 201 {object} dto.CheckoutResponse
// @Success 200 {object} dto.CheckoutResponse "Duplicate of an earlier checkout"
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if key := c.GetHeader(IdempotencyHeader); key != "" {
		if len(key) > 64 {
			c.JSON(http.StatusBadRequest, apierror.WithCode("Idempotency-Key must be at most 64 characters", apierror.KindValidation))
			return
		}
		req.IdempotencyKey = key
	}

	resp, err := h.svc.Checkout(c.Request.Context(), claims.VendorUUID(), claims.UserUUID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// GetOrder godoc
// @Summary Get an order with its lines, tenders and inventory status
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/orders/{id} [get]
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetOrder(c.Request.Context(), claims.VendorUUID(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var filter dto.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(err.Error(), apierror.KindValidation))
		return
	}
	resp, err := h.svc.ListOrders(c.Request.Context(), claims.VendorUUID(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) ReceiptStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !h.ownsOrder(c, id) {
		return
	}
	resp, err := h.receipts.Status(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReceiptPDF downloads the rendered receipt; 404 until the worker has run.
func (h *CheckoutHandler) ReceiptPDF(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !h.ownsOrder(c, id) {
		return
	}
	path, err := h.receipts.PDFPath(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, "receipt_"+id.String()+".pdf")
}

// ownsOrder aborts with 404 unless the order belongs to the caller's vendor.
func (h *CheckoutHandler) ownsOrder(c *gin.Context, id uuid.UUID) bool {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return false
	}
	if _, err := h.svc.GetOrder(c.Request.Context(), claims.VendorUUID(), id); err != nil {
		respondError(c, err)
		return false
	}
	return true
}
