package handler

import (
	"net/http"

	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// CartHandler exposes the server-side cart kept per open session.
type CartHandler struct{ svc service.CartService }

func NewCartHandler(svc service.CartService) *CartHandler { return &CartHandler{svc: svc} }

func (h *CartHandler) Get(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), claims.VendorUUID(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddItem godoc
// @Summary Add a product to the session cart, merging with an existing line
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.AddCartItemRequest true "Item"
// @Success 200 {object} dto.CartResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AddCartItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddItem(c.Request.Context(), claims.VendorUUID(), sessionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	productID, ok := parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateQuantity(c.Request.Context(), claims.VendorUUID(), sessionID, productID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	productID, ok := parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	resp, err := h.svc.RemoveItem(c.Request.Context(), claims.VendorUUID(), sessionID, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) Clear(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Clear(c.Request.Context(), claims.VendorUUID(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
