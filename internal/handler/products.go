package handler

import (
	"net/http"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct {
	products  service.ProductService
	inventory service.InventoryService
}

func NewProductsHandler(products service.ProductService, inventory service.InventoryService) *ProductsHandler {
	return &ProductsHandler{products: products, inventory: inventory}
}

// Create godoc
// @Summary Create a catalog product for the caller's vendor
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateProductRequest true "Product"
// @Success 201 {object} dto.ProductResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.products.Create(c.Request.Context(), claims.VendorUUID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductsHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(err.Error(), apierror.KindValidation))
		return
	}
	resp, err := h.products.List(c.Request.Context(), claims.VendorUUID(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Get(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.products.Get(c.Request.Context(), claims.VendorUUID(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Update(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.products.Update(c.Request.Context(), claims.VendorUUID(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdjustStock godoc
// @Summary Restock or write off a product's stock
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param body body dto.AdjustStockRequest true "Signed delta"
// @Success 200 {object} dto.InventoryMovementResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/products/{id}/stock [patch]
func (h *ProductsHandler) AdjustStock(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	// Vendor scoping: Get fails with 404 for another vendor's product.
	if _, err := h.products.Get(c.Request.Context(), claims.VendorUUID(), id); err != nil {
		respondError(c, err)
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.inventory.Adjust(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Movements(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.products.Get(c.Request.Context(), claims.VendorUUID(), id); err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.inventory.Movements(c.Request.Context(), id, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
