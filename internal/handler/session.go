package handler

import (
	"fmt"
	"net/http"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/infra"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/pos"
	"github.com/floradistro/websitev2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// exportPageSize is the page size used to collect a session's orders for
// export; it matches the repository's largest page.
const exportPageSize = 200

type SessionHandler struct {
	sessions service.SessionService
	ledger   service.LedgerService
	orders   service.CheckoutService
}

func NewSessionHandler(sessions service.SessionService, ledger service.LedgerService, orders service.CheckoutService) *SessionHandler {
	return &SessionHandler{sessions: sessions, ledger: ledger, orders: orders}
}

// Open godoc
// @Summary Open a register session with an opening float
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening data"
// @Success 201 {object} dto.OpenSessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sessions.Open(c.Request.Context(), claims.VendorUUID(), claims.UserUUID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Close a session with the counted drawer cash
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.CloseSessionRequest true "Counted cash"
// @Success 200 {object} dto.CloseSessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/close [post]
func (h *SessionHandler) Close(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sessions.Close(c.Request.Context(), claims.VendorUUID(), id, claims.UserUUID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordMovement godoc
// @Summary Record a drawer operation (NO_SALE, PAID_IN, PAID_OUT, REFUND)
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.CashMovementRequest true "Movement"
// @Success 201 {object} dto.CashMovementResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/movements [post]
func (h *SessionHandler) RecordMovement(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if managerOnlyMovement(req.Type) && claims.Role != model.RoleManager && claims.Role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, apierror.New(req.Type+" requires a manager"))
		return
	}
	in := pos.MovementInput{
		Type:   pos.MovementType(req.Type),
		Amount: req.Amount,
		Reason: req.Reason,
		Notes:  req.Notes,
	}
	resp, err := h.ledger.RecordMovement(c.Request.Context(), claims.VendorUUID(), id, claims.UserUUID(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// managerOnlyMovement reports whether a drawer operation takes cash out.
func managerOnlyMovement(t string) bool {
	return t == string(pos.MovementPaidOut) || t == string(pos.MovementRefund)
}

func (h *SessionHandler) Movements(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.sessions.Find(c.Request.Context(), claims.VendorUUID(), id); err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.ledger.Movements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Report godoc
// @Summary Session report with aggregates, balance and movements
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionReportResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/{id} [get]
func (h *SessionHandler) Report(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.sessions.Report(c.Request.Context(), claims.VendorUUID(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Active returns the OPEN session of a register, 404 when there is none.
func (h *SessionHandler) Active(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	registerID, ok := parseUUIDParam(c, "register_id")
	if !ok {
		return
	}
	resp, err := h.sessions.Active(c.Request.Context(), claims.VendorUUID(), registerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of sessions.
func (h *SessionHandler) History(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var filter dto.SessionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(err.Error(), apierror.KindValidation))
		return
	}
	resp, err := h.sessions.History(c.Request.Context(), claims.VendorUUID(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export streams the session report and its orders as an xlsx workbook.
func (h *SessionHandler) Export(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	report, err := h.sessions.Report(ctx, claims.VendorUUID(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	var orders []dto.OrderResponse
	for page := 1; ; page++ {
		batch, err := h.orders.ListOrders(ctx, claims.VendorUUID(), dto.OrderFilter{SessionID: id.String(), Page: page, Limit: exportPageSize})
		if err != nil {
			respondError(c, err)
			return
		}
		orders = append(orders, batch.Data...)
		if len(batch.Data) < exportPageSize || int64(len(orders)) >= batch.Total {
			break
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="session_%s.xlsx"`, report.SessionNumber))
	c.Status(http.StatusOK)
	if err := infra.WriteSessionWorkbook(c.Writer, report, orders); err != nil {
		_ = c.Error(err)
	}
}
