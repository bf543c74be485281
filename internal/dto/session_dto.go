package dto

import (
	"time"

	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// OpenSessionRequest opens a register at a location. The vendor always
// comes from the caller's token.
type OpenSessionRequest struct {
	RegisterID  uuid.UUID   `json:"register_id"  validate:"required"`
	LocationID  uuid.UUID   `json:"location_id"  validate:"required"`
	OpeningCash money.Cents `json:"opening_cash" validate:"min=0"`
}

type CloseSessionRequest struct {
	ClosingCash money.Cents `json:"closing_cash" validate:"min=0"`
	Notes       string      `json:"notes"        validate:"max=500"`
}

// CashMovementRequest covers explicit drawer operations. OPENING and SALE are
// only written by the session and checkout flows.
type CashMovementRequest struct {
	Type   string      `json:"type"   validate:"required,oneof=NO_SALE PAID_IN PAID_OUT REFUND"`
	Amount money.Cents `json:"amount" validate:"min=0"`
	Reason string      `json:"reason" validate:"max=200"`
	Notes  string      `json:"notes"  validate:"max=500"`
}

type SessionFilter struct {
	VendorID   uuid.UUID `form:"-"` // set from the caller's claims
	RegisterID string    `form:"register_id"`
	LocationID string    `form:"location_id"`
	Status     string    `form:"status"` // OPEN | CLOSED | all
	Page       int       `form:"page"`
	Limit      int       `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OpenSessionResponse struct {
	SessionID     uuid.UUID `json:"session_id"`
	SessionNumber string    `json:"session_number"`
	OpenedAt      time.Time `json:"opened_at"`
}

type CloseSessionResponse struct {
	SessionID     uuid.UUID   `json:"session_id"`
	ClosingCash   money.Cents `json:"closing_cash"`
	ExpectedCash  money.Cents `json:"expected_cash"`
	Variance      money.Cents `json:"variance"`
	VariancePct   *string     `json:"variance_pct"`
	VarianceClass string      `json:"variance_class"`
	ClosedAt      time.Time   `json:"closed_at"`
}

type CashMovementResponse struct {
	MovementID     uuid.UUID   `json:"movement_id"`
	CurrentBalance money.Cents `json:"current_balance"`
}

type MovementResponse struct {
	ID          uuid.UUID   `json:"id"`
	Type        string      `json:"type"`
	Amount      money.Cents `json:"amount"`
	Reason      string      `json:"reason,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
	ReferenceID *uuid.UUID  `json:"reference_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type SessionReportResponse struct {
	SessionID         uuid.UUID          `json:"session_id"`
	SessionNumber     string             `json:"session_number"`
	RegisterID        uuid.UUID          `json:"register_id"`
	LocationID        uuid.UUID          `json:"location_id"`
	VendorID          uuid.UUID          `json:"vendor_id"`
	Status            string             `json:"status"`
	OpeningCash       money.Cents        `json:"opening_cash"`
	TotalSales        money.Cents        `json:"total_sales"`
	TotalTransactions int                `json:"total_transactions"`
	TotalCash         money.Cents        `json:"total_cash"`
	CurrentBalance    money.Cents        `json:"current_balance"`
	ClosingCash       *money.Cents       `json:"closing_cash,omitempty"`
	ExpectedCash      *money.Cents       `json:"expected_cash,omitempty"`
	Variance          *money.Cents       `json:"variance,omitempty"`
	VariancePct       *string            `json:"variance_pct,omitempty"`
	VarianceClass     *string            `json:"variance_class,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
	OpenedAt          time.Time          `json:"opened_at"`
	ClosedAt          *time.Time         `json:"closed_at,omitempty"`
	Movements         []MovementResponse `json:"movements,omitempty"`
}

type SessionListResponse struct {
	Data  []SessionReportResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
