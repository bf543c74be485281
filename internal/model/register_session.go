package model

import (
	"time"

	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session statuses. A register has at most one OPEN session, enforced by the
// partial unique index uniq_register_sessions_open.
const (
	SessionOpen   = "OPEN"
	SessionClosed = "CLOSED"
)

// RegisterSession is one cashier shift on a register, from opening float to
// counted close.
type RegisterSession struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionNumber string      `gorm:"type:varchar(32);uniqueIndex;not null"`
	RegisterID    uuid.UUID   `gorm:"type:uuid;not null;index"`
	LocationID    uuid.UUID   `gorm:"type:uuid;not null;index"`
	VendorID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	OpenedBy      uuid.UUID   `gorm:"type:uuid;not null"`
	Status        string      `gorm:"type:varchar(10);not null;default:'OPEN'"`
	OpeningCash   money.Cents `gorm:"type:bigint;not null"`

	// Running aggregates, only ever incremented while OPEN.
	TotalSales        money.Cents `gorm:"type:bigint;not null;default:0"`
	TotalTransactions int         `gorm:"not null;default:0"`
	TotalCash         money.Cents `gorm:"type:bigint;not null;default:0"`

	// Set once at close.
	ClosingCash   *money.Cents     `gorm:"type:bigint"`
	ExpectedCash  *money.Cents     `gorm:"type:bigint"`
	Variance      *money.Cents     `gorm:"type:bigint"`
	VariancePct   *decimal.Decimal `gorm:"type:decimal(7,2)"`
	VarianceClass *string          `gorm:"type:varchar(10)"`
	ClosedBy      *uuid.UUID       `gorm:"type:uuid"`
	Notes         *string
	OpenedAt      time.Time `gorm:"not null"`
	ClosedAt      *time.Time

	Movements []CashMovement `gorm:"foreignKey:SessionID"`
}

func (s *RegisterSession) IsOpen() bool { return s.Status == SessionOpen }

// CashMovement is an append-only drawer ledger entry. Amount is signed:
// PAID_OUT and REFUND are negative, NO_SALE is zero.
type CashMovement struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type        pos.MovementType `gorm:"type:varchar(16);not null"`
	Amount      money.Cents      `gorm:"type:bigint;not null"`
	Reason      string           `gorm:"not null;default:''"`
	Notes       *string
	ReferenceID *uuid.UUID `gorm:"type:uuid;index"` // order id for SALE
	CreatedBy   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}
