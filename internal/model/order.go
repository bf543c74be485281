package model

import (
	"time"

	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the frozen result of a completed checkout. Rows are inserted once
// and never updated; side-effect bookkeeping lives in InventorySync.
type Order struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderNumber    string     `gorm:"type:varchar(32);uniqueIndex;not null"`
	SessionID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	RegisterID     uuid.UUID  `gorm:"type:uuid;not null"`
	LocationID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	VendorID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	CashierID      uuid.UUID  `gorm:"type:uuid;not null"`
	IdempotencyKey *string    `gorm:"type:varchar(64);uniqueIndex"`

	Subtotal      money.Cents     `gorm:"type:bigint;not null"`
	DiscountTotal money.Cents     `gorm:"type:bigint;not null;default:0"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(7,5);not null"`
	TaxAmount     money.Cents     `gorm:"type:bigint;not null"`
	Total         money.Cents     `gorm:"type:bigint;not null"`

	PaymentMethod    pos.Method   `gorm:"type:varchar(10);not null"`
	CashTendered     *money.Cents `gorm:"type:bigint"`
	ChangeGiven      *money.Cents `gorm:"type:bigint"`
	AuthorizationRef *string      `gorm:"type:varchar(64)"`
	CustomerEmail    *string
	CreatedAt        time.Time

	Lines   []OrderLine   `gorm:"foreignKey:OrderID"`
	Tenders []OrderTender `gorm:"foreignKey:OrderID"`
}

// CashPortion is the amount the order put in the drawer.
func (o *Order) CashPortion() money.Cents {
	switch o.PaymentMethod {
	case pos.MethodCash:
		return o.Total
	case pos.MethodSplit:
		var cash money.Cents
		for _, t := range o.Tenders {
			if t.Method == pos.MethodCash {
				cash += t.Amount
			}
		}
		return cash
	default:
		return 0
	}
}

// OrderLine is a frozen copy of a cart line.
type OrderLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position       int             `gorm:"not null"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName    string          `gorm:"not null"`
	UnitPrice      money.Cents     `gorm:"type:bigint;not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	LineTotal      money.Cents     `gorm:"type:bigint;not null"`
	OriginalPrice  *money.Cents    `gorm:"type:bigint"`
	Discount       money.Cents     `gorm:"type:bigint;not null;default:0"`
	PromotionLabel *string
}

// OrderTender is one tender of a split payment, in the order it was added.
type OrderTender struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID   uuid.UUID   `gorm:"type:uuid;not null;index"`
	Position  int         `gorm:"not null"`
	Method    pos.Method  `gorm:"type:varchar(10);not null"`
	Amount    money.Cents `gorm:"type:bigint;not null"`
	Reference *string     `gorm:"type:varchar(64)"`
}

// Inventory sync statuses.
const (
	InventoryApplied = "applied"
	InventoryFailed  = "failed"
	InventoryDead    = "dead"
)

// InventorySync tracks the stock decrement for an order. A failed decrement
// does not undo the order; the row records it for reporting and for the
// optional retry sweep.
type InventorySync struct {
	OrderID     uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Status      string     `gorm:"type:varchar(10);not null"`
	Attempts    int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"index"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
