package model

import (
	"time"

	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a vendor catalog item. Stock is decimal because flower and
// concentrates are sold by weight.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VendorID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_products_vendor_sku"`
	SKU           string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_vendor_sku"`
	Name          string          `gorm:"index;not null"`
	Category      string          `gorm:"not null;default:''"`
	UnitPrice     money.Cents     `gorm:"type:bigint;not null"`
	Unit          string          `gorm:"type:varchar(10);not null;default:'unit'"` // unit | g | oz
	SoldByWeight  bool            `gorm:"not null;default:false"`
	TrackStock    bool            `gorm:"not null;default:true"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	Active        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Inventory movement types.
const (
	InventorySale       = "sale"
	InventoryAdjustment = "adjustment"
	InventoryRestock    = "restock"
)

// InventoryMovement records each stock change on a product.
type InventoryMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type        string          `gorm:"type:varchar(16);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null"` // signed: negative = out
	StockBefore decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Reason      string
	ReferenceID *uuid.UUID `gorm:"type:uuid;index"` // order id for sales
	CreatedAt   time.Time
}

// Location is a store. Its tax rate prices every order rung up there.
type Location struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VendorID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"not null"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(7,5);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
