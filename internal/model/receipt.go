package model

import (
	"time"

	"github.com/google/uuid"
)

// Receipt statuses.
const (
	ReceiptPending   = "pending"
	ReceiptGenerated = "generated"
	ReceiptEmailed   = "emailed"
	ReceiptError     = "error"
)

// Receipt is the printable record of an order, rendered asynchronously.
type Receipt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Status    string    `gorm:"type:varchar(10);not null;default:'pending'"`
	PDFPath   *string   `gorm:"column:pdf_path"`
	Email     *string
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
