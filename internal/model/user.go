package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User is a staff account. LocationID pins a cashier to one store; nil means
// any location of the vendor.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VendorID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	LocationID   *uuid.UUID `gorm:"type:uuid"`
	Username     string     `gorm:"uniqueIndex;not null"`
	Name         string     `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(10);not null"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
