package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// runTx runs fn inside a database transaction. With a nil db (unit tests
// over in-memory repositories) fn runs directly with a nil tx.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// formatNumber renders a sequence value as a human-readable number, e.g. S-000042.
func formatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
