package repository

import (
	"errors"

	"github.com/floradistro/websitev2-sub001/internal/apierror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation, optionally on a specific constraint or index name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// translate maps gorm/pgx errors onto the apierror taxonomy. what names the
// entity for not-found messages; op names the operation for persistence ones.
func translate(err error, what, op string) error {
	if err == nil {
		return nil
	}
	var domain *apierror.Error
	if errors.As(err, &domain) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound("%s not found", what)
	}
	if IsUniqueViolation(err, "") {
		return apierror.Conflict("%s already exists", what)
	}
	return apierror.Persistence(op, err)
}

// pick returns tx when a transaction is in flight, otherwise the repository's
// own handle.
func pick(base, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return base
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return page, limit
}
