package service

import (
	"context"
	"errors"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TaxRates resolves the tax rate in effect at a location.
type TaxRates struct {
	locations repository.LocationRepository
	fallback  decimal.Decimal
}

func NewTaxRates(locations repository.LocationRepository, fallback decimal.Decimal) *TaxRates {
	return &TaxRates{locations: locations, fallback: fallback}
}

// For returns the location's rate, or the configured default when the
// location has no record.
func (t *TaxRates) For(ctx context.Context, locationID uuid.UUID) (decimal.Decimal, error) {
	if t == nil {
		return decimal.Zero, nil
	}
	if t.locations == nil {
		return t.fallback, nil
	}
	loc, err := t.locations.FindByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, apierror.ErrNotFound) {
			log.Debug().Str("location_id", locationID.String()).Msg("no location record, using default tax rate")
			return t.fallback, nil
		}
		return decimal.Zero, err
	}
	return loc.TaxRate, nil
}
