package pos

import (
	"strings"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/shopspring/decimal"
)

// MovementType is the kind of a cash drawer movement.
type MovementType string

const (
	MovementOpening MovementType = "OPENING"
	MovementSale    MovementType = "SALE"
	MovementRefund  MovementType = "REFUND"
	MovementNoSale  MovementType = "NO_SALE"
	MovementPaidIn  MovementType = "PAID_IN"
	MovementPaidOut MovementType = "PAID_OUT"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementOpening, MovementSale, MovementRefund, MovementNoSale, MovementPaidIn, MovementPaidOut:
		return true
	}
	return false
}

// AffectsCashTotal reports whether the movement changes a session's
// total_cash aggregate.
func (t MovementType) AffectsCashTotal() bool {
	return t == MovementSale || t == MovementRefund
}

// MovementInput is a requested movement before sign normalization. Amount is
// always given as a magnitude.
type MovementInput struct {
	Type   MovementType
	Amount money.Cents
	Reason string
	Notes  string
}

// NormalizeMovement validates in and returns it with the stored sign applied:
// PAID_OUT and REFUND become negative, NO_SALE becomes zero.
func NormalizeMovement(in MovementInput) (MovementInput, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Notes = strings.TrimSpace(in.Notes)

	switch in.Type {
	case MovementNoSale:
		in.Amount = 0
	case MovementOpening:
		if in.Amount < 0 {
			return MovementInput{}, apierror.Validation("opening cash cannot be negative")
		}
	case MovementPaidIn, MovementPaidOut:
		if in.Amount <= 0 {
			return MovementInput{}, apierror.Validation("%s amount must be greater than zero", in.Type)
		}
		if in.Reason == "" {
			return MovementInput{}, apierror.Validation("%s requires a reason", in.Type)
		}
		if in.Type == MovementPaidOut {
			in.Amount = -in.Amount
		}
	case MovementSale, MovementRefund:
		if in.Amount <= 0 {
			return MovementInput{}, apierror.Validation("%s amount must be greater than zero", in.Type)
		}
		if in.Type == MovementRefund {
			in.Amount = -in.Amount
		}
	default:
		return MovementInput{}, apierror.Validation("unknown movement type %q", in.Type)
	}
	return in, nil
}

// Balance is the expected drawer cash: the sum of every stored movement
// amount, OPENING included.
func Balance(amounts []money.Cents) money.Cents {
	return money.Sum(amounts...)
}

// Variance is counted cash minus expected cash. Positive means over.
func Variance(closing, expected money.Cents) money.Cents {
	return closing - expected
}

// VarianceClass grades a closing variance relative to the expected balance.
type VarianceClass string

const (
	VarianceNormal   VarianceClass = "normal"
	VarianceWarning  VarianceClass = "warning"
	VarianceCritical VarianceClass = "critical"
)

var (
	warningThreshold  = decimal.NewFromInt(1)
	criticalThreshold = decimal.NewFromInt(5)
)

// ClassifyVariance returns the class and the variance as a percentage of the
// expected balance (nil when expected is zero).
func ClassifyVariance(variance, expected money.Cents) (VarianceClass, *decimal.Decimal) {
	if variance == 0 {
		zero := decimal.Zero
		return VarianceNormal, &zero
	}
	if expected == 0 {
		return VarianceCritical, nil
	}
	pct := variance.Decimal().Div(expected.Decimal()).Mul(decimal.NewFromInt(100)).Round(2)
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(warningThreshold):
		return VarianceNormal, &pct
	case abs.LessThanOrEqual(criticalThreshold):
		return VarianceWarning, &pct
	default:
		return VarianceCritical, &pct
	}
}
