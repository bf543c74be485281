package pos

import (
	"context"
	"strings"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
)

// Method is how an order, or one tender of a split, was paid.
type Method string

const (
	MethodCash  Method = "CASH"
	MethodCard  Method = "CARD"
	MethodSplit Method = "SPLIT"
)

// SplitTolerance is how far short of the total a split may be and still
// count as complete.
const SplitTolerance money.Cents = 1

// PaymentResult is a resolved payment. The concrete variants are
// CashPayment, CardPayment and SplitPayment.
type PaymentResult interface {
	Method() Method
	// CashPortion is what the payment adds to the drawer.
	CashPortion() money.Cents
	// IsComplete reports whether the payment covers total.
	IsComplete(total money.Cents) bool
	isPaymentResult()
}

type CashPayment struct {
	Total    money.Cents
	Tendered money.Cents
	Change   money.Cents
}

func (CashPayment) Method() Method             { return MethodCash }
func (p CashPayment) CashPortion() money.Cents { return p.Tendered - p.Change }
func (CashPayment) isPaymentResult()           {}

func (p CashPayment) IsComplete(total money.Cents) bool {
	return p.Total == total && p.Tendered >= total && p.Change == p.Tendered-total
}

type CardPayment struct {
	Total            money.Cents
	AuthorizationRef string
}

func (CardPayment) Method() Method           { return MethodCard }
func (CardPayment) CashPortion() money.Cents { return 0 }
func (CardPayment) isPaymentResult()         {}

func (p CardPayment) IsComplete(total money.Cents) bool {
	return p.Total == total && p.AuthorizationRef != ""
}

// Tender is one payment inside a split.
type Tender struct {
	Method    Method
	Amount    money.Cents
	Reference string
}

type SplitPayment struct {
	Total   money.Cents
	Tenders []Tender
}

func (SplitPayment) Method() Method   { return MethodSplit }
func (SplitPayment) isPaymentResult() {}

func (p SplitPayment) CashPortion() money.Cents {
	var cash money.Cents
	for _, t := range p.Tenders {
		if t.Method == MethodCash {
			cash += t.Amount
		}
	}
	return cash
}

func (p SplitPayment) IsComplete(total money.Cents) bool {
	if p.Total != total || len(p.Tenders) == 0 {
		return false
	}
	var sum money.Cents
	for _, t := range p.Tenders {
		if t.Amount <= 0 {
			return false
		}
		if t.Method == MethodCard && t.Reference == "" {
			return false
		}
		sum += t.Amount
	}
	return total-sum <= SplitTolerance
}

// ── Cash ─────────────────────────────────────────────────────────────────────

// ResolveCash checks tendered against total and computes change.
func ResolveCash(total, tendered money.Cents) (CashPayment, error) {
	if total < 0 {
		return CashPayment{}, apierror.Validation("total cannot be negative")
	}
	if tendered < total {
		return CashPayment{}, apierror.InsufficientPayment("tendered %s is less than total %s", tendered, total)
	}
	return CashPayment{Total: total, Tendered: tendered, Change: tendered - total}, nil
}

// ── Card ─────────────────────────────────────────────────────────────────────

// CardAuthorizer obtains an authorization reference for a card charge.
type CardAuthorizer interface {
	Authorize(ctx context.Context, amount money.Cents) (string, error)
}

// StubAuthorizer approves every charge with a generated reference.
type StubAuthorizer struct{}

func (StubAuthorizer) Authorize(_ context.Context, _ money.Cents) (string, error) {
	return NewAuthorizationRef(), nil
}

// NewAuthorizationRef returns a reference such as AUTH-1A2B3C4D.
func NewAuthorizationRef() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "AUTH-" + strings.ToUpper(id[:8])
}

// ResolveCard authorizes total through auth.
func ResolveCard(ctx context.Context, total money.Cents, auth CardAuthorizer) (CardPayment, error) {
	if total <= 0 {
		return CardPayment{}, apierror.Validation("card charge must be greater than zero")
	}
	ref, err := auth.Authorize(ctx, total)
	if err != nil {
		return CardPayment{}, err
	}
	if ref == "" {
		return CardPayment{}, apierror.IncompletePayment("card terminal returned no authorization reference")
	}
	return CardPayment{Total: total, AuthorizationRef: ref}, nil
}

// ── Split ────────────────────────────────────────────────────────────────────

// SplitBuilder accumulates tenders toward a total. A tender larger than the
// remaining balance is clamped to it.
type SplitBuilder struct {
	total   money.Cents
	tenders []Tender
}

func NewSplit(total money.Cents) *SplitBuilder {
	return &SplitBuilder{total: total}
}

func (s *SplitBuilder) Total() money.Cents { return s.total }

func (s *SplitBuilder) Paid() money.Cents {
	var sum money.Cents
	for _, t := range s.tenders {
		sum += t.Amount
	}
	return sum
}

// Remaining is total minus tenders so far, never below zero.
func (s *SplitBuilder) Remaining() money.Cents {
	r := s.total - s.Paid()
	if r < 0 {
		return 0
	}
	return r
}

// Add appends t and returns the tender as recorded, after clamping.
func (s *SplitBuilder) Add(t Tender) (Tender, error) {
	if t.Method != MethodCash && t.Method != MethodCard {
		return Tender{}, apierror.Validation("tender method must be CASH or CARD")
	}
	if t.Amount <= 0 {
		return Tender{}, apierror.Validation("tender amount must be greater than zero")
	}
	remaining := s.Remaining()
	if remaining == 0 {
		return Tender{}, apierror.Validation("total is already covered")
	}
	t.Amount = money.Min(t.Amount, remaining)
	s.tenders = append(s.tenders, t)
	return t, nil
}

// Remove drops the tender at position i.
func (s *SplitBuilder) Remove(i int) error {
	if i < 0 || i >= len(s.tenders) {
		return apierror.Validation("no tender at position %d", i)
	}
	s.tenders = append(s.tenders[:i], s.tenders[i+1:]...)
	return nil
}

func (s *SplitBuilder) Tenders() []Tender {
	out := make([]Tender, len(s.tenders))
	copy(out, s.tenders)
	return out
}

func (s *SplitBuilder) IsComplete() bool {
	return len(s.tenders) > 0 && s.Remaining() <= SplitTolerance
}

// Complete freezes the split. It fails while more than one cent is owed.
func (s *SplitBuilder) Complete() (SplitPayment, error) {
	if !s.IsComplete() {
		return SplitPayment{}, apierror.IncompletePayment("split payment is %s short", s.Remaining())
	}
	return SplitPayment{Total: s.total, Tenders: s.Tenders()}, nil
}

// ResolveSplit adds tenders in order and completes the split.
func ResolveSplit(total money.Cents, tenders []Tender) (SplitPayment, error) {
	if total <= 0 {
		return SplitPayment{}, apierror.Validation("split total must be greater than zero")
	}
	b := NewSplit(total)
	for _, t := range tenders {
		if _, err := b.Add(t); err != nil {
			return SplitPayment{}, err
		}
	}
	return b.Complete()
}
