package service_test

import (
	"context"
	"testing"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"
	"github.com/floradistro/websitev2-sub001/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionFixture wires the session and ledger services over one vendor with
// a single store.
type sessionFixture struct {
	svc      service.SessionService
	ledger   service.LedgerService
	repo     *stubSessionRepo
	carts    *service.CartStore
	vendorID uuid.UUID
	location uuid.UUID
}

func buildSessionSvc() *sessionFixture {
	f := &sessionFixture{
		repo:     newStubSessionRepo(),
		carts:    service.NewCartStore(),
		vendorID: uuid.New(),
		location: uuid.New(),
	}
	locations := &stubLocationRepo{locations: map[uuid.UUID]*model.Location{
		f.location: {ID: f.location, VendorID: f.vendorID, Name: "Main St"},
	}}
	f.ledger = service.NewLedgerService(f.repo)
	f.svc = service.NewSessionService(f.repo, f.ledger, locations, f.carts)
	return f
}

func openSession(t *testing.T, f *sessionFixture, opening string) (*dto.OpenSessionResponse, dto.OpenSessionRequest) {
	t.Helper()
	req := dto.OpenSessionRequest{
		RegisterID:  uuid.New(),
		LocationID:  f.location,
		OpeningCash: money.MustParse(opening),
	}
	resp, err := f.svc.Open(context.Background(), f.vendorID, uuid.New(), req)
	require.NoError(t, err)
	return resp, req
}

func TestOpen_WritesOpeningMovement(t *testing.T) {
	f := buildSessionSvc()
	resp, _ := openSession(t, f, "200.00")

	assert.Equal(t, "S-000001", resp.SessionNumber)
	movs, err := f.ledger.Movements(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, string(pos.MovementOpening), movs[0].Type)
	assert.Equal(t, money.MustParse("200.00"), movs[0].Amount)

	balance, err := f.ledger.CurrentBalance(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("200.00"), balance)

	stored := f.repo.session(resp.SessionID)
	assert.Equal(t, model.SessionOpen, stored.Status)
	assert.Equal(t, f.vendorID, stored.VendorID)
}

func TestOpen_SecondOpenOnRegisterConflicts(t *testing.T) {
	f := buildSessionSvc()
	_, req := openSession(t, f, "100.00")

	_, err := f.svc.Open(context.Background(), f.vendorID, uuid.New(), req)
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestOpen_NegativeOpeningCashRejected(t *testing.T) {
	f := buildSessionSvc()
	_, err := f.svc.Open(context.Background(), f.vendorID, uuid.New(), dto.OpenSessionRequest{
		RegisterID:  uuid.New(),
		LocationID:  f.location,
		OpeningCash: -1,
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestOpen_RejectsLocationOfAnotherVendor(t *testing.T) {
	f := buildSessionSvc()
	req := dto.OpenSessionRequest{RegisterID: uuid.New(), LocationID: f.location, OpeningCash: money.MustParse("50.00")}

	_, err := f.svc.Open(context.Background(), uuid.New(), uuid.New(), req)
	assert.ErrorIs(t, err, apierror.ErrValidation)

	req.LocationID = uuid.New()
	_, err = f.svc.Open(context.Background(), f.vendorID, uuid.New(), req)
	assert.ErrorIs(t, err, apierror.ErrValidation)
	assert.Empty(t, f.repo.sessions)
}

func TestRecordMovement_SignsAndBalance(t *testing.T) {
	f := buildSessionSvc()
	resp, _ := openSession(t, f, "100.00")
	ctx := context.Background()
	user := uuid.New()

	_, err := f.ledger.RecordMovement(ctx, f.vendorID, resp.SessionID, user, pos.MovementInput{Type: pos.MovementPaidIn, Amount: money.MustParse("20.00"), Reason: "change float"})
	require.NoError(t, err)
	_, err = f.ledger.RecordMovement(ctx, f.vendorID, resp.SessionID, user, pos.MovementInput{Type: pos.MovementPaidOut, Amount: money.MustParse("15.50"), Reason: "ice for the cooler"})
	require.NoError(t, err)
	_, err = f.ledger.RecordMovement(ctx, f.vendorID, resp.SessionID, user, pos.MovementInput{Type: pos.MovementNoSale, Amount: money.MustParse("99.00")})
	require.NoError(t, err)
	out, err := f.ledger.RecordMovement(ctx, f.vendorID, resp.SessionID, user, pos.MovementInput{Type: pos.MovementRefund, Amount: money.MustParse("4.50"), Reason: "returned pre-roll"})
	require.NoError(t, err)

	// 100 + 20 - 15.50 + 0 - 4.50
	assert.Equal(t, money.MustParse("100.00"), out.CurrentBalance)

	movs, _ := f.ledger.Movements(ctx, resp.SessionID)
	require.Len(t, movs, 5)
	assert.Equal(t, money.MustParse("-15.50"), movs[2].Amount)
	assert.Equal(t, money.Cents(0), movs[3].Amount)
	assert.Equal(t, money.MustParse("-4.50"), movs[4].Amount)

	// Only SALE and REFUND touch total_cash.
	assert.Equal(t, money.MustParse("-4.50"), f.repo.session(resp.SessionID).TotalCash)
}

func TestRecordMovement_Validation(t *testing.T) {
	f := buildSessionSvc()
	resp, _ := openSession(t, f, "50.00")
	ctx := context.Background()

	cases := []struct {
		name string
		in   pos.MovementInput
	}{
		{"paid out without reason", pos.MovementInput{Type: pos.MovementPaidOut, Amount: 100}},
		{"paid in zero", pos.MovementInput{Type: pos.MovementPaidIn, Amount: 0, Reason: "x"}},
		{"refund negative", pos.MovementInput{Type: pos.MovementRefund, Amount: -100, Reason: "x"}},
		{"unknown type", pos.MovementInput{Type: "BOGUS", Amount: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.RecordMovement(ctx, f.vendorID, resp.SessionID, uuid.New(), tc.in)
			assert.ErrorIs(t, err, apierror.ErrValidation)
		})
	}

	balance, _ := f.ledger.CurrentBalance(ctx, resp.SessionID)
	assert.Equal(t, money.MustParse("50.00"), balance)
}

func TestBalance_IndependentOfMovementOrder(t *testing.T) {
	inputs := []pos.MovementInput{
		{Type: pos.MovementPaidIn, Amount: money.MustParse("12.34"), Reason: "a"},
		{Type: pos.MovementPaidOut, Amount: money.MustParse("5.00"), Reason: "b"},
		{Type: pos.MovementRefund, Amount: money.MustParse("1.01"), Reason: "c"},
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	var balances []money.Cents
	for _, order := range orders {
		f := buildSessionSvc()
		resp, _ := openSession(t, f, "80.00")
		for _, i := range order {
			_, err := f.ledger.RecordMovement(context.Background(), f.vendorID, resp.SessionID, uuid.New(), inputs[i])
			require.NoError(t, err)
		}
		b, _ := f.ledger.CurrentBalance(context.Background(), resp.SessionID)
		balances = append(balances, b)
	}
	for _, b := range balances {
		assert.Equal(t, money.MustParse("86.33"), b)
	}
}

func TestClose_ComputesVarianceAndRejectsSecondClose(t *testing.T) {
	f := buildSessionSvc()
	resp, _ := openSession(t, f, "200.00")
	ctx := context.Background()
	user := uuid.New()

	closed, err := f.svc.Close(ctx, f.vendorID, resp.SessionID, user, dto.CloseSessionRequest{ClosingCash: money.MustParse("190.00"), Notes: "short"})
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("200.00"), closed.ExpectedCash)
	assert.Equal(t, money.MustParse("-10.00"), closed.Variance)
	assert.Equal(t, string(pos.VarianceWarning), closed.VarianceClass)
	require.NotNil(t, closed.VariancePct)
	assert.Equal(t, "-5.00", *closed.VariancePct)

	stored := f.repo.session(resp.SessionID)
	assert.Equal(t, model.SessionClosed, stored.Status)

	_, err = f.svc.Close(ctx, f.vendorID, resp.SessionID, user, dto.CloseSessionRequest{ClosingCash: money.MustParse("200.00")})
	assert.ErrorIs(t, err, apierror.ErrSessionClosed)
	assert.Equal(t, money.MustParse("-10.00"), *f.repo.session(resp.SessionID).Variance)

	_, err = f.ledger.RecordMovement(ctx, f.vendorID, resp.SessionID, user, pos.MovementInput{Type: pos.MovementNoSale})
	assert.ErrorIs(t, err, apierror.ErrSessionClosed)
}

func TestAppendTx_StaleSessionReadCannotWriteAfterClose(t *testing.T) {
	f := buildSessionSvc()
	resp, _ := openSession(t, f, "200.00")
	ctx := context.Background()
	user := uuid.New()

	// Read while OPEN, as a request racing the close would.
	stale := f.repo.session(resp.SessionID)
	require.True(t, stale.IsOpen())

	_, err := f.svc.Close(ctx, f.vendorID, resp.SessionID, user, dto.CloseSessionRequest{ClosingCash: money.MustParse("200.00")})
	require.NoError(t, err)

	_, err = f.ledger.AppendTx(ctx, nil, &stale, &user, pos.MovementInput{Type: pos.MovementPaidOut, Amount: money.MustParse("50.00"), Reason: "late payout"}, nil)
	assert.ErrorIs(t, err, apierror.ErrSessionClosed)

	balance, err := f.ledger.CurrentBalance(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("200.00"), balance)
	movs, _ := f.ledger.Movements(ctx, resp.SessionID)
	assert.Len(t, movs, 1)
}

func TestRecordSale_StaleSessionReadCannotWriteAfterClose(t *testing.T) {
	f := buildSessionSvc()
	resp, _ := openSession(t, f, "100.00")
	ctx := context.Background()

	stale := f.repo.session(resp.SessionID)
	_, err := f.svc.Close(ctx, f.vendorID, resp.SessionID, uuid.New(), dto.CloseSessionRequest{ClosingCash: money.MustParse("100.00")})
	require.NoError(t, err)

	order := &model.Order{ID: uuid.New(), Total: money.MustParse("30.00"), PaymentMethod: pos.MethodCash}
	err = f.svc.RecordSale(ctx, &stale, order)
	assert.ErrorIs(t, err, apierror.ErrSessionClosed)
	assert.Equal(t, 0, f.repo.session(resp.SessionID).TotalTransactions)
}

func TestReportAndActive(t *testing.T) {
	f := buildSessionSvc()
	resp, req := openSession(t, f, "75.00")
	ctx := context.Background()

	active, err := f.svc.Active(ctx, f.vendorID, req.RegisterID)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, active.SessionID)
	assert.Equal(t, money.MustParse("75.00"), active.CurrentBalance)
	assert.Len(t, active.Movements, 1)

	_, err = f.svc.Close(ctx, f.vendorID, resp.SessionID, uuid.New(), dto.CloseSessionRequest{ClosingCash: money.MustParse("75.00")})
	require.NoError(t, err)

	_, err = f.svc.Active(ctx, f.vendorID, req.RegisterID)
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	report, err := f.svc.Report(ctx, f.vendorID, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, report.Status)
	require.NotNil(t, report.VarianceClass)
	assert.Equal(t, string(pos.VarianceNormal), *report.VarianceClass)

	_, err = f.svc.RequireOpen(ctx, f.vendorID, resp.SessionID)
	assert.ErrorIs(t, err, apierror.ErrSessionClosed)
}

func TestSessions_HiddenFromOtherVendors(t *testing.T) {
	f := buildSessionSvc()
	resp, req := openSession(t, f, "60.00")
	ctx := context.Background()
	other := uuid.New()

	_, err := f.svc.RequireOpen(ctx, other, resp.SessionID)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	_, err = f.svc.Report(ctx, other, resp.SessionID)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	_, err = f.svc.Active(ctx, other, req.RegisterID)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	_, err = f.ledger.RecordMovement(ctx, other, resp.SessionID, uuid.New(), pos.MovementInput{Type: pos.MovementPaidOut, Amount: money.MustParse("60.00"), Reason: "x"})
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	_, err = f.svc.Close(ctx, other, resp.SessionID, uuid.New(), dto.CloseSessionRequest{ClosingCash: 0})
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	history, err := f.svc.History(ctx, other, dto.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, history.Data)

	assert.Equal(t, model.SessionOpen, f.repo.session(resp.SessionID).Status)
	balance, _ := f.ledger.CurrentBalance(ctx, resp.SessionID)
	assert.Equal(t, money.MustParse("60.00"), balance)
}
