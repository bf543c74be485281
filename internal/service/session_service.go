package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionService drives a register session through OPEN → CLOSED and folds
// completed sales into its aggregates. Every lookup is scoped to the caller's
// vendor; a session of another vendor reads as not found.
type SessionService interface {
	Open(ctx context.Context, vendorID, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.OpenSessionResponse, error)
	RecordSale(ctx context.Context, session *model.RegisterSession, order *model.Order) error
	Close(ctx context.Context, vendorID, sessionID, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error)
	// Find loads a session of the vendor in any state.
	Find(ctx context.Context, vendorID, sessionID uuid.UUID) (*model.RegisterSession, error)
	// RequireOpen loads a session and fails with SessionClosedError unless it is OPEN.
	RequireOpen(ctx context.Context, vendorID, sessionID uuid.UUID) (*model.RegisterSession, error)
	// Active is the pull-based query for a register's OPEN session.
	Active(ctx context.Context, vendorID, registerID uuid.UUID) (*dto.SessionReportResponse, error)
	Report(ctx context.Context, vendorID, sessionID uuid.UUID) (*dto.SessionReportResponse, error)
	History(ctx context.Context, vendorID uuid.UUID, filter dto.SessionFilter) (*dto.SessionListResponse, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	ledger    LedgerService
	locations repository.LocationRepository
	carts     *CartStore
}

// NewSessionService builds the session lifecycle. carts may be nil; when set,
// a session's cart is dropped as the session closes.
func NewSessionService(repo repository.SessionRepository, ledger LedgerService, locations repository.LocationRepository, carts *CartStore) SessionService {
	return &sessionService{repo: repo, ledger: ledger, locations: locations, carts: carts}
}

// findScoped loads a session and hides it unless it belongs to vendorID.
func findScoped(ctx context.Context, repo repository.SessionRepository, vendorID, sessionID uuid.UUID) (*model.RegisterSession, error) {
	session, err := repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.VendorID != vendorID {
		return nil, apierror.NotFound("session not found")
	}
	return session, nil
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *sessionService) Open(ctx context.Context, vendorID, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.OpenSessionResponse, error) {
	loc, err := s.locations.FindByID(ctx, req.LocationID)
	switch {
	case errors.Is(err, apierror.ErrNotFound) || (err == nil && loc.VendorID != vendorID):
		return nil, apierror.Validation("location %s is not one of your stores", req.LocationID)
	case err != nil:
		return nil, err
	}

	existing, err := s.repo.FindOpenByRegister(ctx, req.RegisterID)
	switch {
	case err == nil && existing != nil:
		return nil, apierror.Conflict("register already has an open session (%s), refresh", existing.SessionNumber)
	case err != nil && !errors.Is(err, apierror.ErrNotFound):
		return nil, err
	}

	opening := pos.MovementInput{Type: pos.MovementOpening, Amount: req.OpeningCash, Reason: "opening float"}
	if _, err := pos.NormalizeMovement(opening); err != nil {
		return nil, err
	}

	session := &model.RegisterSession{
		ID:          uuid.New(),
		RegisterID:  req.RegisterID,
		LocationID:  req.LocationID,
		VendorID:    vendorID,
		OpenedBy:    userID,
		Status:      model.SessionOpen,
		OpeningCash: req.OpeningCash,
		OpenedAt:    time.Now().UTC(),
	}

	// The partial unique index on (register_id) WHERE status = 'OPEN' decides
	// races between two opens; the lookup above only gives a friendlier error.
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.NextSessionNumber(ctx, tx)
		if err != nil {
			return err
		}
		session.SessionNumber = formatNumber("S", n)
		if err := s.repo.CreateSession(ctx, tx, session); err != nil {
			return err
		}
		_, err = s.ledger.AppendTx(ctx, tx, session, &userID, opening, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("session_number", session.SessionNumber).
		Str("register_id", session.RegisterID.String()).
		Str("opening_cash", session.OpeningCash.String()).
		Msg("register session opened")

	return &dto.OpenSessionResponse{
		SessionID:     session.ID,
		SessionNumber: session.SessionNumber,
		OpenedAt:      session.OpenedAt,
	}, nil
}

// ── RecordSale ────────────────────────────────────────────────────────────────

func (s *sessionService) RecordSale(ctx context.Context, session *model.RegisterSession, order *model.Order) error {
	if !session.IsOpen() {
		return apierror.SessionClosed("session %s is closed", session.SessionNumber)
	}
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.LockOpenTx(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if err := s.repo.AddSale(ctx, tx, locked.ID, order.Total); err != nil {
			return err
		}
		cash := order.CashPortion()
		if cash <= 0 {
			return nil
		}
		in := pos.MovementInput{Type: pos.MovementSale, Amount: cash, Reason: "order " + order.OrderNumber}
		_, err = s.ledger.AppendTx(ctx, tx, locked, &order.CashierID, in, &order.ID)
		return err
	})
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Close(ctx context.Context, vendorID, sessionID, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error) {
	session, err := findScoped(ctx, s.repo, vendorID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, apierror.SessionClosed("session %s is already closed", session.SessionNumber)
	}
	if req.ClosingCash < 0 {
		return nil, apierror.Validation("closing cash cannot be negative")
	}

	var (
		expected, variance money.Cents
		class              pos.VarianceClass
		pct                *decimal.Decimal
	)
	now := time.Now().UTC()
	closing := req.ClosingCash

	// The row lock makes the balance read and the close one step: a movement
	// or sale either commits before the SUM or finds the session CLOSED.
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.LockOpenTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		expected, err = s.repo.SumMovements(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		variance = pos.Variance(closing, expected)
		class, pct = pos.ClassifyVariance(variance, expected)

		classStr := string(class)
		session = locked
		session.ClosingCash = &closing
		session.ExpectedCash = &expected
		session.Variance = &variance
		session.VariancePct = pct
		session.VarianceClass = &classStr
		session.ClosedBy = &userID
		session.ClosedAt = &now
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			session.Notes = &notes
		}
		return s.repo.CloseSession(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	session.Status = model.SessionClosed
	if s.carts != nil {
		s.carts.Drop(session.ID)
	}
	classStr := string(class)

	ev := log.Info()
	if class != pos.VarianceNormal {
		ev = log.Warn()
	}
	ev.Str("session_id", session.ID.String()).
		Str("expected", expected.String()).
		Str("counted", closing.String()).
		Str("variance", variance.String()).
		Str("class", classStr).
		Msg("register session closed")

	resp := &dto.CloseSessionResponse{
		SessionID:     session.ID,
		ClosingCash:   closing,
		ExpectedCash:  expected,
		Variance:      variance,
		VarianceClass: classStr,
		ClosedAt:      now,
	}
	if pct != nil {
		p := pct.StringFixed(2)
		resp.VariancePct = &p
	}
	return resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *sessionService) Find(ctx context.Context, vendorID, sessionID uuid.UUID) (*model.RegisterSession, error) {
	return findScoped(ctx, s.repo, vendorID, sessionID)
}

func (s *sessionService) RequireOpen(ctx context.Context, vendorID, sessionID uuid.UUID) (*model.RegisterSession, error) {
	session, err := findScoped(ctx, s.repo, vendorID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, apierror.SessionClosed("session %s is closed, open a new session", session.SessionNumber)
	}
	return session, nil
}

func (s *sessionService) Active(ctx context.Context, vendorID, registerID uuid.UUID) (*dto.SessionReportResponse, error) {
	session, err := s.repo.FindOpenByRegister(ctx, registerID)
	if err != nil {
		return nil, err
	}
	if session.VendorID != vendorID {
		return nil, apierror.NotFound("open session not found")
	}
	return s.buildReport(ctx, session, true)
}

func (s *sessionService) Report(ctx context.Context, vendorID, sessionID uuid.UUID) (*dto.SessionReportResponse, error) {
	session, err := findScoped(ctx, s.repo, vendorID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildReport(ctx, session, true)
}

func (s *sessionService) History(ctx context.Context, vendorID uuid.UUID, filter dto.SessionFilter) (*dto.SessionListResponse, error) {
	filter.VendorID = vendorID
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SessionReportResponse, 0, len(sessions))
	for i := range sessions {
		r, err := s.buildReport(ctx, &sessions[i], false)
		if err != nil {
			return nil, err
		}
		data = append(data, *r)
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return &dto.SessionListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *sessionService) buildReport(ctx context.Context, session *model.RegisterSession, withMovements bool) (*dto.SessionReportResponse, error) {
	var balance money.Cents
	if session.IsOpen() || session.ExpectedCash == nil {
		b, err := s.ledger.CurrentBalance(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		balance = b
	} else {
		balance = *session.ExpectedCash
	}

	r := &dto.SessionReportResponse{
		SessionID:         session.ID,
		SessionNumber:     session.SessionNumber,
		RegisterID:        session.RegisterID,
		LocationID:        session.LocationID,
		VendorID:          session.VendorID,
		Status:            session.Status,
		OpeningCash:       session.OpeningCash,
		TotalSales:        session.TotalSales,
		TotalTransactions: session.TotalTransactions,
		TotalCash:         session.TotalCash,
		CurrentBalance:    balance,
		ClosingCash:       session.ClosingCash,
		ExpectedCash:      session.ExpectedCash,
		Variance:          session.Variance,
		VarianceClass:     session.VarianceClass,
		Notes:             session.Notes,
		OpenedAt:          session.OpenedAt,
		ClosedAt:          session.ClosedAt,
	}
	if session.VariancePct != nil {
		p := session.VariancePct.StringFixed(2)
		r.VariancePct = &p
	}
	if withMovements {
		movs, err := s.ledger.Movements(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		r.Movements = movs
	}
	return r, nil
}
