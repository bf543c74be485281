package service

import (
	"context"

	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// LedgerService is the cash drawer ledger of a register session. Movements
// are append-only; the expected balance is always derived from them.
type LedgerService interface {
	// RecordMovement validates and appends a drawer operation on one of the
	// vendor's sessions, returning the new expected balance.
	RecordMovement(ctx context.Context, vendorID, sessionID, userID uuid.UUID, in pos.MovementInput) (*dto.CashMovementResponse, error)
	// AppendTx appends a movement inside the caller's transaction. It locks the
	// session row and re-checks OPEN first, so session may be a stale read.
	AppendTx(ctx context.Context, tx *gorm.DB, session *model.RegisterSession, userID *uuid.UUID, in pos.MovementInput, ref *uuid.UUID) (*model.CashMovement, error)
	CurrentBalance(ctx context.Context, sessionID uuid.UUID) (money.Cents, error)
	Movements(ctx context.Context, sessionID uuid.UUID) ([]dto.MovementResponse, error)
}

type ledgerService struct {
	repo repository.SessionRepository
}

func NewLedgerService(repo repository.SessionRepository) LedgerService {
	return &ledgerService{repo: repo}
}

func (s *ledgerService) RecordMovement(ctx context.Context, vendorID, sessionID, userID uuid.UUID, in pos.MovementInput) (*dto.CashMovementResponse, error) {
	session, err := findScoped(ctx, s.repo, vendorID, sessionID)
	if err != nil {
		return nil, err
	}

	var mov *model.CashMovement
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		mov, err = s.AppendTx(ctx, tx, session, &userID, in, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.CurrentBalance(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("type", string(mov.Type)).
		Str("amount", mov.Amount.String()).
		Str("balance", balance.String()).
		Msg("cash movement recorded")

	return &dto.CashMovementResponse{MovementID: mov.ID, CurrentBalance: balance}, nil
}

func (s *ledgerService) AppendTx(ctx context.Context, tx *gorm.DB, session *model.RegisterSession, userID *uuid.UUID, in pos.MovementInput, ref *uuid.UUID) (*model.CashMovement, error) {
	norm, err := pos.NormalizeMovement(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.LockOpenTx(ctx, tx, session.ID); err != nil {
		return nil, err
	}

	mov := &model.CashMovement{
		ID:          uuid.New(),
		SessionID:   session.ID,
		Type:        norm.Type,
		Amount:      norm.Amount,
		Reason:      norm.Reason,
		Notes:       strPtr(norm.Notes),
		ReferenceID: ref,
		CreatedBy:   userID,
	}
	if err := s.repo.CreateMovement(ctx, tx, mov); err != nil {
		return nil, err
	}
	if norm.Type.AffectsCashTotal() {
		if err := s.repo.AddCash(ctx, tx, session.ID, norm.Amount); err != nil {
			return nil, err
		}
	}
	return mov, nil
}

func (s *ledgerService) CurrentBalance(ctx context.Context, sessionID uuid.UUID) (money.Cents, error) {
	return s.repo.SumMovements(ctx, nil, sessionID)
}

func (s *ledgerService) Movements(ctx context.Context, sessionID uuid.UUID) ([]dto.MovementResponse, error) {
	movs, err := s.repo.ListMovements(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, len(movs))
	for i, m := range movs {
		out[i] = toMovementResponse(m)
	}
	return out, nil
}

func toMovementResponse(m model.CashMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:          m.ID,
		Type:        string(m.Type),
		Amount:      m.Amount,
		Reason:      m.Reason,
		Notes:       m.Notes,
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt,
	}
}
