package repository

import (
	"context"
	"fmt"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OpenSessionIndex is the partial unique index enforcing one OPEN session per
// register. Created by infra.RunMigrations.
const OpenSessionIndex = "uniq_register_sessions_open"

// SessionRepository persists register sessions and their cash movements.
// Methods taking tx run inside the caller's transaction when tx is non-nil.
type SessionRepository interface {
	CreateSession(ctx context.Context, tx *gorm.DB, s *model.RegisterSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RegisterSession, error)
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.RegisterSession, error)
	// LockOpenTx takes the session row lock (SELECT ... FOR UPDATE) and fails
	// with SessionClosedError unless the session is still OPEN. Writers that
	// depend on the session being open call it first in their transaction.
	LockOpenTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RegisterSession, error)
	NextSessionNumber(ctx context.Context, tx *gorm.DB) (int64, error)
	List(ctx context.Context, filter dto.SessionFilter) ([]model.RegisterSession, int64, error)
	// CloseSession writes the close fields only if the session is still OPEN.
	CloseSession(ctx context.Context, tx *gorm.DB, s *model.RegisterSession) error
	// AddSale atomically bumps total_sales and total_transactions on an OPEN session.
	AddSale(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, total money.Cents) error
	// AddCash atomically adjusts total_cash on an OPEN session.
	AddCash(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, delta money.Cents) error

	CreateMovement(ctx context.Context, tx *gorm.DB, m *model.CashMovement) error
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	SumMovements(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (money.Cents, error)

	DB() *gorm.DB
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

func (r *sessionRepo) CreateSession(ctx context.Context, tx *gorm.DB, s *model.RegisterSession) error {
	err := pick(r.db, tx).WithContext(ctx).Create(s).Error
	if IsUniqueViolation(err, OpenSessionIndex) {
		return apierror.Conflict("register already has an open session, refresh")
	}
	return translate(err, "session", "create session")
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "session", "find session")
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND status = ?", registerID, model.SessionOpen).
		First(&s).Error
	if err != nil {
		return nil, translate(err, "open session", "find open session")
	}
	return &s, nil
}

func (r *sessionRepo) LockOpenTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "session", "lock session")
	}
	if !s.IsOpen() {
		return nil, apierror.SessionClosed("session %s is closed", s.SessionNumber)
	}
	return &s, nil
}

func (r *sessionRepo) NextSessionNumber(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).Raw("SELECT nextval('register_sessions_number_seq')").Scan(&n).Error
	return n, translate(err, "session number", "next session number")
}

func (r *sessionRepo) List(ctx context.Context, filter dto.SessionFilter) ([]model.RegisterSession, int64, error) {
	page, limit := pageBounds(filter.Page, filter.Limit)
	q := r.db.WithContext(ctx).Model(&model.RegisterSession{})
	if filter.VendorID != uuid.Nil {
		q = q.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.RegisterID != "" {
		q = q.Where("register_id = ?", filter.RegisterID)
	}
	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "sessions", "count sessions")
	}
	var sessions []model.RegisterSession
	err := q.Order("opened_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&sessions).Error
	return sessions, total, translate(err, "sessions", "list sessions")
}

func (r *sessionRepo) CloseSession(ctx context.Context, tx *gorm.DB, s *model.RegisterSession) error {
	res := pick(r.db, tx).WithContext(ctx).Model(&model.RegisterSession{}).
		Where("id = ? AND status = ?", s.ID, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":         model.SessionClosed,
			"closing_cash":   s.ClosingCash,
			"expected_cash":  s.ExpectedCash,
			"variance":       s.Variance,
			"variance_pct":   s.VariancePct,
			"variance_class": s.VarianceClass,
			"closed_by":      s.ClosedBy,
			"notes":          s.Notes,
			"closed_at":      s.ClosedAt,
		})
	if res.Error != nil {
		return translate(res.Error, "session", "close session")
	}
	if res.RowsAffected == 0 {
		return apierror.SessionClosed("session %s is already closed", s.SessionNumber)
	}
	return nil
}

func (r *sessionRepo) AddSale(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, total money.Cents) error {
	return r.increment(ctx, tx, sessionID, map[string]interface{}{
		"total_sales":        gorm.Expr("total_sales + ?", int64(total)),
		"total_transactions": gorm.Expr("total_transactions + 1"),
	})
}

func (r *sessionRepo) AddCash(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, delta money.Cents) error {
	return r.increment(ctx, tx, sessionID, map[string]interface{}{
		"total_cash": gorm.Expr("total_cash + ?", int64(delta)),
	})
}

func (r *sessionRepo) increment(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, cols map[string]interface{}) error {
	res := pick(r.db, tx).WithContext(ctx).Model(&model.RegisterSession{}).
		Where("id = ? AND status = ?", sessionID, model.SessionOpen).
		UpdateColumns(cols)
	if res.Error != nil {
		return translate(res.Error, "session", "update session aggregates")
	}
	if res.RowsAffected == 0 {
		return apierror.SessionClosed("session %s is not open", sessionID)
	}
	return nil
}

func (r *sessionRepo) CreateMovement(ctx context.Context, tx *gorm.DB, m *model.CashMovement) error {
	err := pick(r.db, tx).WithContext(ctx).Create(m).Error
	return translate(err, "cash movement", fmt.Sprintf("create %s movement", m.Type))
}

func (r *sessionRepo) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&movs).Error
	return movs, translate(err, "cash movements", "list movements")
}

func (r *sessionRepo) SumMovements(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (money.Cents, error) {
	var sum int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.CashMovement{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error
	return money.Cents(sum), translate(err, "cash movements", "sum movements")
}
