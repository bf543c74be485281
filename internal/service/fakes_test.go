package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories. DB() returns nil so runTx calls fn(nil) directly.

type stubSessionRepo struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*model.RegisterSession
	movements []model.CashMovement
	seq       int64
	failSale  error
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[uuid.UUID]*model.RegisterSession)}
}

func (r *stubSessionRepo) CreateSession(_ context.Context, _ *gorm.DB, s *model.RegisterSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.sessions {
		if other.RegisterID == s.RegisterID && other.IsOpen() {
			return apierror.Conflict("session already exists")
		}
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *stubSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apierror.NotFound("session not found")
	}
	cp := *s
	return &cp, nil
}

func (r *stubSessionRepo) FindOpenByRegister(_ context.Context, registerID uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RegisterID == registerID && s.IsOpen() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apierror.NotFound("session not found")
}

func (r *stubSessionRepo) NextSessionNumber(_ context.Context, _ *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *stubSessionRepo) List(_ context.Context, filter dto.SessionFilter) ([]model.RegisterSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.RegisterSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if filter.VendorID != uuid.Nil && s.VendorID != filter.VendorID {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionNumber > out[j].SessionNumber })
	return out, int64(len(out)), nil
}

func (r *stubSessionRepo) LockOpenTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apierror.NotFound("session not found")
	}
	if !s.IsOpen() {
		return nil, apierror.SessionClosed("session %s is closed", s.SessionNumber)
	}
	cp := *s
	return &cp, nil
}

func (r *stubSessionRepo) CloseSession(_ context.Context, _ *gorm.DB, s *model.RegisterSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || !stored.IsOpen() {
		return apierror.SessionClosed("session %s is already closed", s.SessionNumber)
	}
	cp := *s
	cp.Status = model.SessionClosed
	cp.TotalSales, cp.TotalTransactions, cp.TotalCash = stored.TotalSales, stored.TotalTransactions, stored.TotalCash
	r.sessions[s.ID] = &cp
	return nil
}

func (r *stubSessionRepo) AddSale(_ context.Context, _ *gorm.DB, sessionID uuid.UUID, total money.Cents) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSale != nil {
		return r.failSale
	}
	s, ok := r.sessions[sessionID]
	if !ok || !s.IsOpen() {
		return apierror.SessionClosed("session %s is not open", sessionID)
	}
	s.TotalSales += total
	s.TotalTransactions++
	return nil
}

func (r *stubSessionRepo) AddCash(_ context.Context, _ *gorm.DB, sessionID uuid.UUID, delta money.Cents) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.IsOpen() {
		return apierror.SessionClosed("session %s is not open", sessionID)
	}
	s.TotalCash += delta
	return nil
}

func (r *stubSessionRepo) CreateMovement(_ context.Context, _ *gorm.DB, m *model.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubSessionRepo) ListMovements(_ context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CashMovement
	for _, m := range r.movements {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) SumMovements(ctx context.Context, _ *gorm.DB, sessionID uuid.UUID) (money.Cents, error) {
	movs, _ := r.ListMovements(ctx, sessionID)
	var sum money.Cents
	for _, m := range movs {
		sum += m.Amount
	}
	return sum, nil
}

func (r *stubSessionRepo) DB() *gorm.DB { return nil }

func (r *stubSessionRepo) session(id uuid.UUID) model.RegisterSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.sessions[id]
}

var _ repository.SessionRepository = (*stubSessionRepo)(nil)

// stubProductRepo keeps products by id. failLock makes FindForUpdateTx fail,
// simulating a lock timeout during the inventory step.
type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
	failLock error
}

func newStubProductRepo(products ...*model.Product) *stubProductRepo {
	r := &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.products {
		if other.VendorID == p.VendorID && other.SKU == p.SKU {
			return apierror.Conflict("product already exists")
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apierror.NotFound("product not found")
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (r *stubProductRepo) List(_ context.Context, vendorID uuid.UUID, _ dto.ProductFilter) ([]model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.VendorID == vendorID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) FindForUpdateTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	if r.failLock != nil {
		return nil, r.failLock
	}
	return r.FindByID(ctx, id)
}

func (r *stubProductRepo) UpdateStockTx(_ context.Context, _ *gorm.DB, id uuid.UUID, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return apierror.NotFound("product not found")
	}
	p.StockQuantity = p.StockQuantity.Add(delta)
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

func (r *stubProductRepo) stock(id uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].StockQuantity
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

type stubMovementRepo struct {
	mu        sync.Mutex
	movements []model.InventoryMovement
}

func (r *stubMovementRepo) CreateTx(_ context.Context, _ *gorm.DB, m *model.InventoryMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) ListByProduct(_ context.Context, productID uuid.UUID, _ int) ([]model.InventoryMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.InventoryMovementRepository = (*stubMovementRepo)(nil)

type stubOrderRepo struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*model.Order
	byKey      map[string]*model.Order
	syncs      map[uuid.UUID]model.InventorySync
	seq        int64
	failCreate error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders: make(map[uuid.UUID]*model.Order),
		byKey:  make(map[string]*model.Order),
		syncs:  make(map[uuid.UUID]model.InventorySync),
	}
}

func (r *stubOrderRepo) Create(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	if o.IdempotencyKey != nil {
		if _, dup := r.byKey[*o.IdempotencyKey]; dup {
			return apierror.Conflict("order already exists")
		}
		r.byKey[*o.IdempotencyKey] = o
	}
	r.orders[o.ID] = o
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apierror.NotFound("order not found")
	}
	return o, nil
}

func (r *stubOrderRepo) FindByIdempotencyKey(_ context.Context, key string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byKey[key]
	if !ok {
		return nil, apierror.NotFound("order not found")
	}
	return o, nil
}

func (r *stubOrderRepo) NextOrderNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *stubOrderRepo) List(_ context.Context, filter dto.OrderFilter) ([]model.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, o := range r.orders {
		if filter.VendorID != uuid.Nil && o.VendorID != filter.VendorID {
			continue
		}
		if filter.SessionID == "" || o.SessionID.String() == filter.SessionID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubOrderRepo) SaveInventorySync(_ context.Context, s *model.InventorySync) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs[s.OrderID] = *s
	return nil
}

func (r *stubOrderRepo) FindInventorySync(_ context.Context, orderID uuid.UUID) (*model.InventorySync, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.syncs[orderID]
	if !ok {
		return nil, apierror.NotFound("inventory sync not found")
	}
	return &s, nil
}

func (r *stubOrderRepo) ListInventoryRetries(_ context.Context, now time.Time, limit int) ([]model.InventorySync, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventorySync
	for _, s := range r.syncs {
		if s.Status == model.InventoryFailed && s.NextRetryAt != nil && !s.NextRetryAt.After(now) {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.OrderRepository = (*stubOrderRepo)(nil)

type stubLocationRepo struct {
	locations map[uuid.UUID]*model.Location
}

func (r *stubLocationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Location, error) {
	l, ok := r.locations[id]
	if !ok {
		return nil, apierror.NotFound("location not found")
	}
	return l, nil
}

func (r *stubLocationRepo) Create(_ context.Context, l *model.Location) error {
	r.locations[l.ID] = l
	return nil
}

var _ repository.LocationRepository = (*stubLocationRepo)(nil)

type stubReceiptRepo struct {
	receipts map[uuid.UUID]*model.Receipt
}

func (r *stubReceiptRepo) Create(_ context.Context, rec *model.Receipt) error {
	r.receipts[rec.OrderID] = rec
	return nil
}

func (r *stubReceiptRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*model.Receipt, error) {
	rec, ok := r.receipts[orderID]
	if !ok {
		return nil, apierror.NotFound("receipt not found")
	}
	return rec, nil
}

func (r *stubReceiptRepo) Update(_ context.Context, rec *model.Receipt) error {
	r.receipts[rec.OrderID] = rec
	return nil
}

var _ repository.ReceiptRepository = (*stubReceiptRepo)(nil)

type stubUserRepo struct {
	users map[string]*model.User
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if _, ok := r.users[u.Username]; ok {
		return apierror.Conflict("user already exists")
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.Username] = u
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apierror.NotFound("user not found")
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, apierror.NotFound("user not found")
	}
	return u, nil
}

func (r *stubUserRepo) ListByVendor(_ context.Context, vendorID uuid.UUID) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.VendorID == vendorID {
			out = append(out, *u)
		}
	}
	return out, nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

// ── Collaborator stubs ────────────────────────────────────────────────────────

type receiptCall struct {
	OrderID uuid.UUID
	Email   string
}

type stubReceiptDispatcher struct {
	calls []receiptCall
	err   error
}

func (d *stubReceiptDispatcher) EnqueueReceipt(_ context.Context, orderID uuid.UUID, email string) error {
	d.calls = append(d.calls, receiptCall{OrderID: orderID, Email: email})
	return d.err
}

type stubGuard struct {
	held map[string]bool
	err  error
}

func (g *stubGuard) Acquire(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *stubGuard) Release(_ context.Context, key string) error {
	delete(g.held, key)
	return nil
}

type countingAuthorizer struct {
	mu    sync.Mutex
	calls int
}

func (a *countingAuthorizer) Authorize(_ context.Context, amount money.Cents) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return fmt.Sprintf("AUTH-T%07d", a.calls), nil
}

func (a *countingAuthorizer) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
