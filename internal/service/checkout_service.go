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
)

// Checkout steps reported in warnings.
const (
	StepInventory = "inventory"
	StepSession   = "session"
	StepReceipt   = "receipt"
)

// ReceiptDispatcher queues receipt rendering for a persisted order.
type ReceiptDispatcher interface {
	EnqueueReceipt(ctx context.Context, orderID uuid.UUID, email string) error
}

// CheckoutGuard rejects a second in-flight checkout carrying the same
// idempotency key. The orders unique index remains the final word.
type CheckoutGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// CheckoutInput is everything the order materializer needs. Payment must
// already be resolved; it is re-validated against the cart total.
type CheckoutInput struct {
	Session        *model.RegisterSession
	Cart           *pos.Cart
	Payment        pos.PaymentResult
	TaxRate        decimal.Decimal
	CashierID      uuid.UUID
	IdempotencyKey string
	CustomerEmail  string
}

// CheckoutResult is the persisted order plus the post-commit steps that
// failed. A non-empty Warnings does not mean the sale failed.
type CheckoutResult struct {
	Order     *model.Order
	Warnings  []dto.CheckoutWarning
	Duplicate bool
}

type CheckoutService interface {
	// Checkout resolves the request into a cart and payment, then completes it.
	Checkout(ctx context.Context, vendorID, cashierID uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	// CompleteCheckout is the commit point from a resolved cart and payment to
	// a persisted order.
	CompleteCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error)
	GetOrder(ctx context.Context, vendorID, id uuid.UUID) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, vendorID uuid.UUID, filter dto.OrderFilter) (*dto.OrderListResponse, error)
}

type checkoutService struct {
	orders     repository.OrderRepository
	products   repository.ProductRepository
	sessions   SessionService
	inventory  InventoryService
	carts      *CartStore
	taxes      *TaxRates
	authorizer pos.CardAuthorizer
	receipts   ReceiptDispatcher
	guard      CheckoutGuard

	acceptCardRefs bool
}

// CheckoutDeps groups the collaborators of NewCheckoutService. Receipts and
// Guard are optional.
type CheckoutDeps struct {
	Orders     repository.OrderRepository
	Products   repository.ProductRepository
	Sessions   SessionService
	Inventory  InventoryService
	Carts      *CartStore
	Taxes      *TaxRates
	Authorizer pos.CardAuthorizer
	Receipts   ReceiptDispatcher
	Guard      CheckoutGuard

	// AcceptClientCardRefs lets a request carry its own authorization_ref or
	// split card reference. Only safe when no real terminal is configured.
	AcceptClientCardRefs bool
}

func NewCheckoutService(d CheckoutDeps) CheckoutService {
	auth := d.Authorizer
	if auth == nil {
		auth = pos.StubAuthorizer{}
	}
	carts := d.Carts
	if carts == nil {
		carts = NewCartStore()
	}
	return &checkoutService{
		orders:     d.Orders,
		products:   d.Products,
		sessions:   d.Sessions,
		inventory:  d.Inventory,
		carts:      carts,
		taxes:      d.Taxes,
		authorizer: auth,
		receipts:   d.Receipts,
		guard:      d.Guard,

		acceptCardRefs: d.AcceptClientCardRefs,
	}
}

// ── Checkout ──────────────────────────────────────────────────────────────────

func (s *checkoutService) Checkout(ctx context.Context, vendorID, cashierID uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if resp, err := s.findDuplicate(ctx, vendorID, key); resp != nil || err != nil {
		return resp, err
	}

	session, err := s.sessions.RequireOpen(ctx, vendorID, req.SessionID)
	if err != nil {
		return nil, err
	}

	fromServerCart := len(req.Lines) == 0
	var cart *pos.Cart
	if fromServerCart {
		cart = s.carts.Snapshot(session.ID)
	} else {
		cart, err = s.buildCart(ctx, session, req.Lines)
		if err != nil {
			return nil, err
		}
	}
	if cart.IsEmpty() {
		return nil, apierror.EmptyCart("cart is empty")
	}

	rate, err := s.taxes.For(ctx, session.LocationID)
	if err != nil {
		return nil, err
	}

	// The guard is held before any card is authorized so a double tap
	// cannot reach the terminal twice.
	if key != "" && s.guard != nil {
		ok, err := s.guard.Acquire(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("idempotency_key", key).Msg("checkout guard unavailable, relying on unique index")
		} else if !ok {
			return nil, apierror.Conflict("checkout already in progress")
		} else {
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
					log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to release checkout guard")
				}
			}()
			if resp, err := s.findDuplicate(ctx, vendorID, key); resp != nil || err != nil {
				return resp, err
			}
		}
	}

	payment, err := s.resolvePayment(ctx, cart.Total(rate), req.Payment)
	if err != nil {
		return nil, err
	}

	res, err := s.CompleteCheckout(ctx, CheckoutInput{
		Session:        session,
		Cart:           cart,
		Payment:        payment,
		TaxRate:        rate,
		CashierID:      cashierID,
		IdempotencyKey: key,
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
	})
	if err != nil {
		return nil, err
	}
	if fromServerCart && !res.Duplicate {
		s.carts.Drop(session.ID)
	}
	return toCheckoutResponse(res.Order, res.Warnings, res.Duplicate), nil
}

// findDuplicate returns the order already committed under key, if any. A key
// reused by another vendor is a conflict, never a replay.
func (s *checkoutService) findDuplicate(ctx context.Context, vendorID uuid.UUID, key string) (*dto.CheckoutResponse, error) {
	if key == "" {
		return nil, nil
	}
	existing, err := s.orders.FindByIdempotencyKey(ctx, key)
	switch {
	case errors.Is(err, apierror.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	case existing.VendorID != vendorID:
		return nil, apierror.Conflict("idempotency key already used")
	}
	log.Info().Str("order_id", existing.ID.String()).Str("idempotency_key", key).Msg("duplicate checkout, returning original order")
	return toCheckoutResponse(existing, nil, true), nil
}

func (s *checkoutService) buildCart(ctx context.Context, session *model.RegisterSession, lines []dto.CheckoutLineRequest) (*pos.Cart, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	cart := pos.NewCart()
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, apierror.NotFound("product %s not found", l.ProductID)
		}
		if !p.Active || p.VendorID != session.VendorID {
			return nil, apierror.Validation("product %s is not available", p.Name)
		}
		var override *pos.PriceOverride
		if l.PriceOverride != nil {
			override = &pos.PriceOverride{UnitPrice: *l.PriceOverride, Label: l.PromotionLabel}
		}
		if err := cart.AddItem(toPosProduct(&p), l.Quantity, override); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

func (s *checkoutService) resolvePayment(ctx context.Context, total money.Cents, req dto.PaymentRequest) (pos.PaymentResult, error) {
	switch pos.Method(req.Method) {
	case pos.MethodCash:
		return pos.ResolveCash(total, req.CashTendered)

	case pos.MethodCard:
		if ref := strings.TrimSpace(req.AuthorizationRef); ref != "" {
			if !s.acceptCardRefs {
				return nil, errClientCardRef
			}
			return pos.CardPayment{Total: total, AuthorizationRef: ref}, nil
		}
		p, err := pos.ResolveCard(ctx, total, s.authorizer)
		if err != nil {
			return nil, cardError(err)
		}
		return p, nil

	case pos.MethodSplit:
		tenders := make([]pos.Tender, len(req.Tenders))
		for i, t := range req.Tenders {
			tenders[i] = pos.Tender{Method: pos.Method(t.Method), Amount: t.Amount, Reference: strings.TrimSpace(t.Reference)}
		}
		split, err := pos.ResolveSplit(total, tenders)
		if err != nil {
			return nil, err
		}
		if !s.acceptCardRefs {
			for _, t := range split.Tenders {
				if t.Method == pos.MethodCard && t.Reference != "" {
					return nil, errClientCardRef
				}
			}
		}
		for i := range split.Tenders {
			t := &split.Tenders[i]
			if t.Method != pos.MethodCard || t.Reference != "" {
				continue
			}
			ref, err := s.authorizer.Authorize(ctx, t.Amount)
			if err != nil {
				return nil, cardError(err)
			}
			t.Reference = ref
		}
		return split, nil

	default:
		return nil, apierror.Validation("unknown payment method %q", req.Method)
	}
}

var errClientCardRef = apierror.Validation("card references are issued by the register terminal, not the client")

func cardError(err error) error {
	var domain *apierror.Error
	if errors.As(err, &domain) {
		return err
	}
	return apierror.IncompletePayment("card authorization failed: %v", err)
}

// ── CompleteCheckout ──────────────────────────────────────────────────────────
// Preconditions fail fast with no writes. After the order row is committed
// the remaining steps are best effort:
//   1. persist order (failure aborts)
//   2. decrement inventory
//   3. session aggregates + ledger SALE entry (one transaction)
//   4. enqueue receipt
// Each failed step is logged and returned as a warning; none undoes the order.

func (s *checkoutService) CompleteCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if in.Session == nil || !in.Session.IsOpen() {
		return nil, apierror.SessionClosed("session is closed, open a new session")
	}
	if in.Cart == nil || in.Cart.IsEmpty() {
		return nil, apierror.EmptyCart("cart is empty")
	}
	totals := in.Cart.Totals(in.TaxRate)
	if in.Payment == nil || !in.Payment.IsComplete(totals.Total) {
		return nil, apierror.PaymentIncomplete("payment does not cover total %s", totals.Total)
	}

	n, err := s.orders.NextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}
	order := buildOrder(in, totals)
	order.OrderNumber = formatNumber("ORD", n)

	if err := s.orders.Create(ctx, order); err != nil {
		if in.IdempotencyKey != "" && errors.Is(err, apierror.ErrConflict) {
			if existing, ferr := s.orders.FindByIdempotencyKey(ctx, in.IdempotencyKey); ferr == nil {
				return &CheckoutResult{Order: existing, Duplicate: true}, nil
			}
		}
		log.Error().Err(err).Str("session_id", in.Session.ID.String()).Msg("checkout: failed to persist order")
		return nil, err
	}

	res := &CheckoutResult{Order: order}
	warn := func(step string, err error) {
		log.Error().Err(err).
			Str("order_id", order.ID.String()).
			Str("session_id", in.Session.ID.String()).
			Str("step", step).
			Msg("checkout: post-commit step failed")
		res.Warnings = append(res.Warnings, dto.CheckoutWarning{Step: step, Error: apierror.Message(err)})
	}

	if err := s.inventory.DecrementForOrder(ctx, order); err != nil {
		warn(StepInventory, err)
	}
	if err := s.sessions.RecordSale(ctx, in.Session, order); err != nil {
		warn(StepSession, err)
	}
	if s.receipts != nil {
		email := ""
		if order.CustomerEmail != nil {
			email = *order.CustomerEmail
		}
		if err := s.receipts.EnqueueReceipt(ctx, order.ID, email); err != nil {
			warn(StepReceipt, err)
		}
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("session_id", in.Session.ID.String()).
		Str("total", order.Total.String()).
		Str("method", string(order.PaymentMethod)).
		Int("warnings", len(res.Warnings)).
		Msg("checkout completed")
	return res, nil
}

// buildOrder freezes the cart and payment into an order. Lines are copied so
// later cart mutations cannot reach the order.
func buildOrder(in CheckoutInput, totals pos.Totals) *model.Order {
	order := &model.Order{
		ID:             uuid.New(),
		SessionID:      in.Session.ID,
		RegisterID:     in.Session.RegisterID,
		LocationID:     in.Session.LocationID,
		VendorID:       in.Session.VendorID,
		CashierID:      in.CashierID,
		IdempotencyKey: strPtr(in.IdempotencyKey),
		Subtotal:       totals.Subtotal,
		DiscountTotal:  totals.Discount,
		TaxRate:        in.TaxRate,
		TaxAmount:      totals.Tax,
		Total:          totals.Total,
		PaymentMethod:  in.Payment.Method(),
		CustomerEmail:  strPtr(in.CustomerEmail),
		CreatedAt:      time.Now().UTC(),
	}

	for i, l := range in.Cart.Lines() {
		order.Lines = append(order.Lines, model.OrderLine{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Position:       i,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			LineTotal:      l.LineTotal,
			OriginalPrice:  l.OriginalPrice,
			Discount:       l.Discount,
			PromotionLabel: strPtr(l.PromotionLabel),
		})
	}

	switch p := in.Payment.(type) {
	case pos.CashPayment:
		tendered, change := p.Tendered, p.Change
		order.CashTendered = &tendered
		order.ChangeGiven = &change
	case pos.CardPayment:
		order.AuthorizationRef = strPtr(p.AuthorizationRef)
	case pos.SplitPayment:
		for i, t := range p.Tenders {
			order.Tenders = append(order.Tenders, model.OrderTender{
				ID:        uuid.New(),
				OrderID:   order.ID,
				Position:  i,
				Method:    t.Method,
				Amount:    t.Amount,
				Reference: strPtr(t.Reference),
			})
		}
	}
	return order
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *checkoutService) GetOrder(ctx context.Context, vendorID, id uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.VendorID != vendorID {
		return nil, apierror.NotFound("order not found")
	}
	status := ""
	sync, err := s.orders.FindInventorySync(ctx, id)
	switch {
	case err == nil:
		status = sync.Status
	case !errors.Is(err, apierror.ErrNotFound):
		return nil, err
	}
	resp := toOrderResponse(order)
	resp.InventoryStatus = status
	return resp, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, vendorID uuid.UUID, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	filter.VendorID = vendorID
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.OrderResponse, len(orders))
	for i := range orders {
		data[i] = *toOrderResponse(&orders[i])
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return &dto.OrderListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func toCheckoutResponse(o *model.Order, warnings []dto.CheckoutWarning, duplicate bool) *dto.CheckoutResponse {
	resp := &dto.CheckoutResponse{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		SessionID:     o.SessionID,
		Subtotal:      o.Subtotal,
		Discount:      o.DiscountTotal,
		Tax:           o.TaxAmount,
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		CashTendered:  o.CashTendered,
		ChangeGiven:   o.ChangeGiven,
		Duplicate:     duplicate,
		Warnings:      warnings,
		CreatedAt:     o.CreatedAt,
	}
	if o.AuthorizationRef != nil {
		resp.AuthorizationRef = *o.AuthorizationRef
	}
	for _, t := range o.Tenders {
		tr := dto.TenderResponse{Method: string(t.Method), Amount: t.Amount}
		if t.Reference != nil {
			tr.Reference = *t.Reference
		}
		resp.Tenders = append(resp.Tenders, tr)
	}
	return resp
}

func toOrderResponse(o *model.Order) *dto.OrderResponse {
	resp := &dto.OrderResponse{
		CheckoutResponse: *toCheckoutResponse(o, nil, false),
		TaxRate:          o.TaxRate,
		Lines:            make([]dto.OrderLineResponse, len(o.Lines)),
	}
	for i, l := range o.Lines {
		resp.Lines[i] = dto.OrderLineResponse{
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			LineTotal:      l.LineTotal,
			OriginalPrice:  l.OriginalPrice,
			Discount:       l.Discount,
			PromotionLabel: l.PromotionLabel,
		}
	}
	return resp
}
