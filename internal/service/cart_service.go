package service

import (
	"context"
	"sync"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/pos"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStore holds the working cart of each open session in process memory.
// Carts do not survive a restart.
type CartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*pos.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[uuid.UUID]*pos.Cart)}
}

// With runs fn on the session's cart under the store lock, creating the cart
// on first use.
func (s *CartStore) With(sessionID uuid.UUID, fn func(c *pos.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[sessionID]
	if !ok {
		c = pos.NewCart()
		s.carts[sessionID] = c
	}
	return fn(c)
}

// Snapshot returns a copy of the session's cart, or an empty cart.
func (s *CartStore) Snapshot(sessionID uuid.UUID) *pos.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := pos.NewCart()
	if c, ok := s.carts[sessionID]; ok {
		for _, l := range c.Lines() {
			out.Restore(l)
		}
	}
	return out
}

// Drop forgets the session's cart.
func (s *CartStore) Drop(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}

// CartService exposes the session cart over the API. Every mutation requires
// the session to be OPEN.
type CartService interface {
	Get(ctx context.Context, vendorID, sessionID uuid.UUID) (*dto.CartResponse, error)
	AddItem(ctx context.Context, vendorID, sessionID uuid.UUID, req dto.AddCartItemRequest) (*dto.CartResponse, error)
	UpdateQuantity(ctx context.Context, vendorID, sessionID, productID uuid.UUID, qty decimal.Decimal) (*dto.CartResponse, error)
	RemoveItem(ctx context.Context, vendorID, sessionID, productID uuid.UUID) (*dto.CartResponse, error)
	Clear(ctx context.Context, vendorID, sessionID uuid.UUID) (*dto.CartResponse, error)
}

type cartService struct {
	store    *CartStore
	sessions SessionService
	products repository.ProductRepository
	taxes    *TaxRates
}

func NewCartService(store *CartStore, sessions SessionService, products repository.ProductRepository, taxes *TaxRates) CartService {
	return &cartService{store: store, sessions: sessions, products: products, taxes: taxes}
}

func (s *cartService) Get(ctx context.Context, vendorID, sessionID uuid.UUID) (*dto.CartResponse, error) {
	session, err := s.sessions.RequireOpen(ctx, vendorID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, session, s.store.Snapshot(sessionID), false)
}

func (s *cartService) AddItem(ctx context.Context, vendorID, sessionID uuid.UUID, req dto.AddCartItemRequest) (*dto.CartResponse, error) {
	session, err := s.sessions.RequireOpen(ctx, vendorID, sessionID)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active || product.VendorID != session.VendorID {
		return nil, apierror.Validation("product %s is not available", product.Name)
	}

	var override *pos.PriceOverride
	if req.PriceOverride != nil {
		override = &pos.PriceOverride{UnitPrice: *req.PriceOverride, Label: req.PromotionLabel}
	}

	clamped := false
	var snapshot *pos.Cart
	err = s.store.With(sessionID, func(c *pos.Cart) error {
		qty := req.Quantity
		if product.TrackStock {
			// Stock clamp: never put more in the cart than is on hand.
			available := product.StockQuantity.Sub(c.Quantity(product.ID))
			if !available.IsPositive() {
				return apierror.Validation("%s is out of stock", product.Name)
			}
			if qty.GreaterThan(available) {
				qty = available
				clamped = true
			}
		}
		if err := c.AddItem(toPosProduct(product), qty, override); err != nil {
			return err
		}
		snapshot = cloneCart(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, session, snapshot, clamped)
}

func (s *cartService) UpdateQuantity(ctx context.Context, vendorID, sessionID, productID uuid.UUID, qty decimal.Decimal) (*dto.CartResponse, error) {
	session, err := s.sessions.RequireOpen(ctx, vendorID, sessionID)
	if err != nil {
		return nil, err
	}

	clamped := false
	if qty.IsPositive() {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if product.TrackStock && qty.GreaterThan(product.StockQuantity) {
			qty = product.StockQuantity
			clamped = true
		}
	}

	var snapshot *pos.Cart
	_ = s.store.With(sessionID, func(c *pos.Cart) error {
		c.UpdateQuantity(productID, qty)
		snapshot = cloneCart(c)
		return nil
	})
	return s.respond(ctx, session, snapshot, clamped)
}

func (s *cartService) RemoveItem(ctx context.Context, vendorID, sessionID, productID uuid.UUID) (*dto.CartResponse, error) {
	session, err := s.sessions.RequireOpen(ctx, vendorID, sessionID)
	if err != nil {
		return nil, err
	}
	var snapshot *pos.Cart
	_ = s.store.With(sessionID, func(c *pos.Cart) error {
		c.RemoveItem(productID)
		snapshot = cloneCart(c)
		return nil
	})
	return s.respond(ctx, session, snapshot, false)
}

func (s *cartService) Clear(ctx context.Context, vendorID, sessionID uuid.UUID) (*dto.CartResponse, error) {
	session, err := s.sessions.RequireOpen(ctx, vendorID, sessionID)
	if err != nil {
		return nil, err
	}
	s.store.Drop(sessionID)
	return s.respond(ctx, session, pos.NewCart(), false)
}

func (s *cartService) respond(ctx context.Context, session *model.RegisterSession, c *pos.Cart, clamped bool) (*dto.CartResponse, error) {
	rate, err := s.taxes.For(ctx, session.LocationID)
	if err != nil {
		return nil, err
	}
	totals := c.Totals(rate)
	lines := c.Lines()
	resp := &dto.CartResponse{
		SessionID: session.ID,
		Lines:     make([]dto.CartLineResponse, len(lines)),
		Subtotal:  totals.Subtotal,
		Discount:  totals.Discount,
		TaxRate:   rate,
		Tax:       totals.Tax,
		Total:     totals.Total,
		Clamped:   clamped,
	}
	for i, l := range lines {
		resp.Lines[i] = dto.CartLineResponse{
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
	return resp, nil
}

func toPosProduct(p *model.Product) pos.Product {
	return pos.Product{ID: p.ID, Name: p.Name, UnitPrice: p.UnitPrice}
}

func cloneCart(c *pos.Cart) *pos.Cart {
	out := pos.NewCart()
	for _, l := range c.Lines() {
		out.Restore(l)
	}
	return out
}
