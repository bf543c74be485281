package service

import (
	"context"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxInventoryAttempts bounds how often a failed sale decrement is tried,
// the first attempt at checkout included.
const MaxInventoryAttempts = 6

// InventoryRetryBackoff is the wait before retry number attempt (1-based):
// 30s, 1m, 2m, 4m … capped at 30m.
func InventoryRetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 30 * time.Second << uint(attempt-1)
	if d > 30*time.Minute || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

type InventoryService interface {
	// DecrementForOrder removes each line's quantity from stock in one
	// transaction and records the outcome in inventory_syncs.
	DecrementForOrder(ctx context.Context, order *model.Order) error
	// RetryPending retries failed decrements that are due and returns the
	// ones that ran out of attempts.
	RetryPending(ctx context.Context, now time.Time, limit int) ([]model.InventorySync, error)
	Adjust(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.InventoryMovementResponse, error)
	Movements(ctx context.Context, productID uuid.UUID, limit int) ([]dto.InventoryMovementResponse, error)
}

type inventoryService struct {
	products  repository.ProductRepository
	movements repository.InventoryMovementRepository
	orders    repository.OrderRepository
}

func NewInventoryService(products repository.ProductRepository, movements repository.InventoryMovementRepository, orders repository.OrderRepository) InventoryService {
	return &inventoryService{products: products, movements: movements, orders: orders}
}

func (s *inventoryService) DecrementForOrder(ctx context.Context, order *model.Order) error {
	applyErr := s.applyOrder(ctx, order)

	sync := &model.InventorySync{OrderID: order.ID, Status: model.InventoryApplied, Attempts: 1}
	if applyErr != nil {
		next := time.Now().Add(InventoryRetryBackoff(1))
		msg := applyErr.Error()
		sync.Status = model.InventoryFailed
		sync.NextRetryAt = &next
		sync.LastError = &msg
	}
	if err := s.orders.SaveInventorySync(ctx, sync); err != nil {
		log.Error().Err(err).Str("order_id", order.ID.String()).Msg("inventory: failed to record sync status")
	}
	return applyErr
}

func (s *inventoryService) applyOrder(ctx context.Context, order *model.Order) error {
	return runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		for _, line := range order.Lines {
			p, err := s.products.FindForUpdateTx(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			if !p.TrackStock {
				continue
			}
			after := p.StockQuantity.Sub(line.Quantity)
			if after.IsNegative() {
				// The sale already happened; record the oversell instead of refusing it.
				log.Warn().
					Str("order_id", order.ID.String()).
					Str("product_id", p.ID.String()).
					Str("stock_after", after.String()).
					Msg("inventory: product oversold")
			}
			if err := s.products.UpdateStockTx(ctx, tx, p.ID, line.Quantity.Neg()); err != nil {
				return err
			}
			orderID := order.ID
			mov := &model.InventoryMovement{
				ID:          uuid.New(),
				ProductID:   p.ID,
				Type:        model.InventorySale,
				Quantity:    line.Quantity.Neg(),
				StockBefore: p.StockQuantity,
				StockAfter:  after,
				Reason:      "order " + order.OrderNumber,
				ReferenceID: &orderID,
			}
			if err := s.movements.CreateTx(ctx, tx, mov); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *inventoryService) RetryPending(ctx context.Context, now time.Time, limit int) ([]model.InventorySync, error) {
	due, err := s.orders.ListInventoryRetries(ctx, now, limit)
	if err != nil {
		return nil, err
	}

	var exhausted []model.InventorySync
	for i := range due {
		sync := due[i]
		sync.Attempts++

		order, err := s.orders.FindByID(ctx, sync.OrderID)
		if err == nil {
			err = s.applyOrder(ctx, order)
		}

		switch {
		case err == nil:
			sync.Status = model.InventoryApplied
			sync.NextRetryAt = nil
			sync.LastError = nil
			log.Info().Str("order_id", sync.OrderID.String()).Int("attempts", sync.Attempts).Msg("inventory: decrement applied on retry")
		case sync.Attempts >= MaxInventoryAttempts:
			msg := err.Error()
			sync.Status = model.InventoryDead
			sync.NextRetryAt = nil
			sync.LastError = &msg
			exhausted = append(exhausted, sync)
			log.Error().Err(err).Str("order_id", sync.OrderID.String()).Int("attempts", sync.Attempts).Msg("inventory: retries exhausted")
		default:
			msg := err.Error()
			next := now.Add(InventoryRetryBackoff(sync.Attempts))
			sync.Status = model.InventoryFailed
			sync.NextRetryAt = &next
			sync.LastError = &msg
			log.Warn().Err(err).Str("order_id", sync.OrderID.String()).Time("next_retry_at", next).Msg("inventory: retry failed")
		}

		if err := s.orders.SaveInventorySync(ctx, &sync); err != nil {
			log.Error().Err(err).Str("order_id", sync.OrderID.String()).Msg("inventory: failed to record sync status")
		}
	}
	return exhausted, nil
}

func (s *inventoryService) Adjust(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.InventoryMovementResponse, error) {
	if req.Delta.IsZero() {
		return nil, apierror.Validation("delta must not be zero")
	}

	var mov *model.InventoryMovement
	err := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		p, err := s.products.FindForUpdateTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		after := p.StockQuantity.Add(req.Delta)
		if after.IsNegative() {
			return apierror.Validation("stock for %s cannot go below zero (on hand %s)", p.Name, p.StockQuantity)
		}
		if err := s.products.UpdateStockTx(ctx, tx, p.ID, req.Delta); err != nil {
			return err
		}
		typ := model.InventoryAdjustment
		if req.Delta.IsPositive() {
			typ = model.InventoryRestock
		}
		mov = &model.InventoryMovement{
			ID:          uuid.New(),
			ProductID:   p.ID,
			Type:        typ,
			Quantity:    req.Delta,
			StockBefore: p.StockQuantity,
			StockAfter:  after,
			Reason:      req.Reason,
			CreatedAt:   time.Now().UTC(),
		}
		return s.movements.CreateTx(ctx, tx, mov)
	})
	if err != nil {
		return nil, err
	}
	resp := toInventoryMovementResponse(*mov)
	return &resp, nil
}

func (s *inventoryService) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]dto.InventoryMovementResponse, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	movs, err := s.movements.ListByProduct(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InventoryMovementResponse, len(movs))
	for i, m := range movs {
		out[i] = toInventoryMovementResponse(m)
	}
	return out, nil
}

func toInventoryMovementResponse(m model.InventoryMovement) dto.InventoryMovementResponse {
	return dto.InventoryMovementResponse{
		ID:          m.ID,
		ProductID:   m.ProductID,
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt,
	}
}

