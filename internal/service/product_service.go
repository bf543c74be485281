package service

import (
	"context"
	"strings"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProductService is the vendor catalog back office. All calls are scoped to
// the caller's vendor; another vendor's product reads as not found.
type ProductService interface {
	Create(ctx context.Context, vendorID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, vendorID, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, vendorID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, vendorID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

func (s *productService) Create(ctx context.Context, vendorID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if req.InitialStock.IsNegative() {
		return nil, apierror.Validation("initial stock cannot be negative")
	}
	unit := req.Unit
	if unit == "" {
		unit = "unit"
	}
	track := true
	if req.TrackStock != nil {
		track = *req.TrackStock
	}
	p := &model.Product{
		ID:            uuid.New(),
		VendorID:      vendorID,
		SKU:           strings.TrimSpace(req.SKU),
		Name:          strings.TrimSpace(req.Name),
		Category:      strings.TrimSpace(req.Category),
		UnitPrice:     req.UnitPrice,
		Unit:          unit,
		SoldByWeight:  req.SoldByWeight,
		TrackStock:    track,
		StockQuantity: req.InitialStock,
		Active:        true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("product_id", p.ID.String()).Str("sku", p.SKU).Msg("product created")
	return toProductResponse(p), nil
}

func (s *productService) Get(ctx context.Context, vendorID, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.find(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

func (s *productService) List(ctx context.Context, vendorID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	products, total, err := s.repo.List(ctx, vendorID, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductResponse, len(products))
	for i := range products {
		data[i] = *toProductResponse(&products[i])
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return &dto.ProductListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// Update edits catalog fields. Stock changes go through InventoryService.Adjust.
func (s *productService) Update(ctx context.Context, vendorID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.find(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return nil, apierror.Validation("unit price cannot be negative")
		}
		p.UnitPrice = *req.UnitPrice
	}
	if req.TrackStock != nil {
		p.TrackStock = *req.TrackStock
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

func (s *productService) find(ctx context.Context, vendorID, id uuid.UUID) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.VendorID != vendorID {
		return nil, apierror.NotFound("product not found")
	}
	return p, nil
}

func toProductResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:            p.ID,
		VendorID:      p.VendorID,
		SKU:           p.SKU,
		Name:          p.Name,
		Category:      p.Category,
		UnitPrice:     p.UnitPrice,
		Unit:          p.Unit,
		SoldByWeight:  p.SoldByWeight,
		TrackStock:    p.TrackStock,
		StockQuantity: p.StockQuantity,
		Active:        p.Active,
	}
}
