package repository

import (
	"context"

	"github.com/floradistro/websitev2-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error)
	Create(ctx context.Context, l *model.Location) error
}

type locationRepo struct{ db *gorm.DB }

func NewLocationRepository(db *gorm.DB) LocationRepository { return &locationRepo{db: db} }

func (r *locationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, translate(err, "location", "find location")
	}
	return &l, nil
}

func (r *locationRepo) Create(ctx context.Context, l *model.Location) error {
	return translate(r.db.WithContext(ctx).Create(l).Error, "location", "create location")
}
