package repository

import (
	"context"
	"time"

	"bancas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SorteoRepository interface {
	Create(ctx context.Context, s *model.Sorteo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sorteo, error)
	Update(ctx context.Context, s *model.Sorteo) error
	// CloseDue moves every OPEN sorteo scheduled at or before now to CLOSED.
	CloseDue(ctx context.Context, now time.Time) (int64, error)
}

type sorteoRepo struct{ db *gorm.DB }

func NewSorteoRepository(db *gorm.DB) SorteoRepository { return &sorteoRepo{db: db} }

func (r *sorteoRepo) Create(ctx context.Context, s *model.Sorteo) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sorteoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sorteo, error) {
	var s model.Sorteo
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *sorteoRepo) Update(ctx context.Context, s *model.Sorteo) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *sorteoRepo) CloseDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Sorteo{}).
		Where("status = ? AND scheduled_at <= ?", model.SorteoOpen, now).
		Updates(map[string]interface{}{"status": model.SorteoClosed, "updated_at": now})
	return res.RowsAffected, res.Error
}
