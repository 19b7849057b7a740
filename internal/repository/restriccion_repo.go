package repository

import (
	"context"

	"bancas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RestriccionRepository interface {
	Create(ctx context.Context, r *model.RestrictionRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RestrictionRule, error)
	Replace(ctx context.Context, r *model.RestrictionRule) error
	List(ctx context.Context) ([]model.RestrictionRule, error)
	// ListActivasPorScope returns active rules touching any of the given
	// scopes, in creation order. uuid.Nil scopes are ignored.
	ListActivasPorScope(ctx context.Context, userID, ventanaID, bancaID uuid.UUID) ([]model.RestrictionRule, error)
}

type restriccionRepo struct{ db *gorm.DB }

func NewRestriccionRepository(db *gorm.DB) RestriccionRepository { return &restriccionRepo{db: db} }

func (r *restriccionRepo) Create(ctx context.Context, rule *model.RestrictionRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *restriccionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RestrictionRule, error) {
	var rule model.RestrictionRule
	err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error
	return &rule, err
}

// Replace overwrites every column: rules have no partial-update semantics.
func (r *restriccionRepo) Replace(ctx context.Context, rule *model.RestrictionRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *restriccionRepo) List(ctx context.Context) ([]model.RestrictionRule, error) {
	var rules []model.RestrictionRule
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rules).Error
	return rules, err
}

func (r *restriccionRepo) ListActivasPorScope(ctx context.Context, userID, ventanaID, bancaID uuid.UUID) ([]model.RestrictionRule, error) {
	var rules []model.RestrictionRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(r.db.Where("user_id = ?", userID).Or("ventana_id = ?", ventanaID).Or("banca_id = ?", bancaID)).
		Order("created_at ASC").
		Find(&rules).Error
	return rules, err
}
