package repository

import (
	"context"
	"time"

	"bancas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PoliticaRepository interface {
	Find(ctx context.Context, actorType model.ActorType, actorID uuid.UUID) (*model.PoliticaComision, error)
	// Upsert replaces the actor's document wholesale.
	Upsert(ctx context.Context, p *model.PoliticaComision) error
}

type politicaRepo struct{ db *gorm.DB }

func NewPoliticaRepository(db *gorm.DB) PoliticaRepository { return &politicaRepo{db: db} }

func (r *politicaRepo) Find(ctx context.Context, actorType model.ActorType, actorID uuid.UUID) (*model.PoliticaComision, error) {
	var p model.PoliticaComision
	err := r.db.WithContext(ctx).
		Where("actor_type = ? AND actor_id = ?", actorType, actorID).
		First(&p).Error
	return &p, err
}

func (r *politicaRepo) Upsert(ctx context.Context, p *model.PoliticaComision) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_type"}, {Name: "actor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"documento", "updated_by", "updated_at"}),
	}).Create(p).Error
}
