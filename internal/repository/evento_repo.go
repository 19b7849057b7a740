package repository

import (
	"context"

	"bancas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventoRepository interface {
	Create(ctx context.Context, e *model.EventoPago) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]model.EventoPago, error)
}

type eventoRepo struct{ db *gorm.DB }

func NewEventoRepository(db *gorm.DB) EventoRepository { return &eventoRepo{db: db} }

func (r *eventoRepo) Create(ctx context.Context, e *model.EventoPago) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *eventoRepo) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]model.EventoPago, error) {
	var eventos []model.EventoPago
	err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("ocurrido_en ASC").Find(&eventos).Error
	return eventos, err
}
