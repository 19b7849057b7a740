package repository

import (
	"context"

	"bancas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketRepository interface {
	Create(ctx context.Context, t *model.Ticket) error
	// FindByID loads the ticket with its jugadas and full payment history.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
}

type ticketRepo struct{ db *gorm.DB }

func NewTicketRepository(db *gorm.DB) TicketRepository { return &ticketRepo{db: db} }

func (r *ticketRepo) Create(ctx context.Context, t *model.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ticketRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var t model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Jugadas").
		Preload("Payments", orderPayments).
		First(&t, "id = ?", id).Error
	return &t, err
}

func orderPayments(db *gorm.DB) *gorm.DB {
	return db.Order("payment_date ASC")
}
