package repository

import (
	"context"

	"bancas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PagoRepository persists the payment ledger. The *Tx methods run on the
// given transaction, or on the base connection when tx is nil.
type PagoRepository interface {
	DB() *gorm.DB
	// FindTicketForUpdate loads the ticket with jugadas and payments and holds
	// a row lock on it until tx ends.
	FindTicketForUpdate(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID) (*model.Ticket, error)
	FindTicket(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error)
	CreatePagoTx(ctx context.Context, tx *gorm.DB, p *model.TicketPayment) error
	UpdatePagoTx(ctx context.Context, tx *gorm.DB, p *model.TicketPayment) error
	UpdateTotalesTx(ctx context.Context, tx *gorm.DB, t *model.Ticket) error
}

type pagoRepo struct{ db *gorm.DB }

func NewPagoRepository(db *gorm.DB) PagoRepository { return &pagoRepo{db: db} }

func (r *pagoRepo) DB() *gorm.DB { return r.db }

func (r *pagoRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *pagoRepo) FindTicketForUpdate(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID) (*model.Ticket, error) {
	var t model.Ticket
	err := r.conn(ctx, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Jugadas").
		Preload("Payments", orderPayments).
		First(&t, "id = ?", ticketID).Error
	return &t, err
}

func (r *pagoRepo) FindTicket(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error) {
	return NewTicketRepository(r.db).FindByID(ctx, ticketID)
}

func (r *pagoRepo) CreatePagoTx(ctx context.Context, tx *gorm.DB, p *model.TicketPayment) error {
	return r.conn(ctx, tx).Create(p).Error
}

// UpdatePagoTx only touches the reversal columns; the rest of a payment row
// is immutable.
func (r *pagoRepo) UpdatePagoTx(ctx context.Context, tx *gorm.DB, p *model.TicketPayment) error {
	return r.conn(ctx, tx).Model(&model.TicketPayment{}).
		Where("id = ? AND is_reversed = ?", p.ID, false).
		Updates(map[string]interface{}{
			"is_reversed":     p.IsReversed,
			"reversed_at":     p.ReversedAt,
			"reversed_by":     p.ReversedBy,
			"reversal_reason": p.ReversalReason,
		}).Error
}

func (r *pagoRepo) UpdateTotalesTx(ctx context.Context, tx *gorm.DB, t *model.Ticket) error {
	return r.conn(ctx, tx).Model(&model.Ticket{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"total_payout":     t.TotalPayout,
			"total_paid":       t.TotalPaid,
			"remaining_amount": t.RemainingAmount,
		}).Error
}
