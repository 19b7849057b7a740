package repository

import (
	"context"
	"time"

	"bancas/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EvaluacionRepository stores the evaluated results of a sorteo: winner
// flags and payouts per jugada, ticket aggregates and the EVALUATED status,
// all inside one transaction.
type EvaluacionRepository interface {
	DB() *gorm.DB
	FindSorteoForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sorteo, error)
	// ListTicketsTx returns the sorteo's tickets with their jugadas.
	ListTicketsTx(ctx context.Context, tx *gorm.DB, sorteoID uuid.UUID) ([]model.Ticket, error)
	SaveTx(ctx context.Context, tx *gorm.DB, sorteo *model.Sorteo, tickets []model.Ticket) error
}

type evaluacionRepo struct{ db *gorm.DB }

func NewEvaluacionRepository(db *gorm.DB) EvaluacionRepository { return &evaluacionRepo{db: db} }

func (r *evaluacionRepo) DB() *gorm.DB { return r.db }

func (r *evaluacionRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *evaluacionRepo) FindSorteoForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sorteo, error) {
	var s model.Sorteo
	err := r.conn(ctx, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *evaluacionRepo) ListTicketsTx(ctx context.Context, tx *gorm.DB, sorteoID uuid.UUID) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := r.conn(ctx, tx).
		Preload("Jugadas").
		Where("sorteo_id = ?", sorteoID).
		Order("created_at ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *evaluacionRepo) SaveTx(ctx context.Context, tx *gorm.DB, sorteo *model.Sorteo, tickets []model.Ticket) error {
	db := r.conn(ctx, tx)
	for i := range tickets {
		t := &tickets[i]
		for _, j := range t.Jugadas {
			err := db.Model(&model.Jugada{}).Where("id = ?", j.ID).
				Updates(map[string]interface{}{
					"is_winner": j.IsWinner != nil && *j.IsWinner,
					"payout":    nullableDecimal(j.Payout),
				}).Error
			if err != nil {
				return err
			}
		}
		err := db.Model(&model.Ticket{}).Where("id = ?", t.ID).
			Updates(map[string]interface{}{
				"is_winner":        t.IsWinner,
				"total_payout":     nullableDecimal(t.TotalPayout),
				"total_paid":       nullableDecimal(t.TotalPaid),
				"remaining_amount": nullableDecimal(t.RemainingAmount),
			}).Error
		if err != nil {
			return err
		}
	}

	sorteo.UpdatedAt = time.Now()
	return db.Model(&model.Sorteo{}).Where("id = ?", sorteo.ID).
		Updates(map[string]interface{}{"status": sorteo.Status, "updated_at": sorteo.UpdatedAt}).Error
}

// nullableDecimal keeps a nil pointer out of the driver as a typed nil.
func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}
