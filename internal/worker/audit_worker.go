package worker

// audit_worker.go
// Writes the payment audit trail from QueuePagoEventos.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bancas/internal/model"
	"bancas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// errPermanent marks payloads that no retry can fix.
var errPermanent = errors.New("evento inválido")

type AuditWorker struct {
	repo repository.EventoRepository
}

func NewAuditWorker(repo repository.EventoRepository) *AuditWorker {
	return &AuditWorker{repo: repo}
}

// Process stores one EventoPago. The event ID is assigned by the publisher,
// so a redelivered job hits the primary key and is treated as done.
func (w *AuditWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var evento model.EventoPago
	if err := json.Unmarshal(raw, &evento); err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	if evento.ID == uuid.Nil || evento.TicketID == uuid.Nil || evento.PagoID == uuid.Nil {
		return fmt.Errorf("%w: faltan identificadores", errPermanent)
	}

	if err := w.repo.Create(ctx, &evento); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	log.Debug().
		Str("evento_id", evento.ID.String()).
		Str("ticket_id", evento.TicketID.String()).
		Str("tipo", evento.Tipo).
		Msg("audit_worker: evento registrado")
	return nil
}
