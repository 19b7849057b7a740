package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bancas/internal/dto"
	"bancas/internal/engine"
	"bancas/internal/infra"
	"bancas/internal/metrics"
	"bancas/internal/model"
	"bancas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EventPublisher hands applied ledger mutations to the async audit trail.
type EventPublisher interface {
	PublishPagoEvento(ctx context.Context, evento model.EventoPago) error
}

type PagoService interface {
	Registrar(ctx context.Context, ticketID, actorID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.PagoResponse, error)
	Revertir(ctx context.Context, ticketID, actorID uuid.UUID, req dto.RevertirPagoRequest) (*dto.PagoResponse, error)
	Totales(ctx context.Context, ticketID uuid.UUID) (*dto.TotalesPagoResponse, error)
	Historial(ctx context.Context, ticketID uuid.UUID) (*dto.HistorialPagosResponse, error)
}

type pagoService struct {
	repo      repository.PagoRepository
	locker    infra.TicketLocker
	ledger    *engine.Ledger
	publisher EventPublisher
}

// NewPagoService wires the payment ledger. publisher may be nil.
func NewPagoService(repo repository.PagoRepository, locker infra.TicketLocker, ledger *engine.Ledger, publisher EventPublisher) PagoService {
	if ledger == nil {
		ledger = engine.NewLedger()
	}
	return &pagoService{repo: repo, locker: locker, ledger: ledger, publisher: publisher}
}

// lockWait bounds how long a request queues behind another payment on the
// same ticket.
const lockWait = 5 * time.Second

func lockKey(ticketID uuid.UUID) string { return "ticket:" + ticketID.String() }

func (s *pagoService) lock(ctx context.Context, ticketID uuid.UUID) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	unlock, err := s.locker.Lock(lctx, lockKey(ticketID))
	if err != nil {
		return nil, fmt.Errorf("bloqueo de ticket: %w", err)
	}
	return unlock, nil
}

// ── Registrar ─────────────────────────────────────────────────────────────────
// Per-ticket serialization is two layered: the locker keeps concurrent
// requests of this process (or of every process, with Redis) out of the
// critical section, and SELECT ... FOR UPDATE keeps the row consistent
// against anything else writing the ticket.

func (s *pagoService) Registrar(ctx context.Context, ticketID, actorID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.PagoResponse, error) {
	unlock, err := s.lock(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	in := engine.PaymentInput{
		AmountPaid:     req.AmountPaid,
		Method:         req.Method,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
		IsFinal:        req.IsFinal,
		PaidByID:       actorID,
	}

	var (
		ticket   *model.Ticket
		pago     *model.TicketPayment
		replayed bool
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindTicketForUpdate(ctx, tx, ticketID)
		if err != nil {
			return notFound(err, ErrTicketNoEncontrado)
		}
		p, rep, err := s.ledger.CreatePayment(t, in)
		if err != nil {
			return err
		}
		ticket, pago, replayed = t, p, rep
		if replayed {
			return nil
		}
		if err := s.repo.CreatePagoTx(ctx, tx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPagoConcurrente
			}
			return fmt.Errorf("insertar pago: %w", err)
		}
		return s.repo.UpdateTotalesTx(ctx, tx, t)
	})
	if txErr != nil {
		recordRejection(txErr)
		return nil, txErr
	}

	resp := buildPagoResponse(ticket, pago, replayed)
	if replayed {
		metrics.PagosReplay.Inc()
		log.Info().
			Str("ticket_id", ticketID.String()).
			Str("pago_id", pago.ID.String()).
			Str("idempotency_key", pago.IdempotencyKey).
			Msg("pago: replay de llave de idempotencia")
		return resp, nil
	}

	metrics.PagosRegistrados.Inc()
	log.Info().
		Str("ticket_id", ticketID.String()).
		Str("pago_id", pago.ID.String()).
		Str("monto", pago.AmountPaid.String()).
		Str("estado", string(resp.Estado)).
		Msg("pago: registrado")
	s.publish(ctx, model.EventoPagoRegistrado, ticket, pago, actorID, resp)
	return resp, nil
}

// ── Revertir ──────────────────────────────────────────────────────────────────

func (s *pagoService) Revertir(ctx context.Context, ticketID, actorID uuid.UUID, req dto.RevertirPagoRequest) (*dto.PagoResponse, error) {
	unlock, err := s.lock(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		ticket *model.Ticket
		pago   *model.TicketPayment
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindTicketForUpdate(ctx, tx, ticketID)
		if err != nil {
			return notFound(err, ErrTicketNoEncontrado)
		}
		p, err := s.ledger.ReversePayment(t, actorID, req.Reason)
		if err != nil {
			return err
		}
		ticket, pago = t, p
		if err := s.repo.UpdatePagoTx(ctx, tx, p); err != nil {
			return fmt.Errorf("revertir pago: %w", err)
		}
		return s.repo.UpdateTotalesTx(ctx, tx, t)
	})
	if txErr != nil {
		recordRejection(txErr)
		return nil, txErr
	}

	resp := buildPagoResponse(ticket, pago, false)
	metrics.PagosRevertidos.Inc()
	log.Info().
		Str("ticket_id", ticketID.String()).
		Str("pago_id", pago.ID.String()).
		Str("actor_id", actorID.String()).
		Msg("pago: revertido")
	s.publish(ctx, model.EventoPagoRevertido, ticket, pago, actorID, resp)
	return resp, nil
}

func (s *pagoService) Totales(ctx context.Context, ticketID uuid.UUID) (*dto.TotalesPagoResponse, error) {
	t, err := s.repo.FindTicket(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, ErrTicketNoEncontrado)
	}
	return &dto.TotalesPagoResponse{
		TicketID: t.ID.String(),
		Totales:  engine.ComputePaymentTotals(t),
		Estado:   engine.SettlementStatusOf(t),
	}, nil
}

// Historial lists every payment, reversed ones included, oldest first.
func (s *pagoService) Historial(ctx context.Context, ticketID uuid.UUID) (*dto.HistorialPagosResponse, error) {
	t, err := s.repo.FindTicket(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, ErrTicketNoEncontrado)
	}
	pagos := t.Payments
	if pagos == nil {
		pagos = []model.TicketPayment{}
	}
	return &dto.HistorialPagosResponse{TicketID: t.ID.String(), Pagos: pagos}, nil
}

// publish never fails the request: the ledger row is already committed.
func (s *pagoService) publish(ctx context.Context, tipo string, t *model.Ticket, p *model.TicketPayment, actorID uuid.UUID, resp *dto.PagoResponse) {
	if s.publisher == nil {
		return
	}
	evento := model.EventoPago{
		ID:              uuid.New(),
		TicketID:        t.ID,
		PagoID:          p.ID,
		Tipo:            tipo,
		Monto:           p.AmountPaid,
		ActorID:         actorID,
		Estado:          string(resp.Estado),
		RemainingAmount: resp.Totales.RemainingAmount,
		OcurridoEn:      p.PaymentDate,
	}
	if tipo == model.EventoPagoRevertido && p.ReversedAt != nil {
		evento.OcurridoEn = *p.ReversedAt
	}
	if err := s.publisher.PublishPagoEvento(ctx, evento); err != nil {
		log.Warn().Err(err).
			Str("ticket_id", t.ID.String()).
			Str("tipo", tipo).
			Msg("pago: evento no publicado")
	}
}

func buildPagoResponse(t *model.Ticket, p *model.TicketPayment, replayed bool) *dto.PagoResponse {
	return &dto.PagoResponse{
		Pago:     *p,
		Totales:  engine.ComputePaymentTotals(t),
		Estado:   engine.SettlementStatusOf(t),
		Replayed: replayed,
	}
}

func recordRejection(err error) {
	var pr *engine.PaymentRejectedError
	if errors.As(err, &pr) {
		metrics.PagosRechazados.WithLabelValues(string(pr.Code)).Inc()
		return
	}
	var rr *engine.ReversalRejectedError
	if errors.As(err, &rr) {
		metrics.PagosRechazados.WithLabelValues(string(rr.Code)).Inc()
	}
}
