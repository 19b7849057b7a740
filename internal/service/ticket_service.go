package service

import (
	"context"
	"fmt"
	"time"

	"bancas/internal/dto"
	"bancas/internal/engine"
	"bancas/internal/model"
	"bancas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type TicketService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearTicketRequest) (*dto.TicketResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.TicketResponse, error)
}

type ticketService struct {
	repo           repository.TicketRepository
	sorteoRepo     repository.SorteoRepository
	restriccionRep repository.RestriccionRepository
	defaultCutoff  int
	now            func() time.Time
}

func NewTicketService(
	repo repository.TicketRepository,
	sorteoRepo repository.SorteoRepository,
	restriccionRepo repository.RestriccionRepository,
	defaultCutoff int,
) TicketService {
	return &ticketService{
		repo:           repo,
		sorteoRepo:     sorteoRepo,
		restriccionRep: restriccionRepo,
		defaultCutoff:  defaultCutoff,
		now:            time.Now,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
//   1. Sorteo must exist and be OPEN, with its draw still ahead
//   2. Resolve the seller's cutoff (vendedor > ventana > banca > default)
//   3. Refuse inside the no-sale window
//   4. Validate the whole jugada draft in one batch
//   5. Persist ticket + jugadas

func (s *ticketService) Crear(ctx context.Context, actor Actor, req dto.CrearTicketRequest) (*dto.TicketResponse, error) {
	sorteoID, err := uuid.Parse(req.SorteoID)
	if err != nil {
		return nil, fmt.Errorf("sorteoId inválido: %w", err)
	}
	vendedorID := actor.UserID
	if req.VendedorID != nil {
		if vendedorID, err = uuid.Parse(*req.VendedorID); err != nil {
			return nil, fmt.Errorf("vendedorId inválido: %w", err)
		}
	}

	sorteo, err := s.sorteoRepo.FindByID(ctx, sorteoID)
	if err != nil {
		return nil, notFound(err, ErrSorteoNoEncontrado)
	}
	if sorteo.Status != model.SorteoOpen {
		return nil, ErrSorteoNoAbierto
	}

	now := s.now()
	if !sorteo.ScheduledAt.After(now) {
		return nil, &VentasCerradasError{Message: "Ventas cerradas: el sorteo ya inició"}
	}

	rules, err := s.restriccionRep.ListActivasPorScope(ctx, vendedorID, actor.VentanaID, actor.BancaID)
	if err != nil {
		return nil, fmt.Errorf("restricciones: %w", err)
	}
	cutoff := engine.ResolveCutoffMinutes(rules, vendedorID, actor.VentanaID, actor.BancaID, s.defaultCutoff)
	if decision := engine.SorteoCutoff(sorteo.ScheduledAt, now, cutoff); !decision.CanCreate {
		return nil, &VentasCerradasError{Message: decision.Message, CutoffMinutes: cutoff}
	}

	jugadas := make([]model.Jugada, len(req.Jugadas))
	total := decimal.Zero
	for i, j := range req.Jugadas {
		jugadas[i] = model.Jugada{
			ID:              uuid.New(),
			Type:            model.BetType(j.Type),
			Number:          j.Number,
			ReventadoNumber: j.ReventadoNumber,
			Amount:          j.Amount,
			MultiplierX:     j.MultiplierX,
		}
		total = total.Add(j.Amount)
	}
	if res := engine.ValidateJugadas(jugadas); !res.Valid {
		return nil, &ValidacionError{Result: res}
	}

	ticket := &model.Ticket{
		ID:          uuid.New(),
		SorteoID:    sorteo.ID,
		LoteriaID:   sorteo.LoteriaID,
		VendedorID:  vendedorID,
		VentanaID:   actor.VentanaID,
		BancaID:     actor.BancaID,
		TotalAmount: total,
		CreatedAt:   now,
		Jugadas:     jugadas,
	}
	for i := range ticket.Jugadas {
		ticket.Jugadas[i].TicketID = ticket.ID
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("crear ticket: %w", err)
	}

	log.Info().
		Str("ticket_id", ticket.ID.String()).
		Str("sorteo_id", sorteo.ID.String()).
		Int("jugadas", len(jugadas)).
		Str("total", total.String()).
		Msg("ticket: creado")
	return ticketToResponse(ticket), nil
}

func (s *ticketService) Obtener(ctx context.Context, id uuid.UUID) (*dto.TicketResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTicketNoEncontrado)
	}
	return ticketToResponse(t), nil
}

func ticketToResponse(t *model.Ticket) *dto.TicketResponse {
	if t.Payments == nil {
		t.Payments = []model.TicketPayment{}
	}
	return &dto.TicketResponse{Ticket: *t, Estado: string(engine.SettlementStatusOf(t))}
}
