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
	"gorm.io/gorm"
)

type SorteoService interface {
	Crear(ctx context.Context, req dto.CrearSorteoRequest) (*model.Sorteo, error)
	Obtener(ctx context.Context, id uuid.UUID) (*model.Sorteo, error)
	Transicionar(ctx context.Context, id uuid.UUID, next model.SorteoStatus) (*model.Sorteo, error)
	Reprogramar(ctx context.Context, id uuid.UUID, at time.Time) (*model.Sorteo, error)
	// Evaluar records the evaluated results of a CLOSED sorteo and moves it
	// to EVALUATED. Jugadas without a result are losers.
	Evaluar(ctx context.Context, id uuid.UUID, resultados []ResultadoJugada) (*dto.EvaluacionResponse, error)
	// CerrarVencidos closes every OPEN sorteo whose draw time has passed.
	CerrarVencidos(ctx context.Context) (int64, error)
}

// ResultadoJugada is the outcome of one jugada as delivered by the
// evaluation process.
type ResultadoJugada struct {
	JugadaID uuid.UUID
	IsWinner bool
	Payout   *decimal.Decimal
}

type sorteoService struct {
	repo         repository.SorteoRepository
	evaluaciones repository.EvaluacionRepository
	now          func() time.Time
}

func NewSorteoService(repo repository.SorteoRepository, evaluaciones repository.EvaluacionRepository) SorteoService {
	return &sorteoService{repo: repo, evaluaciones: evaluaciones, now: time.Now}
}

func (s *sorteoService) Crear(ctx context.Context, req dto.CrearSorteoRequest) (*model.Sorteo, error) {
	loteriaID, err := uuid.Parse(req.LoteriaID)
	if err != nil {
		return nil, fmt.Errorf("loteriaId inválido: %w", err)
	}
	sorteo := &model.Sorteo{
		ID:          uuid.New(),
		LoteriaID:   loteriaID,
		ScheduledAt: req.ScheduledAt,
		Status:      model.SorteoScheduled,
	}
	if err := s.repo.Create(ctx, sorteo); err != nil {
		return nil, fmt.Errorf("crear sorteo: %w", err)
	}
	return sorteo, nil
}

func (s *sorteoService) Obtener(ctx context.Context, id uuid.UUID) (*model.Sorteo, error) {
	sorteo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrSorteoNoEncontrado)
	}
	return sorteo, nil
}

func (s *sorteoService) Transicionar(ctx context.Context, id uuid.UUID, next model.SorteoStatus) (*model.Sorteo, error) {
	sorteo, err := s.Obtener(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sorteo.Status.CanTransitionTo(next) {
		return nil, ErrTransicionInvalida
	}
	if next == model.SorteoEvaluated {
		return nil, ErrEvaluacionSinResultados
	}
	prev := sorteo.Status
	sorteo.Status = next
	if err := s.repo.Update(ctx, sorteo); err != nil {
		return nil, fmt.Errorf("actualizar sorteo: %w", err)
	}
	log.Info().
		Str("sorteo_id", id.String()).
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("sorteo: transicion")
	return sorteo, nil
}

func (s *sorteoService) Reprogramar(ctx context.Context, id uuid.UUID, at time.Time) (*model.Sorteo, error) {
	sorteo, err := s.Obtener(ctx, id)
	if err != nil {
		return nil, err
	}
	if sorteo.Status != model.SorteoScheduled {
		return nil, ErrSorteoInmutable
	}
	sorteo.ScheduledAt = at
	if err := s.repo.Update(ctx, sorteo); err != nil {
		return nil, fmt.Errorf("reprogramar sorteo: %w", err)
	}
	return sorteo, nil
}

func (s *sorteoService) CerrarVencidos(ctx context.Context) (int64, error) {
	return s.repo.CloseDue(ctx, s.now())
}

// ── Evaluar ───────────────────────────────────────────────────────────────────

func (s *sorteoService) Evaluar(ctx context.Context, id uuid.UUID, resultados []ResultadoJugada) (*dto.EvaluacionResponse, error) {
	resp := &dto.EvaluacionResponse{TotalPremios: decimal.Zero}

	err := runTx(ctx, s.evaluaciones.DB(), func(tx *gorm.DB) error {
		sorteo, err := s.evaluaciones.FindSorteoForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, ErrSorteoNoEncontrado)
		}
		if !sorteo.Status.CanTransitionTo(model.SorteoEvaluated) {
			return ErrTransicionInvalida
		}

		tickets, err := s.evaluaciones.ListTicketsTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("listar tickets: %w", err)
		}
		if res := aplicarResultados(tickets, resultados); !res.Valid {
			return &ValidacionError{Result: res}
		}

		sorteo.Status = model.SorteoEvaluated
		if err := s.evaluaciones.SaveTx(ctx, tx, sorteo, tickets); err != nil {
			return fmt.Errorf("guardar evaluacion: %w", err)
		}

		resp.Sorteo = *sorteo
		resp.TicketsEvaluados = len(tickets)
		for _, t := range tickets {
			if t.IsWinner {
				resp.TicketsGanadores++
				resp.TotalPremios = resp.TotalPremios.Add(*t.TotalPayout)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sorteo_id", id.String()).
		Int("tickets", resp.TicketsEvaluados).
		Int("ganadores", resp.TicketsGanadores).
		Str("premios", resp.TotalPremios.String()).
		Msg("sorteo: evaluado")
	return resp, nil
}

// aplicarResultados writes the results into tickets in place and resets
// their aggregates: nothing can have been paid before evaluation.
func aplicarResultados(tickets []model.Ticket, resultados []ResultadoJugada) engine.ValidationResult {
	index := make(map[uuid.UUID]struct{})
	for _, t := range tickets {
		for _, j := range t.Jugadas {
			index[j.ID] = struct{}{}
		}
	}

	var issues []engine.ValidationIssue
	seen := make(map[uuid.UUID]bool, len(resultados))
	byJugada := make(map[uuid.UUID]ResultadoJugada, len(resultados))
	for i, r := range resultados {
		field := fmt.Sprintf("resultados[%d]", i)
		if _, ok := index[r.JugadaID]; !ok {
			issues = append(issues, engine.ValidationIssue{Field: field + ".jugadaId", Message: "la jugada no pertenece al sorteo", Value: r.JugadaID.String()})
			continue
		}
		if seen[r.JugadaID] {
			issues = append(issues, engine.ValidationIssue{Field: field + ".jugadaId", Message: "jugada repetida", Value: r.JugadaID.String()})
			continue
		}
		seen[r.JugadaID] = true

		switch {
		case r.IsWinner && (r.Payout == nil || !r.Payout.IsPositive()):
			issues = append(issues, engine.ValidationIssue{Field: field + ".payout", Message: "una jugada ganadora requiere un premio mayor a 0", Value: payoutValue(r.Payout)})
		case r.IsWinner && !r.Payout.Equal(r.Payout.Round(2)):
			issues = append(issues, engine.ValidationIssue{Field: field + ".payout", Message: "el premio admite a lo sumo 2 decimales", Value: r.Payout.String()})
		case !r.IsWinner && r.Payout != nil && !r.Payout.IsZero():
			issues = append(issues, engine.ValidationIssue{Field: field + ".payout", Message: "una jugada perdedora no lleva premio", Value: r.Payout.String()})
		default:
			byJugada[r.JugadaID] = r
		}
	}
	if len(issues) > 0 {
		return engine.ValidationResult{Valid: false, Errors: issues}
	}

	for ti := range tickets {
		t := &tickets[ti]
		payout := decimal.Zero
		winner := false
		for ji := range t.Jugadas {
			j := &t.Jugadas[ji]
			r, ok := byJugada[j.ID]
			won := ok && r.IsWinner
			j.IsWinner = &won
			j.Payout = nil
			if won {
				p := *r.Payout
				j.Payout = &p
				payout = payout.Add(p)
				winner = true
			}
		}
		paid := decimal.Zero
		remaining := payout
		t.IsWinner = winner
		t.TotalPayout = &payout
		t.TotalPaid = &paid
		t.RemainingAmount = &remaining
	}
	return engine.ValidationResult{Valid: true, Errors: []engine.ValidationIssue{}}
}

func payoutValue(p *decimal.Decimal) string {
	if p == nil {
		return ""
	}
	return p.String()
}
