package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bancas/internal/dto"
	"bancas/internal/engine"
	"bancas/internal/model"
	"bancas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ComisionService interface {
	// Guardar validates the document and replaces the actor's policy wholesale.
	Guardar(ctx context.Context, actorType model.ActorType, actorID, updatedBy uuid.UUID, policy model.CommissionPolicyV1) (*model.CommissionPolicyV1, error)
	// Obtener returns nil when the actor has no policy or it was reset.
	Obtener(ctx context.Context, actorType model.ActorType, actorID uuid.UUID) (*model.CommissionPolicyV1, error)
	Reset(ctx context.Context, actorType model.ActorType, actorID, updatedBy uuid.UUID) error
	Resolver(ctx context.Context, actorType model.ActorType, actorID uuid.UUID, req dto.ResolverComisionRequest) (engine.CommissionResult, error)
	ResolverTicket(ctx context.Context, ticketID uuid.UUID, actorType model.ActorType) (*dto.ComisionTicketResponse, error)
}

type comisionService struct {
	repo       repository.PoliticaRepository
	ticketRepo repository.TicketRepository
	now        func() time.Time
}

func NewComisionService(repo repository.PoliticaRepository, ticketRepo repository.TicketRepository) ComisionService {
	return &comisionService{repo: repo, ticketRepo: ticketRepo, now: time.Now}
}

func validActor(t model.ActorType) bool {
	return t == model.ActorVentana || t == model.ActorVendedor
}

func (s *comisionService) Guardar(ctx context.Context, actorType model.ActorType, actorID, updatedBy uuid.UUID, policy model.CommissionPolicyV1) (*model.CommissionPolicyV1, error) {
	if !validActor(actorType) {
		return nil, ErrActorInvalido
	}
	if res := engine.ValidateCommissionPolicy(&policy); !res.Valid {
		return nil, &ValidacionError{Result: res}
	}
	doc, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("serializar politica: %w", err)
	}
	if err := s.upsert(ctx, actorType, actorID, updatedBy, datatypes.JSON(doc)); err != nil {
		return nil, err
	}
	log.Info().
		Str("actor_type", string(actorType)).
		Str("actor_id", actorID.String()).
		Int("rules", len(policy.Rules)).
		Msg("comision: politica guardada")
	return &policy, nil
}

func (s *comisionService) Obtener(ctx context.Context, actorType model.ActorType, actorID uuid.UUID) (*model.CommissionPolicyV1, error) {
	if !validActor(actorType) {
		return nil, ErrActorInvalido
	}
	p, err := s.repo.Find(ctx, actorType, actorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	policy, err := p.Policy()
	if err != nil {
		return nil, fmt.Errorf("politica almacenada ilegible: %w", err)
	}
	return policy, nil
}

func (s *comisionService) Reset(ctx context.Context, actorType model.ActorType, actorID, updatedBy uuid.UUID) error {
	if !validActor(actorType) {
		return ErrActorInvalido
	}
	return s.upsert(ctx, actorType, actorID, updatedBy, nil)
}

func (s *comisionService) upsert(ctx context.Context, actorType model.ActorType, actorID, updatedBy uuid.UUID, doc datatypes.JSON) error {
	p := &model.PoliticaComision{
		ID:        uuid.New(),
		ActorType: actorType,
		ActorID:   actorID,
		Documento: doc,
		UpdatedAt: s.now(),
	}
	if updatedBy != uuid.Nil {
		p.UpdatedBy = &updatedBy
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("guardar politica: %w", err)
	}
	return nil
}

func (s *comisionService) Resolver(ctx context.Context, actorType model.ActorType, actorID uuid.UUID, req dto.ResolverComisionRequest) (engine.CommissionResult, error) {
	policy, err := s.Obtener(ctx, actorType, actorID)
	if err != nil {
		return engine.CommissionResult{}, err
	}
	cctx := engine.CommissionContext{
		LoteriaID: req.LoteriaID,
		BetType:   model.BetType(req.BetType),
		At:        s.now(),
	}
	if req.MultiplierX != nil {
		cctx.MultiplierX = *req.MultiplierX
	}
	if req.At != nil {
		cctx.At = *req.At
	}
	amount := decimal.Zero
	if req.Amount != nil {
		amount = *req.Amount
	}
	return engine.ResolveCommission(policy, cctx, amount), nil
}

// ResolverTicket applies the ventana's or the vendedor's policy to every
// jugada of the ticket, as of the ticket's sale time.
func (s *comisionService) ResolverTicket(ctx context.Context, ticketID uuid.UUID, actorType model.ActorType) (*dto.ComisionTicketResponse, error) {
	if !validActor(actorType) {
		return nil, ErrActorInvalido
	}
	t, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, ErrTicketNoEncontrado)
	}
	actorID := t.VentanaID
	if actorType == model.ActorVendedor {
		actorID = t.VendedorID
	}
	policy, err := s.Obtener(ctx, actorType, actorID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ComisionTicketResponse{
		TicketID:    t.ID.String(),
		ActorType:   string(actorType),
		ActorID:     actorID.String(),
		Jugadas:     make([]dto.JugadaComision, 0, len(t.Jugadas)),
		TotalAmount: decimal.Zero,
	}
	for _, j := range t.Jugadas {
		cctx := engine.CommissionContext{
			LoteriaID: t.LoteriaID.String(),
			BetType:   j.Type,
			At:        t.CreatedAt,
		}
		if j.MultiplierX != nil {
			cctx.MultiplierX = *j.MultiplierX
		}
		res := engine.ResolveCommission(policy, cctx, j.Amount)
		resp.Jugadas = append(resp.Jugadas, dto.JugadaComision{
			JugadaID: j.ID.String(),
			Amount:   j.Amount,
			Result:   res,
		})
		resp.TotalAmount = resp.TotalAmount.Add(res.Amount)
	}
	return resp, nil
}
