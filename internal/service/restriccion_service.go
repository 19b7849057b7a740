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
)

type RestriccionService interface {
	Crear(ctx context.Context, req dto.RestriccionRequest) (*model.RestrictionRule, error)
	Reemplazar(ctx context.Context, id uuid.UUID, req dto.RestriccionRequest) (*model.RestrictionRule, error)
	Listar(ctx context.Context) ([]model.RestrictionRule, error)
	ResolverCutoff(ctx context.Context, userID, ventanaID, bancaID uuid.UUID) (int, error)
	VentanaVenta(ctx context.Context, actor Actor, req dto.VentanaVentaRequest) (engine.CutoffDecision, error)
}

type restriccionService struct {
	repo          repository.RestriccionRepository
	defaultCutoff int
	loc           *time.Location
	now           func() time.Time
}

func NewRestriccionService(repo repository.RestriccionRepository, defaultCutoff int, loc *time.Location) RestriccionService {
	return &restriccionService{repo: repo, defaultCutoff: defaultCutoff, loc: loc, now: time.Now}
}

func (s *restriccionService) Crear(ctx context.Context, req dto.RestriccionRequest) (*model.RestrictionRule, error) {
	rule := &model.RestrictionRule{ID: uuid.New()}
	if err := applyRestriccion(rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("crear restriccion: %w", err)
	}
	return rule, nil
}

// Reemplazar overwrites the rule wholesale; omitted fields are cleared.
func (s *restriccionService) Reemplazar(ctx context.Context, id uuid.UUID, req dto.RestriccionRequest) (*model.RestrictionRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrRestriccionNoEncontrada)
	}
	if err := applyRestriccion(rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, rule); err != nil {
		return nil, fmt.Errorf("reemplazar restriccion: %w", err)
	}
	return rule, nil
}

func (s *restriccionService) Listar(ctx context.Context) ([]model.RestrictionRule, error) {
	return s.repo.List(ctx)
}

func (s *restriccionService) ResolverCutoff(ctx context.Context, userID, ventanaID, bancaID uuid.UUID) (int, error) {
	rules, err := s.repo.ListActivasPorScope(ctx, userID, ventanaID, bancaID)
	if err != nil {
		return 0, err
	}
	return engine.ResolveCutoffMinutes(rules, userID, ventanaID, bancaID, s.defaultCutoff), nil
}

// VentanaVenta answers whether a sorteo given as local date and hour still
// accepts sales for the caller.
func (s *restriccionService) VentanaVenta(ctx context.Context, actor Actor, req dto.VentanaVentaRequest) (engine.CutoffDecision, error) {
	cutoff := 0
	if req.Minutes != nil {
		cutoff = *req.Minutes
	} else {
		var err error
		if cutoff, err = s.ResolverCutoff(ctx, actor.UserID, actor.VentanaID, actor.BancaID); err != nil {
			return engine.CutoffDecision{}, err
		}
	}
	return engine.CanCreateTicket(req.Fecha, req.Hora, cutoff, s.now().In(s.loc), s.loc)
}

func applyRestriccion(rule *model.RestrictionRule, req dto.RestriccionRequest) error {
	if req.UserID == nil && req.VentanaID == nil && req.BancaID == nil {
		return ErrScopeRequerido
	}
	var err error
	if rule.UserID, err = parseOptionalUUID(req.UserID); err != nil {
		return fmt.Errorf("userId inválido: %w", err)
	}
	if rule.VentanaID, err = parseOptionalUUID(req.VentanaID); err != nil {
		return fmt.Errorf("ventanaId inválido: %w", err)
	}
	if rule.BancaID, err = parseOptionalUUID(req.BancaID); err != nil {
		return fmt.Errorf("bancaId inválido: %w", err)
	}
	rule.SalesCutoffMinutes = req.SalesCutoffMinutes
	rule.Priority = req.Priority
	rule.IsActive = req.IsActive == nil || *req.IsActive
	return nil
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
