package service

import (
	"context"
	"sync"
	"time"

	"bancas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory repositories ────────────────────────────────────────────────────
// Every fake hands out copies so a service can never mutate stored state
// behind the repository's back.

type memTicketStore struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*model.Ticket
}

func newMemTicketStore() *memTicketStore {
	return &memTicketStore{tickets: make(map[uuid.UUID]*model.Ticket)}
}

func cloneTicket(t *model.Ticket) *model.Ticket {
	c := *t
	c.Jugadas = append([]model.Jugada(nil), t.Jugadas...)
	c.Payments = append([]model.TicketPayment(nil), t.Payments...)
	return &c
}

func (s *memTicketStore) put(t *model.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = cloneTicket(t)
}

func (s *memTicketStore) get(id uuid.UUID) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneTicket(t), nil
}

// ticketRepo

func (s *memTicketStore) Create(_ context.Context, t *model.Ticket) error {
	s.put(t)
	return nil
}

func (s *memTicketStore) FindByID(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	return s.get(id)
}

// pagoRepo on the same store

type memPagoRepo struct {
	store *memTicketStore
	// failCreate makes CreatePagoTx return the error once set.
	failCreate error
}

func (r *memPagoRepo) DB() *gorm.DB { return nil }

func (r *memPagoRepo) FindTicketForUpdate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Ticket, error) {
	return r.store.get(id)
}

func (r *memPagoRepo) FindTicket(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	return r.store.get(id)
}

func (r *memPagoRepo) CreatePagoTx(_ context.Context, _ *gorm.DB, p *model.TicketPayment) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t := r.store.tickets[p.TicketID]
	t.Payments = append(t.Payments, *p)
	return nil
}

func (r *memPagoRepo) UpdatePagoTx(_ context.Context, _ *gorm.DB, p *model.TicketPayment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t := r.store.tickets[p.TicketID]
	for i := range t.Payments {
		if t.Payments[i].ID == p.ID {
			t.Payments[i] = *p
		}
	}
	return nil
}

func (r *memPagoRepo) UpdateTotalesTx(_ context.Context, _ *gorm.DB, t *model.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := r.store.tickets[t.ID]
	stored.TotalPayout = t.TotalPayout
	stored.TotalPaid = t.TotalPaid
	stored.RemainingAmount = t.RemainingAmount
	return nil
}

type memSorteoRepo struct {
	mu      sync.Mutex
	sorteos map[uuid.UUID]*model.Sorteo
}

func newMemSorteoRepo() *memSorteoRepo {
	return &memSorteoRepo{sorteos: make(map[uuid.UUID]*model.Sorteo)}
}

func (r *memSorteoRepo) Create(_ context.Context, s *model.Sorteo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.sorteos[s.ID] = &c
	return nil
}

func (r *memSorteoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sorteo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sorteos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *s
	return &c, nil
}

func (r *memSorteoRepo) Update(ctx context.Context, s *model.Sorteo) error {
	return r.Create(ctx, s)
}

func (r *memSorteoRepo) CloseDue(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sorteos {
		if s.Status == model.SorteoOpen && !s.ScheduledAt.After(now) {
			s.Status = model.SorteoClosed
			n++
		}
	}
	return n, nil
}

// memEvaluacionRepo evaluates over the same stores the other fakes use.
type memEvaluacionRepo struct {
	sorteos *memSorteoRepo
	tickets *memTicketStore
}

func (r *memEvaluacionRepo) DB() *gorm.DB { return nil }

func (r *memEvaluacionRepo) FindSorteoForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Sorteo, error) {
	return r.sorteos.FindByID(ctx, id)
}

func (r *memEvaluacionRepo) ListTicketsTx(_ context.Context, _ *gorm.DB, sorteoID uuid.UUID) ([]model.Ticket, error) {
	r.tickets.mu.Lock()
	defer r.tickets.mu.Unlock()
	var out []model.Ticket
	for _, t := range r.tickets.tickets {
		if t.SorteoID == sorteoID {
			out = append(out, *cloneTicket(t))
		}
	}
	return out, nil
}

func (r *memEvaluacionRepo) SaveTx(ctx context.Context, _ *gorm.DB, sorteo *model.Sorteo, tickets []model.Ticket) error {
	for i := range tickets {
		r.tickets.put(&tickets[i])
	}
	return r.sorteos.Update(ctx, sorteo)
}

type memRestriccionRepo struct {
	rules []model.RestrictionRule
}

func (r *memRestriccionRepo) Create(_ context.Context, rule *model.RestrictionRule) error {
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *memRestriccionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.RestrictionRule, error) {
	for i := range r.rules {
		if r.rules[i].ID == id {
			c := r.rules[i]
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRestriccionRepo) Replace(_ context.Context, rule *model.RestrictionRule) error {
	for i := range r.rules {
		if r.rules[i].ID == rule.ID {
			r.rules[i] = *rule
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memRestriccionRepo) List(_ context.Context) ([]model.RestrictionRule, error) {
	return append([]model.RestrictionRule(nil), r.rules...), nil
}

func (r *memRestriccionRepo) ListActivasPorScope(_ context.Context, userID, ventanaID, bancaID uuid.UUID) ([]model.RestrictionRule, error) {
	var out []model.RestrictionRule
	for _, rule := range r.rules {
		if !rule.IsActive {
			continue
		}
		if matchesID(rule.UserID, userID) || matchesID(rule.VentanaID, ventanaID) || matchesID(rule.BancaID, bancaID) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func matchesID(p *uuid.UUID, id uuid.UUID) bool {
	return p != nil && *p == id
}

type memPoliticaRepo struct {
	politicas map[string]model.PoliticaComision
}

func newMemPoliticaRepo() *memPoliticaRepo {
	return &memPoliticaRepo{politicas: make(map[string]model.PoliticaComision)}
}

func politicaKey(t model.ActorType, id uuid.UUID) string { return string(t) + ":" + id.String() }

func (r *memPoliticaRepo) Find(_ context.Context, t model.ActorType, id uuid.UUID) (*model.PoliticaComision, error) {
	p, ok := r.politicas[politicaKey(t, id)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memPoliticaRepo) Upsert(_ context.Context, p *model.PoliticaComision) error {
	r.politicas[politicaKey(p.ActorType, p.ActorID)] = *p
	return nil
}

// ── Event publisher ───────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu      sync.Mutex
	eventos []model.EventoPago
	err     error
}

func (p *recordingPublisher) PublishPagoEvento(_ context.Context, e model.EventoPago) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eventos = append(p.eventos, e)
	return p.err
}

func (p *recordingPublisher) tipos() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.eventos))
	for i, e := range p.eventos {
		out[i] = e.Tipo
	}
	return out
}
