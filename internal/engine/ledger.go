package engine

import (
	"time"

	"bancas/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementStatus is derived from the non-reversed payments only.
// UNPAID → PARTIAL → (PAID | FINAL); a reversal can move it back.
type SettlementStatus string

const (
	StatusUnpaid  SettlementStatus = "UNPAID"
	StatusPartial SettlementStatus = "PARTIAL"
	StatusPaid    SettlementStatus = "PAID"
	StatusFinal   SettlementStatus = "FINAL"
)

// TotalsSource: "aggregate" (server-supplied fields) | "derived" (computed from jugadas and payments)
type TotalsSource string

const (
	TotalsFromAggregate TotalsSource = "aggregate"
	TotalsDerived       TotalsSource = "derived"
)

// PaymentTotals is the settlement aggregate of a ticket.
type PaymentTotals struct {
	TotalPayout       decimal.Decimal `json:"totalPayout"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	RemainingAmount   decimal.Decimal `json:"remainingAmount"`
	HasWinner         bool            `json:"hasWinner"`
	IsFullyPaid       bool            `json:"isFullyPaid"`
	HasPartialPayment bool            `json:"hasPartialPayment"`
	Source            TotalsSource    `json:"source"`
}

// ComputePaymentTotals picks one of two paths:
//
//   - aggregate: the ticket's TotalPayout/TotalPaid/RemainingAmount are used as
//     given when TotalPayout > 0 or the ticket has no winner.
//   - derived: otherwise (fields missing, or a winner reporting payout 0) the
//     payout is summed from winning jugadas and the paid amount from
//     non-reversed payments.
//
// Older snapshots report a zero payout on winning tickets, so the derived
// path must stay even when aggregates are present.
func ComputePaymentTotals(t *model.Ticket) PaymentTotals {
	hasWinner := t.IsWinner || hasWinningJugada(t.Jugadas)
	reported := valueOrZero(t.TotalPayout)

	if reported.IsPositive() || !hasWinner {
		paid := valueOrZero(t.TotalPaid)
		remaining := reported.Sub(paid)
		if t.RemainingAmount != nil {
			remaining = *t.RemainingAmount
		}
		return buildTotals(reported, paid, remaining, hasWinner, TotalsFromAggregate)
	}

	payout := decimal.Zero
	for _, j := range t.Jugadas {
		if j.IsWinner != nil && *j.IsWinner && j.Payout != nil {
			payout = payout.Add(*j.Payout)
		}
	}
	paid := ActivePaidSum(t.Payments)
	return buildTotals(payout, paid, payout.Sub(paid), hasWinner, TotalsDerived)
}

func buildTotals(payout, paid, remaining decimal.Decimal, hasWinner bool, source TotalsSource) PaymentTotals {
	return PaymentTotals{
		TotalPayout:       payout,
		TotalPaid:         paid,
		RemainingAmount:   remaining,
		HasWinner:         hasWinner,
		IsFullyPaid:       payout.IsPositive() && !remaining.IsPositive(),
		HasPartialPayment: paid.IsPositive() && remaining.IsPositive(),
		Source:            source,
	}
}

// SettlementStatusOf derives the ticket's payment state.
func SettlementStatusOf(t *model.Ticket) SettlementStatus {
	totals := ComputePaymentTotals(t)
	switch {
	case hasActiveFinal(t.Payments) && totals.RemainingAmount.IsPositive():
		return StatusFinal
	case totals.IsFullyPaid:
		return StatusPaid
	case totals.TotalPaid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// ActivePaidSum adds up the non-reversed payments.
func ActivePaidSum(payments []model.TicketPayment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if !p.IsReversed {
			sum = sum.Add(p.AmountPaid)
		}
	}
	return sum
}

// PaymentInput is what a cashier submits to pay (part of) a prize.
type PaymentInput struct {
	AmountPaid     decimal.Decimal
	Method         string
	Notes          *string
	IdempotencyKey string
	IsFinal        bool
	PaidByID       uuid.UUID
}

// Ledger applies payments and reversals to a ticket snapshot. Now and NewID
// are injectable so tests never depend on the wall clock.
type Ledger struct {
	Now   func() time.Time
	NewID func() uuid.UUID
}

func NewLedger() *Ledger {
	return &Ledger{Now: time.Now, NewID: uuid.New}
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

func (l *Ledger) newID() uuid.UUID {
	if l.NewID == nil {
		return uuid.New()
	}
	return l.NewID()
}

// CreatePayment appends a payment to t and refreshes its aggregates.
//
// A key that already maps to a non-reversed payment of this ticket is a
// replay: the original row comes back with replayed=true and t is untouched.
// Otherwise the preconditions are checked in order and the first failing one
// is returned as a *PaymentRejectedError. Amounts are never clamped.
func (l *Ledger) CreatePayment(t *model.Ticket, in PaymentInput) (payment *model.TicketPayment, replayed bool, err error) {
	if in.IdempotencyKey != "" {
		if existing := findActiveByKey(t.Payments, in.IdempotencyKey); existing != nil {
			original := *existing
			return &original, true, nil
		}
	}

	totals := ComputePaymentTotals(t)
	balance := payableBalance(t, totals)
	switch {
	case !totals.HasWinner || !totals.TotalPayout.IsPositive():
		return nil, false, ErrTicketNoGanador
	case hasActiveFinal(t.Payments):
		return nil, false, ErrTicketCerrado
	case !balance.IsPositive():
		return nil, false, ErrTicketPagado
	case !in.AmountPaid.IsPositive():
		return nil, false, ErrMontoInvalido
	case in.AmountPaid.GreaterThan(balance):
		return nil, false, montoExcedeSaldo(in.AmountPaid, balance)
	}

	key := in.IdempotencyKey
	if key == "" {
		key = l.newID().String()
	}
	remainingAfter := balance.Sub(in.AmountPaid)

	p := model.TicketPayment{
		ID:             l.newID(),
		TicketID:       t.ID,
		AmountPaid:     in.AmountPaid,
		Method:         in.Method,
		PaidByID:       in.PaidByID,
		PaymentDate:    l.now(),
		Notes:          in.Notes,
		IdempotencyKey: key,
		IsPartial:      remainingAfter.IsPositive(),
		// A final payment that settles the balance is a normal completion.
		IsFinal: in.IsFinal && remainingAfter.IsPositive(),
	}
	t.Payments = append(t.Payments, p)
	syncAggregates(t, totals.TotalPayout)

	return &p, false, nil
}

// ReversePayment flags the most recent non-reversed payment of t. The row
// stays in the history; only the aggregates forget it.
func (l *Ledger) ReversePayment(t *model.Ticket, actor uuid.UUID, reason *string) (*model.TicketPayment, error) {
	idx := latestActive(t.Payments)
	if idx < 0 {
		return nil, ErrSinPagoActivo
	}

	payout := ComputePaymentTotals(t).TotalPayout
	now := l.now()
	p := &t.Payments[idx]
	p.IsReversed = true
	p.ReversedAt = &now
	p.ReversedBy = &actor
	p.ReversalReason = reason
	syncAggregates(t, payout)

	reversed := *p
	return &reversed, nil
}

// payableBalance is what may still be paid on t. Aggregates can be partial
// or stale while the loaded payments are the real history, so the larger
// paid amount and the smaller remainder win.
func payableBalance(t *model.Ticket, totals PaymentTotals) decimal.Decimal {
	paid := decimal.Max(totals.TotalPaid, ActivePaidSum(t.Payments))
	return decimal.Min(totals.RemainingAmount, totals.TotalPayout.Sub(paid))
}

// syncAggregates rewrites the ticket's aggregate fields from the payments
// the ledger holds, so both totals paths agree afterwards.
func syncAggregates(t *model.Ticket, payout decimal.Decimal) {
	paid := ActivePaidSum(t.Payments)
	remaining := payout.Sub(paid)
	t.TotalPayout = &payout
	t.TotalPaid = &paid
	t.RemainingAmount = &remaining
}

func findActiveByKey(payments []model.TicketPayment, key string) *model.TicketPayment {
	for i := range payments {
		if !payments[i].IsReversed && payments[i].IdempotencyKey == key {
			return &payments[i]
		}
	}
	return nil
}

// latestActive returns the index of the newest non-reversed payment, or -1.
// Equal dates resolve to the later position in the slice.
func latestActive(payments []model.TicketPayment) int {
	idx := -1
	for i := range payments {
		if payments[i].IsReversed {
			continue
		}
		if idx < 0 || !payments[i].PaymentDate.Before(payments[idx].PaymentDate) {
			idx = i
		}
	}
	return idx
}

func hasActiveFinal(payments []model.TicketPayment) bool {
	for _, p := range payments {
		if !p.IsReversed && p.IsFinal {
			return true
		}
	}
	return false
}

func hasWinningJugada(jugadas []model.Jugada) bool {
	for _, j := range jugadas {
		if j.IsWinner != nil && *j.IsWinner {
			return true
		}
	}
	return false
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
