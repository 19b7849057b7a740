package dto

import (
	"time"

	"bancas/internal/engine"

	"github.com/shopspring/decimal"
)

// ResolverComisionRequest is bound from query string of
// GET /v1/comisiones/:actorType/:actorId/resolver. MultiplierX and Amount
// are parsed by the handler.
type ResolverComisionRequest struct {
	LoteriaID   string           `form:"loteriaId"   validate:"required"`
	BetType     string           `form:"betType"     validate:"required,oneof=NUMERO REVENTADO"`
	MultiplierX *decimal.Decimal `form:"-"`
	Amount      *decimal.Decimal `form:"-"`
	At          *time.Time       `form:"at"          time_format:"2006-01-02T15:04:05Z07:00"`
}

type JugadaComision struct {
	JugadaID string                  `json:"jugadaId"`
	Amount   decimal.Decimal         `json:"amount"`
	Result   engine.CommissionResult `json:"result"`
}

// ComisionTicketResponse breaks a ticket's commission down per jugada.
type ComisionTicketResponse struct {
	TicketID    string           `json:"ticketId"`
	ActorType   string           `json:"actorType"`
	ActorID     string           `json:"actorId"`
	Jugadas     []JugadaComision `json:"jugadas"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
}
