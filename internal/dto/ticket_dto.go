package dto

import (
	"bancas/internal/model"

	"github.com/shopspring/decimal"
)

// JugadaRequest only checks shape. Number formats, amounts and REVENTADO
// references are checked as a batch by the engine so every issue is reported.
type JugadaRequest struct {
	Type            string           `json:"type"            validate:"required"`
	Number          string           `json:"number"          validate:"required"`
	ReventadoNumber *string          `json:"reventadoNumber"`
	Amount          decimal.Decimal  `json:"amount"`
	MultiplierX     *decimal.Decimal `json:"multiplierX"`
}

// CrearTicketRequest is bound from POST /v1/tickets. The seller scope comes
// from the token; VendedorID may only be set by roles that sell on behalf of
// someone else.
type CrearTicketRequest struct {
	SorteoID   string          `json:"sorteoId"   validate:"required,uuid"`
	VendedorID *string         `json:"vendedorId" validate:"omitempty,uuid"`
	Jugadas    []JugadaRequest `json:"jugadas"    validate:"required,min=1,dive"`
}

type TicketResponse struct {
	model.Ticket
	Estado string `json:"estado"`
}
