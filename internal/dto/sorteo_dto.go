package dto

import (
	"time"

	"bancas/internal/model"

	"github.com/shopspring/decimal"
)

type CrearSorteoRequest struct {
	LoteriaID   string    `json:"loteriaId"   validate:"required,uuid"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

type ReprogramarSorteoRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// VentanaVentaRequest asks whether a sorteo given as local date and hour
// still accepts sales. Bound from GET /v1/sorteos/ventana.
type VentanaVentaRequest struct {
	Fecha string `form:"fecha" validate:"required"` // YYYY-MM-DD
	Hora  string `form:"hora"  validate:"required"` // HH:mm
	// Minutes overrides the scope resolved from the token when set.
	Minutes *int `form:"minutes" validate:"omitempty,min=0"`
}

// ResultadoJugadaRequest is one evaluated jugada. Payout is required for
// winners and must be absent or zero for losers; the service reports both.
type ResultadoJugadaRequest struct {
	JugadaID string           `json:"jugadaId" validate:"required,uuid"`
	IsWinner bool             `json:"isWinner"`
	Payout   *decimal.Decimal `json:"payout"`
}

// EvaluarSorteoRequest is bound from POST /v1/sorteos/:id/evaluar. Jugadas
// left out are losers; an empty list evaluates a sorteo without winners.
type EvaluarSorteoRequest struct {
	Resultados []ResultadoJugadaRequest `json:"resultados" validate:"dive"`
}

type EvaluacionResponse struct {
	Sorteo           model.Sorteo    `json:"sorteo"`
	TicketsEvaluados int             `json:"ticketsEvaluados"`
	TicketsGanadores int             `json:"ticketsGanadores"`
	TotalPremios     decimal.Decimal `json:"totalPremios"`
}
