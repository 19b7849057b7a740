package dto

import (
	"bancas/internal/engine"
	"bancas/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RegistrarPagoRequest is bound from POST /v1/tickets/:id/pagos.
// AmountPaid carries no range tag: the ledger answers MONTO_INVALIDO itself.
type RegistrarPagoRequest struct {
	AmountPaid     decimal.Decimal `json:"amountPaid"`
	Method         string          `json:"method"         validate:"required,oneof=cash check transfer system"`
	Notes          *string         `json:"notes"          validate:"omitempty,max=500"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"required,max=100"`
	IsFinal        bool            `json:"isFinal"`
}

type RevertirPagoRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PagoResponse struct {
	Pago     model.TicketPayment     `json:"pago"`
	Totales  engine.PaymentTotals    `json:"totales"`
	Estado   engine.SettlementStatus `json:"estado"`
	Replayed bool                    `json:"replayed"`
}

type TotalesPagoResponse struct {
	TicketID string                  `json:"ticketId"`
	Totales  engine.PaymentTotals    `json:"totales"`
	Estado   engine.SettlementStatus `json:"estado"`
}

type HistorialPagosResponse struct {
	TicketID string                `json:"ticketId"`
	Pagos    []model.TicketPayment `json:"pagos"`
}
