package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketPayment is an append-only row in a ticket's payment history.
// Reversal is the only mutation and it is terminal: the row is flagged,
// never deleted, and never un-reversed.
type TicketPayment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"ticketId"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amountPaid"`
	Method         string          `gorm:"type:varchar(20);not null" json:"method"`
	PaidByID       uuid.UUID       `gorm:"type:uuid;not null" json:"paidById"`
	PaymentDate    time.Time       `gorm:"not null;index" json:"paymentDate"`
	Notes          *string         `json:"notes,omitempty"`
	IdempotencyKey string          `gorm:"type:varchar(100);not null" json:"idempotencyKey"`
	IsReversed     bool            `gorm:"not null" json:"isReversed"`
	ReversedAt     *time.Time      `json:"reversedAt,omitempty"`
	ReversedBy     *uuid.UUID      `gorm:"type:uuid" json:"reversedBy,omitempty"`
	ReversalReason *string         `json:"reversalReason,omitempty"`
	IsPartial      bool            `gorm:"not null" json:"isPartial"`
	IsFinal        bool            `gorm:"not null" json:"isFinal"`
}

// EventoPago is the audit trail written asynchronously for every applied
// payment or reversal. Tipo: "pago_registrado" | "pago_revertido"
type EventoPago struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TicketID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"ticketId"`
	PagoID          uuid.UUID       `gorm:"type:uuid;not null" json:"pagoId"`
	Tipo            string          `gorm:"type:varchar(30);not null" json:"tipo"`
	Monto           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"monto"`
	ActorID         uuid.UUID       `gorm:"type:uuid;not null" json:"actorId"`
	Estado          string          `gorm:"type:varchar(20);not null" json:"estado"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"remainingAmount"`
	OcurridoEn      time.Time       `gorm:"not null" json:"ocurridoEn"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (EventoPago) TableName() string { return "eventos_pago" }

const (
	EventoPagoRegistrado = "pago_registrado"
	EventoPagoRevertido  = "pago_revertido"
)
