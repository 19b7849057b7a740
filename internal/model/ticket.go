package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetType: "NUMERO" | "REVENTADO"
type BetType string

const (
	BetNumero    BetType = "NUMERO"
	BetReventado BetType = "REVENTADO"
)

// Jugada is a single play on a ticket. Number and ReventadoNumber are
// two-digit strings "00".."99". IsWinner and Payout arrive already evaluated.
type Jugada struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TicketID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"-"`
	Type            BetType          `gorm:"type:varchar(12);not null" json:"type"`
	Number          string           `gorm:"type:char(2);not null" json:"number"`
	ReventadoNumber *string          `gorm:"type:char(2)" json:"reventadoNumber,omitempty"`
	Amount          decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	MultiplierX     *decimal.Decimal `gorm:"type:decimal(8,2)" json:"multiplierX,omitempty"`
	IsWinner        *bool            `json:"isWinner,omitempty"`
	Payout          *decimal.Decimal `gorm:"type:decimal(14,2)" json:"payout,omitempty"`
}

// Ticket carries its jugadas, its payment history and the settlement
// aggregates. The aggregates are nil on snapshots written before they existed.
type Ticket struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SorteoID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"sorteoId"`
	LoteriaID       uuid.UUID        `gorm:"type:uuid;not null" json:"loteriaId"`
	VendedorID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"vendedorId"`
	VentanaID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"ventanaId"`
	BancaID         uuid.UUID        `gorm:"type:uuid;not null" json:"bancaId"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	IsWinner        bool             `gorm:"not null" json:"isWinner"`
	TotalPayout     *decimal.Decimal `gorm:"type:decimal(14,2)" json:"totalPayout"`
	TotalPaid       *decimal.Decimal `gorm:"type:decimal(14,2)" json:"totalPaid"`
	RemainingAmount *decimal.Decimal `gorm:"type:decimal(14,2)" json:"remainingAmount"`
	CreatedAt       time.Time        `json:"createdAt"`

	Jugadas  []Jugada        `gorm:"foreignKey:TicketID" json:"jugadas"`
	Payments []TicketPayment `gorm:"foreignKey:TicketID" json:"payments"`
}
