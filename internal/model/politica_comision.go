package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MultiplierRange is inclusive on both ends.
type MultiplierRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// CommissionRule refines the default percent. Nil LoteriaID / BetType are wildcards.
type CommissionRule struct {
	ID              *string         `json:"id,omitempty"`
	LoteriaID       *string         `json:"loteriaId"`
	BetType         *BetType        `json:"betType" validate:"omitempty,oneof=NUMERO REVENTADO"`
	MultiplierRange MultiplierRange `json:"multiplierRange"`
	Percent         decimal.Decimal `json:"percent"`
}

// CommissionPolicyV1 is the per-actor commission document. Rules are scanned
// in order and the first match wins, so their order is part of the document.
type CommissionPolicyV1 struct {
	Version        int              `json:"version" validate:"eq=1"`
	EffectiveFrom  *time.Time       `json:"effectiveFrom"`
	EffectiveTo    *time.Time       `json:"effectiveTo"`
	DefaultPercent decimal.Decimal  `json:"defaultPercent"`
	Rules          []CommissionRule `json:"rules" validate:"dive"`
}

// ActorType: "VENTANA" | "VENDEDOR"
type ActorType string

const (
	ActorVentana  ActorType = "VENTANA"
	ActorVendedor ActorType = "VENDEDOR"
)

// PoliticaComision stores one actor's policy document. A nil Documento is
// the reset state and resolves to 0%.
type PoliticaComision struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ActorType ActorType      `gorm:"type:varchar(20);not null;uniqueIndex:uniq_politica_actor"`
	ActorID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uniq_politica_actor"`
	Documento datatypes.JSON `gorm:"type:jsonb"`
	UpdatedBy *uuid.UUID     `gorm:"type:uuid"`
	UpdatedAt time.Time
}

func (PoliticaComision) TableName() string { return "politicas_comision" }

// Policy decodes the stored document; it returns nil for the reset state.
func (p *PoliticaComision) Policy() (*CommissionPolicyV1, error) {
	if p == nil || len(p.Documento) == 0 || string(p.Documento) == "null" {
		return nil, nil
	}
	var policy CommissionPolicyV1
	if err := json.Unmarshal(p.Documento, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}
