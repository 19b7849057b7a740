package model

import (
	"time"

	"github.com/google/uuid"
)

// RestrictionRule limits sales for a user, a ventana or a banca.
// Scope fields are not exclusive: a rule carrying both UserID and BancaID
// takes part in both tiers. Priority breaks ties inside one tier (lower wins).
type RestrictionRule struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	VentanaID *uuid.UUID `gorm:"type:uuid;index" json:"ventanaId"`
	BancaID   *uuid.UUID `gorm:"type:uuid;index" json:"bancaId"`
	// SalesCutoffMinutes is nil for rules that do not restrict the sales window.
	SalesCutoffMinutes *int      `json:"salesCutoffMinutes"`
	Priority           int       `gorm:"not null" json:"priority"`
	IsActive           bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (RestrictionRule) TableName() string { return "restriction_rules" }
