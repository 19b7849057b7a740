package engine

import (
	"fmt"
	"math"
	"time"

	"bancas/internal/model"

	"github.com/google/uuid"
)

// DefaultSalesCutoffMinutes is the system fallback when no rule matches and
// the caller passes a negative default.
const DefaultSalesCutoffMinutes = 5

// CutoffDecision tells whether a ticket may still be sold for a sorteo.
type CutoffDecision struct {
	CanCreate bool   `json:"canCreate"`
	Message   string `json:"message"`
}

type cutoffTier struct {
	id     uuid.UUID
	target func(*model.RestrictionRule) *uuid.UUID
}

// ResolveCutoffMinutes walks the tiers user > ventana > banca and returns the
// cutoff of the first tier with a matching active rule. Inside a tier the
// lowest Priority wins and ties keep input order. uuid.Nil never matches.
func ResolveCutoffMinutes(rules []model.RestrictionRule, userID, ventanaID, bancaID uuid.UUID, defaultMinutes int) int {
	if defaultMinutes < 0 {
		defaultMinutes = DefaultSalesCutoffMinutes
	}

	tiers := []cutoffTier{
		{userID, func(r *model.RestrictionRule) *uuid.UUID { return r.UserID }},
		{ventanaID, func(r *model.RestrictionRule) *uuid.UUID { return r.VentanaID }},
		{bancaID, func(r *model.RestrictionRule) *uuid.UUID { return r.BancaID }},
	}

	for _, tier := range tiers {
		if tier.id == uuid.Nil {
			continue
		}
		var best *model.RestrictionRule
		for i := range rules {
			r := &rules[i]
			if !r.IsActive || r.SalesCutoffMinutes == nil {
				continue
			}
			if scope := tier.target(r); scope == nil || *scope != tier.id {
				continue
			}
			if best == nil || r.Priority < best.Priority {
				best = r
			}
		}
		if best != nil {
			return *best.SalesCutoffMinutes
		}
	}
	return defaultMinutes
}

// IsSorteoInCutoff is true while the draw is still ahead but inside the
// no-sale window: 0 < scheduledAt-now <= cutoff. A draw that already passed
// is not "in cutoff"; the sorteo status governs it.
func IsSorteoInCutoff(scheduledAt, now time.Time, cutoffMinutes int) bool {
	diff := scheduledAt.Sub(now)
	return diff > 0 && diff <= time.Duration(cutoffMinutes)*time.Minute
}

// SorteoCutoff builds the sale decision for an absolute draw instant.
func SorteoCutoff(scheduledAt, now time.Time, cutoffMinutes int) CutoffDecision {
	if !IsSorteoInCutoff(scheduledAt, now, cutoffMinutes) {
		return CutoffDecision{CanCreate: true}
	}
	faltan := int(math.Ceil(scheduledAt.Sub(now).Minutes()))
	return CutoffDecision{
		CanCreate: false,
		Message: fmt.Sprintf("Ventas cerradas: el sorteo inicia en %d min y las ventas cierran %d min antes",
			faltan, cutoffMinutes),
	}
}

// CanCreateTicket composes the draw instant from a "2006-01-02" date and a
// "15:04" hour in loc (now's location when loc is nil).
func CanCreateTicket(sorteoDate, sorteoHour string, cutoffMinutes int, now time.Time, loc *time.Location) (CutoffDecision, error) {
	if loc == nil {
		loc = now.Location()
	}
	scheduledAt, err := time.ParseInLocation("2006-01-02 15:04", sorteoDate+" "+sorteoHour, loc)
	if err != nil {
		return CutoffDecision{}, fmt.Errorf("fecha u hora de sorteo inválida (%s %s): %w", sorteoDate, sorteoHour, err)
	}
	return SorteoCutoff(scheduledAt, now, cutoffMinutes), nil
}
