package model

import (
	"time"

	"github.com/google/uuid"
)

// SorteoStatus: SCHEDULED → OPEN → CLOSED → EVALUATED
type SorteoStatus string

const (
	SorteoScheduled SorteoStatus = "SCHEDULED"
	SorteoOpen      SorteoStatus = "OPEN"
	SorteoClosed    SorteoStatus = "CLOSED"
	SorteoEvaluated SorteoStatus = "EVALUATED"
)

var sorteoTransitions = map[SorteoStatus]SorteoStatus{
	SorteoScheduled: SorteoOpen,
	SorteoOpen:      SorteoClosed,
	SorteoClosed:    SorteoEvaluated,
}

// CanTransitionTo reports whether next is the single legal successor of s.
func (s SorteoStatus) CanTransitionTo(next SorteoStatus) bool {
	return sorteoTransitions[s] == next
}

// Sorteo is one scheduled draw of a lotería.
// ScheduledAt is immutable once the sorteo leaves SCHEDULED.
type Sorteo struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	LoteriaID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"loteriaId"`
	ScheduledAt time.Time    `gorm:"not null;index" json:"scheduledAt"`
	Status      SorteoStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
