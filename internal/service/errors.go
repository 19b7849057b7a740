package service

import (
	"context"
	"errors"
	"fmt"

	"bancas/internal/engine"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTicketNoEncontrado      = errors.New("ticket no encontrado")
	ErrSorteoNoEncontrado      = errors.New("sorteo no encontrado")
	ErrRestriccionNoEncontrada = errors.New("restriccion no encontrada")
	ErrSorteoNoAbierto         = errors.New("el sorteo no esta abierto para ventas")
	ErrTransicionInvalida      = errors.New("transicion de estado de sorteo invalida")
	ErrSorteoInmutable         = errors.New("solo un sorteo programado puede reprogramarse")
	ErrEvaluacionSinResultados = errors.New("un sorteo se evalua registrando sus resultados")
	ErrScopeRequerido          = errors.New("la restriccion requiere userId, ventanaId o bancaId")
	ErrActorInvalido           = errors.New("tipo de actor invalido: VENTANA o VENDEDOR")
	// ErrPagoConcurrente means another request inserted the same idempotency
	// key first; retrying the request replays it.
	ErrPagoConcurrente = errors.New("pago en curso con la misma llave de idempotencia")
)

// VentasCerradasError is returned when a sale falls inside the no-sale window.
type VentasCerradasError struct {
	Message       string
	CutoffMinutes int
}

func (e *VentasCerradasError) Error() string { return e.Message }

// ValidacionError carries a batch report from the engine.
type ValidacionError struct {
	Result engine.ValidationResult
}

func (e *ValidacionError) Error() string {
	return fmt.Sprintf("validacion fallida: %d error(es)", len(e.Result.Errors))
}

// Actor is the authenticated caller as resolved from the access token.
type Actor struct {
	UserID    uuid.UUID
	VentanaID uuid.UUID
	BancaID   uuid.UUID
	Rol       string
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFound maps gorm's missing-row error onto a domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
