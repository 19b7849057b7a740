// Package engine holds the settlement and rules resolution logic: sales
// cutoff windows, jugada cross-reference checks, commission policy
// resolution and the payment ledger of winning tickets.
//
// Everything here works on snapshots handed in by the caller. Nothing
// performs I/O and nothing keeps package-level mutable state.
package engine

import "fmt"

// ValidationIssue is one offending field in a batch validation report.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ValidationResult reports every issue at once instead of failing on the first.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors"`
}

func newResult(issues []ValidationIssue) ValidationResult {
	if issues == nil {
		issues = []ValidationIssue{}
	}
	return ValidationResult{Valid: len(issues) == 0, Errors: issues}
}

// RejectionCode tells the caller precisely why a ledger mutation was refused.
type RejectionCode string

const (
	CodeMontoInvalido    RejectionCode = "MONTO_INVALIDO"
	CodeMontoExcedeSaldo RejectionCode = "MONTO_EXCEDE_SALDO"
	CodeTicketNoGanador  RejectionCode = "TICKET_NO_GANADOR"
	CodeTicketPagado     RejectionCode = "TICKET_PAGADO"
	CodeTicketCerrado    RejectionCode = "TICKET_CERRADO"
	CodeSinPagoActivo    RejectionCode = "SIN_PAGO_ACTIVO"
)

// PaymentRejectedError is returned by CreatePayment when a precondition fails.
// errors.Is matches on Code, so callers compare against the sentinels below.
type PaymentRejectedError struct {
	Code    RejectionCode
	Message string
}

func (e *PaymentRejectedError) Error() string { return e.Message }

func (e *PaymentRejectedError) Is(target error) bool {
	t, ok := target.(*PaymentRejectedError)
	return ok && t.Code == e.Code
}

// ReversalRejectedError is returned by ReversePayment.
type ReversalRejectedError struct {
	Code    RejectionCode
	Message string
}

func (e *ReversalRejectedError) Error() string { return e.Message }

func (e *ReversalRejectedError) Is(target error) bool {
	t, ok := target.(*ReversalRejectedError)
	return ok && t.Code == e.Code
}

var (
	ErrMontoInvalido = &PaymentRejectedError{
		Code: CodeMontoInvalido, Message: "el monto a pagar debe ser mayor a cero",
	}
	ErrMontoExcedeSaldo = &PaymentRejectedError{
		Code: CodeMontoExcedeSaldo, Message: "el monto a pagar excede el saldo pendiente",
	}
	ErrTicketNoGanador = &PaymentRejectedError{
		Code: CodeTicketNoGanador, Message: "el ticket no es ganador o no tiene premio a pagar",
	}
	ErrTicketPagado = &PaymentRejectedError{
		Code: CodeTicketPagado, Message: "el ticket ya fue pagado en su totalidad",
	}
	ErrTicketCerrado = &PaymentRejectedError{
		Code: CodeTicketCerrado, Message: "el ticket fue cerrado con un pago final; revierta ese pago para reabrirlo",
	}
	ErrSinPagoActivo = &ReversalRejectedError{
		Code: CodeSinPagoActivo, Message: "el ticket no tiene pagos activos para revertir",
	}
)

func montoExcedeSaldo(amount, remaining fmt.Stringer) error {
	return &PaymentRejectedError{
		Code:    CodeMontoExcedeSaldo,
		Message: fmt.Sprintf("el monto %s excede el saldo pendiente de %s", amount, remaining),
	}
}
