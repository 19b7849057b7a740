// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "bancas/internal/engine"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Rejection is returned when a business rule refuses an operation. Code is
// stable and meant for clients to branch on.
type Rejection struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func NewRejection(code, msg string) *Rejection {
	return &Rejection{Detail: msg, Code: code}
}

// ValidationError wraps multiple field errors. Fields keeps the first message
// per field; Issues keeps every issue in detection order.
type ValidationError struct {
	Detail string                   `json:"detail"`
	Fields map[string]string        `json:"fields"`
	Issues []engine.ValidationIssue `json:"issues,omitempty"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// FromResult builds the envelope from an engine batch report.
func FromResult(res engine.ValidationResult) *ValidationError {
	fields := make(map[string]string, len(res.Errors))
	for _, is := range res.Errors {
		if _, seen := fields[is.Field]; !seen {
			fields[is.Field] = is.Message
		}
	}
	return &ValidationError{Detail: "Error de validacion", Fields: fields, Issues: res.Errors}
}
