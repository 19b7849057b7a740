package engine

import (
	"fmt"
	"regexp"

	"bancas/internal/model"

	"github.com/shopspring/decimal"
)

var numberFormat = regexp.MustCompile(`^[0-9]{2}$`)

// ValidateNumberFormat accepts exactly two ASCII digits, "00" through "99".
func ValidateNumberFormat(v string) bool {
	return numberFormat.MatchString(v)
}

// ValidateAmount accepts strictly positive amounts.
func ValidateAmount(v decimal.Decimal) bool {
	return v.IsPositive()
}

// reventadoReference falls back to Number when ReventadoNumber is absent.
func reventadoReference(j model.Jugada) string {
	if j.ReventadoNumber != nil && *j.ReventadoNumber != "" {
		return *j.ReventadoNumber
	}
	return j.Number
}

// ValidateReventadoReferences checks that every REVENTADO points at the number
// of some NUMERO jugada in the same draft. One issue per unmatched REVENTADO.
func ValidateReventadoReferences(jugadas []model.Jugada) ValidationResult {
	numeros := make(map[string]struct{}, len(jugadas))
	for _, j := range jugadas {
		if j.Type == model.BetNumero {
			numeros[j.Number] = struct{}{}
		}
	}

	var issues []ValidationIssue
	for i, j := range jugadas {
		if j.Type != model.BetReventado {
			continue
		}
		ref := reventadoReference(j)
		if _, ok := numeros[ref]; !ok {
			issues = append(issues, ValidationIssue{
				Field:   fmt.Sprintf("jugadas[%d].reventadoNumber", i),
				Message: fmt.Sprintf("el reventado %s no tiene una jugada NUMERO con el mismo número", ref),
				Value:   ref,
			})
		}
	}
	return newResult(issues)
}

// ValidateJugadas checks a whole ticket draft before submission and reports
// every problem in one pass.
func ValidateJugadas(jugadas []model.Jugada) ValidationResult {
	if len(jugadas) == 0 {
		return newResult([]ValidationIssue{{Field: "jugadas", Message: "el ticket debe tener al menos una jugada"}})
	}

	var issues []ValidationIssue
	for i, j := range jugadas {
		prefix := fmt.Sprintf("jugadas[%d]", i)
		if j.Type != model.BetNumero && j.Type != model.BetReventado {
			issues = append(issues, ValidationIssue{
				Field: prefix + ".type", Message: "tipo de jugada desconocido", Value: string(j.Type),
			})
		}
		if !ValidateNumberFormat(j.Number) {
			issues = append(issues, ValidationIssue{
				Field: prefix + ".number", Message: "el número debe tener dos dígitos (00-99)", Value: j.Number,
			})
		}
		if j.ReventadoNumber != nil && *j.ReventadoNumber != "" && !ValidateNumberFormat(*j.ReventadoNumber) {
			issues = append(issues, ValidationIssue{
				Field: prefix + ".reventadoNumber", Message: "el número debe tener dos dígitos (00-99)", Value: *j.ReventadoNumber,
			})
		}
		if !ValidateAmount(j.Amount) {
			issues = append(issues, ValidationIssue{
				Field: prefix + ".amount", Message: "el monto debe ser mayor a cero", Value: j.Amount.String(),
			})
		}
	}

	issues = append(issues, ValidateReventadoReferences(jugadas).Errors...)
	return newResult(issues)
}
