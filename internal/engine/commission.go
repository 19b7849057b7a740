package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"bancas/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CommissionContext describes the bet a percent is resolved for.
type CommissionContext struct {
	LoteriaID   string
	BetType     model.BetType
	MultiplierX decimal.Decimal
	At          time.Time
}

// CommissionSource: "none" (no policy) | "default" | "rule"
type CommissionSource string

const (
	CommissionSourceNone    CommissionSource = "none"
	CommissionSourceDefault CommissionSource = "default"
	CommissionSourceRule    CommissionSource = "rule"
)

// CommissionResult is the percent applied to a bet and the resulting amount.
type CommissionResult struct {
	Percent decimal.Decimal  `json:"percent"`
	Amount  decimal.Decimal  `json:"amount"`
	RuleID  *string          `json:"ruleId,omitempty"`
	Source  CommissionSource `json:"source"`
}

// InWindow reports whether at falls inside the policy's effective window.
// Open ends are unbounded and both ends are inclusive.
func InWindow(policy *model.CommissionPolicyV1, at time.Time) bool {
	if policy.EffectiveFrom != nil && at.Before(*policy.EffectiveFrom) {
		return false
	}
	if policy.EffectiveTo != nil && at.After(*policy.EffectiveTo) {
		return false
	}
	return true
}

func ruleMatches(rule *model.CommissionRule, cctx CommissionContext) bool {
	if rule.LoteriaID != nil && *rule.LoteriaID != cctx.LoteriaID {
		return false
	}
	if rule.BetType != nil && *rule.BetType != cctx.BetType {
		return false
	}
	return cctx.MultiplierX.GreaterThanOrEqual(rule.MultiplierRange.Min) &&
		cctx.MultiplierX.LessThanOrEqual(rule.MultiplierRange.Max)
}

// ResolveCommissionPercent returns the percent a policy grants for a bet.
func ResolveCommissionPercent(policy *model.CommissionPolicyV1, cctx CommissionContext) decimal.Decimal {
	return ResolveCommission(policy, cctx, decimal.Zero).Percent
}

// ResolveCommission starts from the default percent and, only while the
// policy is in its effective window, takes the first matching rule. Outside
// the window the default applies no matter what the rules say.
func ResolveCommission(policy *model.CommissionPolicyV1, cctx CommissionContext, betAmount decimal.Decimal) CommissionResult {
	if policy == nil {
		return CommissionResult{Percent: decimal.Zero, Amount: decimal.Zero, Source: CommissionSourceNone}
	}

	res := CommissionResult{Percent: policy.DefaultPercent, Source: CommissionSourceDefault}
	if InWindow(policy, cctx.At) {
		for i := range policy.Rules {
			rule := &policy.Rules[i]
			if ruleMatches(rule, cctx) {
				res.Percent = rule.Percent
				res.RuleID = rule.ID
				res.Source = CommissionSourceRule
				break
			}
		}
	}

	res.Percent = clampPercent(res.Percent)
	res.Amount = CommissionAmount(betAmount, res.Percent)
	return res
}

// CommissionAmount is betAmount × percent / 100, rounded to cents.
func CommissionAmount(betAmount, percent decimal.Decimal) decimal.Decimal {
	return betAmount.Mul(percent).Div(hundred).Round(2)
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	switch {
	case p.IsNegative():
		return decimal.Zero
	case p.GreaterThan(hundred):
		return hundred
	default:
		return p
	}
}

// ── Save-time validation ──────────────────────────────────────────────────────

var policyValidate = newPolicyValidator()

func newPolicyValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decimal ranges are checked with decimal comparisons, not through the
// validator: a float conversion would round 100.000000000000001 down to 100.

// ValidateCommissionPolicy runs at save time. Any issue rejects the whole
// document; there is no partial acceptance. A nil policy is the reset state
// and is valid.
func ValidateCommissionPolicy(policy *model.CommissionPolicyV1) ValidationResult {
	if policy == nil {
		return newResult(nil)
	}

	var issues []ValidationIssue
	if err := policyValidate.Struct(policy); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return newResult([]ValidationIssue{{Field: "policy", Message: err.Error()}})
		}
		for _, fe := range verrs {
			issues = append(issues, ValidationIssue{
				Field:   fieldPath(fe.Namespace()),
				Message: tagMessage(fe),
				Value:   fmt.Sprint(fe.Value()),
			})
		}
	}

	if policy.EffectiveFrom != nil && policy.EffectiveTo != nil && policy.EffectiveFrom.After(*policy.EffectiveTo) {
		issues = append(issues, ValidationIssue{
			Field:   "effectiveTo",
			Message: "effectiveTo debe ser posterior o igual a effectiveFrom",
			Value:   policy.EffectiveTo.Format(time.RFC3339),
		})
	}

	issues = appendPercentIssue(issues, "defaultPercent", policy.DefaultPercent)
	for i, rule := range policy.Rules {
		issues = appendPercentIssue(issues, fmt.Sprintf("rules[%d].percent", i), rule.Percent)
		for _, bound := range []struct {
			name  string
			value decimal.Decimal
		}{{"min", rule.MultiplierRange.Min}, {"max", rule.MultiplierRange.Max}} {
			if bound.value.IsNegative() {
				issues = append(issues, ValidationIssue{
					Field:   fmt.Sprintf("rules[%d].multiplierRange.%s", i, bound.name),
					Message: "debe ser mayor o igual a 0",
					Value:   bound.value.String(),
				})
			}
		}
		if rule.MultiplierRange.Min.GreaterThan(rule.MultiplierRange.Max) {
			issues = append(issues, ValidationIssue{
				Field:   fmt.Sprintf("rules[%d].multiplierRange", i),
				Message: "min debe ser menor o igual a max",
				Value:   fmt.Sprintf("[%s,%s]", rule.MultiplierRange.Min, rule.MultiplierRange.Max),
			})
		}
	}

	return newResult(issues)
}

func appendPercentIssue(issues []ValidationIssue, field string, p decimal.Decimal) []ValidationIssue {
	switch {
	case p.IsNegative():
		return append(issues, ValidationIssue{Field: field, Message: "debe ser mayor o igual a 0", Value: p.String()})
	case p.GreaterThan(hundred):
		return append(issues, ValidationIssue{Field: field, Message: "debe ser menor o igual a 100", Value: p.String()})
	}
	return issues
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "eq":
		return "versión de política no soportada, se espera " + fe.Param()
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	default:
		return "valor inválido (" + fe.Tag() + ")"
	}
}
