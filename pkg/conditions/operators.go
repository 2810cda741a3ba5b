package conditions

import (
	"strconv"
	"strings"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/models"
)

// OperatorFunc compares a resolved field against the condition's literal value.
type OperatorFunc func(field fieldbag.Value, value string) bool

func defaultOperators() map[models.Operator]OperatorFunc {
	return map[models.Operator]OperatorFunc{
		models.OperatorEquals:      operatorEquals,
		models.OperatorNotEquals:   operatorNotEquals,
		models.OperatorContains:    operatorContains,
		models.OperatorPresent:     operatorPresent,
		models.OperatorBlank:       operatorBlank,
		models.OperatorGreaterThan: operatorGreaterThan,
		models.OperatorLessThan:    operatorLessThan,
		models.OperatorIsTrue:      operatorIsTrue,
		models.OperatorIsFalse:     operatorIsFalse,
	}
}

// Boolean fields compare against the literals "true" and "false".
func operatorEquals(field fieldbag.Value, value string) bool {
	if b, ok := field.Bool(); ok {
		switch value {
		case "true":
			return b
		case "false":
			return !b
		}
	}

	return field.String() == value
}

func operatorNotEquals(field fieldbag.Value, value string) bool {
	return !operatorEquals(field, value)
}

func operatorContains(field fieldbag.Value, value string) bool {
	switch field.Kind() {
	case fieldbag.KindList:
		for _, item := range field.Items() {
			if item.String() == value {
				return true
			}
		}

		return false
	case fieldbag.KindNil:
		return false
	default:
		return strings.Contains(field.String(), value)
	}
}

func operatorPresent(field fieldbag.Value, _ string) bool {
	return !field.Empty()
}

func operatorBlank(field fieldbag.Value, _ string) bool {
	return field.Empty()
}

func operatorGreaterThan(field fieldbag.Value, value string) bool {
	return field.Float() > parseFloat(value)
}

func operatorLessThan(field fieldbag.Value, value string) bool {
	return field.Float() < parseFloat(value)
}

func operatorIsTrue(field fieldbag.Value, _ string) bool {
	if b, ok := field.Bool(); ok {
		return b
	}

	return field.Kind() == fieldbag.KindString && strings.TrimSpace(field.String()) == "true"
}

func operatorIsFalse(field fieldbag.Value, _ string) bool {
	if b, ok := field.Bool(); ok {
		return !b
	}

	return field.Kind() == fieldbag.KindString && strings.TrimSpace(field.String()) == "false"
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}

	return f
}
