package models

// Operator is the comparison applied by a leaf condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorPresent     Operator = "present"
	OperatorBlank       Operator = "blank"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIsTrue      Operator = "is_true"
	OperatorIsFalse     Operator = "is_false"
)

// Condition is a single field/operator/value comparison.
type Condition struct {
	Field    string   `json:"field"           yaml:"field"    validate:"required"`
	Operator Operator `json:"operator"        yaml:"operator" validate:"required"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// ConditionMode selects how a condition step is evaluated.
type ConditionMode string

const (
	// ConditionModeStructured evaluates the leaf list with the configured logic.
	ConditionModeStructured ConditionMode = "structured"
	// ConditionModeTemplate renders Template and matches on the legacy marker token.
	ConditionModeTemplate ConditionMode = "template"
	// ConditionModeExpression runs Expression as a boolean expr program.
	ConditionModeExpression ConditionMode = "expression"
)

// Logic combines leaf results.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

type ConditionSpec struct {
	Mode       ConditionMode `json:"mode,omitempty"       yaml:"mode,omitempty"`
	Logic      Logic         `json:"logic,omitempty"      yaml:"logic,omitempty"`
	Conditions []Condition   `json:"conditions,omitempty" yaml:"conditions,omitempty" validate:"dive"`
	Template   string        `json:"template,omitempty"   yaml:"template,omitempty"`
	Expression string        `json:"expression,omitempty" yaml:"expression,omitempty"`
}
