// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates a rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrTemplateNotFound indicates a template was not found for the tenant.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMessageNotFound indicates an outbound message was not found.
	ErrMessageNotFound = errors.New("message not found")

	// ErrMessageAlreadyExists indicates a message with the same identifier was already created.
	ErrMessageAlreadyExists = errors.New("message already exists")

	// ErrContinuationNotFound indicates the rule has no pending continuation.
	ErrContinuationNotFound = errors.New("continuation not found")

	ErrTenantNotFound = errors.New("tenant not found")

	// ErrEntityNotFound indicates a domain entity (incase, client, ...) was not found.
	ErrEntityNotFound = errors.New("entity not found")
)

// RuleError wraps rule-related errors with additional context.
type RuleError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save")
	TenantID string
	RuleID   string
	Err      error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s operation failed for rule %s (tenant %s): %v", e.Op, e.RuleID, e.TenantID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for rule errors.
func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewRuleError(op, tenantID, ruleID string, err error) *RuleError {
	return &RuleError{Op: op, TenantID: tenantID, RuleID: ruleID, Err: err}
}

// EntityError wraps entity lookups with the entity type and id.
type EntityError struct {
	Op   string
	Type string
	ID   string
	Err  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Type, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewEntityError(op, entityType, id string, err error) *EntityError {
	return &EntityError{Op: op, Type: entityType, ID: id, Err: err}
}

func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsMessageNotFound(err error) bool {
	return errors.Is(err, ErrMessageNotFound)
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsContinuationNotFound(err error) bool {
	return errors.Is(err, ErrContinuationNotFound)
}

// IsNotFound reports any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrContinuationNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrEntityNotFound)
}
