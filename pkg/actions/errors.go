package actions

import (
	"errors"
	"fmt"

	"github.com/dukex/automation/pkg/models"
)

// ActionError wraps a failed action with the action it came from.
type ActionError struct {
	Op        string
	ActionID  string
	Kind      models.ActionKind
	MessageID string
	Err       error
}

func (e *ActionError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("%s failed for action %s (%s, message %s): %v", e.Op, e.ActionID, e.Kind, e.MessageID, e.Err)
	}

	return fmt.Sprintf("%s failed for action %s (%s): %v", e.Op, e.ActionID, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newActionError(op string, action *models.Action, messageID string, err error) *ActionError {
	return &ActionError{Op: op, ActionID: action.ID, Kind: action.Kind, MessageID: messageID, Err: err}
}

// IsActionError reports whether err came out of an action.
func IsActionError(err error) bool {
	var actionErr *ActionError

	return errors.As(err, &actionErr)
}
