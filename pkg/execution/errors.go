package execution

import (
	"errors"
	"fmt"

	"github.com/guestflow/guestflow/pkg/models"
)

// ErrInvalidTransition is the sentinel every TransitionError matches.
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError reports an action attempted from a status that does not
// permit it.
type TransitionError struct {
	ExecutionID string
	Action      string
	From        models.ExecutionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s execution %s in status %s", e.Action, e.ExecutionID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func newTransitionError(action string, execution *models.ChatflowExecution) *TransitionError {
	return &TransitionError{
		ExecutionID: execution.ID,
		Action:      action,
		From:        execution.Status,
	}
}
