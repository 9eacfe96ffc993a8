package campaign

import (
	"errors"
	"fmt"

	"github.com/guestflow/guestflow/pkg/models"
)

// ErrEmptyAudience is returned when a campaign start matches zero guests. No
// executions are created in that case.
var ErrEmptyAudience = errors.New("no guests matched the campaign audience")

// ErrInvalidTransition is the sentinel every TransitionError matches.
var ErrInvalidTransition = errors.New("invalid campaign state transition")

// TransitionError reports a campaign action attempted from a status that
// does not permit it.
type TransitionError struct {
	CampaignID string
	Action     string
	From       models.CampaignStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s campaign %s in status %s", e.Action, e.CampaignID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func newTransitionError(action string, campaign *models.Campaign) *TransitionError {
	return &TransitionError{
		CampaignID: campaign.ID,
		Action:     action,
		From:       campaign.Status,
	}
}
