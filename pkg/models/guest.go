package models

import "time"

// RSVPStatus represents a guest's attendance confirmation status.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// Guest is a messaging recipient within a project.
type Guest struct {
	ID               string     `json:"id"`
	ProjectID        string     `json:"project_id"`
	Name             string     `json:"name"  validate:"required"`
	Phone            string     `json:"phone" validate:"required"`
	Category         string     `json:"category,omitempty"`
	InvitationType   string     `json:"invitation_type,omitempty"`
	RSVPStatus       RSVPStatus `json:"rsvp_status"`
	Tags             []string   `json:"tags,omitempty"`
	HasPlusOne       bool       `json:"has_plus_one"`
	PlusOneConfirmed bool       `json:"plus_one_confirmed"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasTag reports whether the guest carries the given tag.
func (g *Guest) HasTag(tag string) bool {
	for _, t := range g.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// AddTags merges the given tags into the guest's tag set. Merging is a set
// union, not an overwrite.
func (g *Guest) AddTags(tags []string) {
	for _, t := range tags {
		if !g.HasTag(t) {
			g.Tags = append(g.Tags, t)
		}
	}
}

// GuestFilter selects the audience of a campaign. When CustomGuestIDs is
// non-empty it is the sole criterion and every other field is ignored.
type GuestFilter struct {
	CustomGuestIDs  []string     `json:"custom_guest_ids,omitempty"`
	Categories      []string     `json:"categories,omitempty"`
	InvitationTypes []string     `json:"invitation_types,omitempty"`
	RSVPStatuses    []RSVPStatus `json:"rsvp_statuses,omitempty"`
	Tags            []string     `json:"tags,omitempty"`
	HasPlusOne      *bool        `json:"has_plus_one,omitempty"`
	CheckedIn       *bool        `json:"checked_in,omitempty"`
}
