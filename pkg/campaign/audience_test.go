package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/guestflow/guestflow/pkg/models"
)

func boolPtr(v bool) *bool { return &v }

func sampleGuests() []*models.Guest {
	checkedIn := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	return []*models.Guest{
		{ID: "g1", Name: "Alice", Category: "family", InvitationType: "ceremony", RSVPStatus: models.RSVPAccepted, Tags: []string{"vip"}, HasPlusOne: true},
		{ID: "g2", Name: "Bob", Category: "friends", InvitationType: "party", RSVPStatus: models.RSVPPending, Tags: []string{"college"}},
		{ID: "g3", Name: "Carol", Category: "family", InvitationType: "party", RSVPStatus: models.RSVPDeclined, CheckedInAt: &checkedIn},
		{ID: "g4", Name: "Dave", Category: "work", InvitationType: "ceremony", RSVPStatus: models.RSVPPending, Tags: []string{"vip", "college"}, HasPlusOne: true},
	}
}

func matchedIDs(guests []*models.Guest) []string {
	ids := make([]string, 0, len(guests))
	for _, g := range guests {
		ids = append(ids, g.ID)
	}

	return ids
}

func TestFilterGuests_CustomIDsOverrideEverything(t *testing.T) {
	filter := models.GuestFilter{
		CustomGuestIDs: []string{"g2", "g3", "does-not-exist"},
		Categories:     []string{"family"},
		Tags:           []string{"vip"},
	}

	matched := FilterGuests(sampleGuests(), filter)

	assert.Equal(t, []string{"g2", "g3"}, matchedIDs(matched),
		"explicit ids are the sole criterion; other predicates are ignored")
}

func TestFilterGuests_PredicatesAreANDed(t *testing.T) {
	tests := []struct {
		name   string
		filter models.GuestFilter
		want   []string
	}{
		{"empty filter matches all", models.GuestFilter{}, []string{"g1", "g2", "g3", "g4"}},
		{"category", models.GuestFilter{Categories: []string{"family"}}, []string{"g1", "g3"}},
		{"invitation type", models.GuestFilter{InvitationTypes: []string{"ceremony"}}, []string{"g1", "g4"}},
		{"rsvp status", models.GuestFilter{RSVPStatuses: []models.RSVPStatus{models.RSVPPending}}, []string{"g2", "g4"}},
		{"any tag matches", models.GuestFilter{Tags: []string{"vip", "college"}}, []string{"g1", "g2", "g4"}},
		{"has plus one", models.GuestFilter{HasPlusOne: boolPtr(true)}, []string{"g1", "g4"}},
		{"checked in", models.GuestFilter{CheckedIn: boolPtr(true)}, []string{"g3"}},
		{"not checked in", models.GuestFilter{CheckedIn: boolPtr(false)}, []string{"g1", "g2", "g4"}},
		{
			"combined",
			models.GuestFilter{Categories: []string{"family", "work"}, HasPlusOne: boolPtr(true), Tags: []string{"vip"}},
			[]string{"g1", "g4"},
		},
		{"no match", models.GuestFilter{Categories: []string{"family"}, InvitationTypes: []string{"brunch"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := FilterGuests(sampleGuests(), tt.filter)
			assert.Equal(t, tt.want, matchedIDs(matched))
		})
	}
}
