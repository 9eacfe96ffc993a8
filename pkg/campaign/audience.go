package campaign

import "github.com/guestflow/guestflow/pkg/models"

// FilterGuests resolves a campaign's audience. When the filter names explicit
// guest ids those are the sole criterion and every other field is ignored; an
// id with no matching guest is skipped. Otherwise each configured predicate
// narrows the set and all of them are ANDed.
func FilterGuests(guests []*models.Guest, filter models.GuestFilter) []*models.Guest {
	if len(filter.CustomGuestIDs) > 0 {
		wanted := make(map[string]bool, len(filter.CustomGuestIDs))
		for _, id := range filter.CustomGuestIDs {
			wanted[id] = true
		}

		var matched []*models.Guest

		for _, guest := range guests {
			if wanted[guest.ID] {
				matched = append(matched, guest)
			}
		}

		return matched
	}

	var matched []*models.Guest

	for _, guest := range guests {
		if matchesFilter(guest, filter) {
			matched = append(matched, guest)
		}
	}

	return matched
}

func matchesFilter(guest *models.Guest, filter models.GuestFilter) bool {
	if len(filter.Categories) > 0 && !containsString(filter.Categories, guest.Category) {
		return false
	}

	if len(filter.InvitationTypes) > 0 && !containsString(filter.InvitationTypes, guest.InvitationType) {
		return false
	}

	if len(filter.RSVPStatuses) > 0 && !containsStatus(filter.RSVPStatuses, guest.RSVPStatus) {
		return false
	}

	// Tag predicate: the guest matches when any filter tag is present.
	if len(filter.Tags) > 0 && !hasAnyTag(guest, filter.Tags) {
		return false
	}

	if filter.HasPlusOne != nil && guest.HasPlusOne != *filter.HasPlusOne {
		return false
	}

	if filter.CheckedIn != nil && (guest.CheckedInAt != nil) != *filter.CheckedIn {
		return false
	}

	return true
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}

func containsStatus(values []models.RSVPStatus, value models.RSVPStatus) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}

func hasAnyTag(guest *models.Guest, tags []string) bool {
	for _, tag := range tags {
		if guest.HasTag(tag) {
			return true
		}
	}

	return false
}
