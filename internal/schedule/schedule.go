// Package schedule computes contact check-in dates and provides the contact
// orderings the list endpoints expose.
package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/reconnecthq/reconnect/internal/storage"
)

// RecentWindow is the trailing span within which an interaction counts as
// recent for the up-next view.
const RecentWindow = 7 * 24 * time.Hour

// NextCheckin returns now plus the cadence in days. Only a positive cadence
// produces a check-in date; nil or non-positive cadences return nil.
func NextCheckin(cadenceDays *int, now time.Time) *time.Time {
	if cadenceDays == nil || *cadenceDays <= 0 {
		return nil
	}
	t := now.UTC().AddDate(0, 0, *cadenceDays)
	return &t
}

// IsDue reports whether a check-in date has arrived. A nil date is never due.
func IsDue(nextCheckin *time.Time, now time.Time) bool {
	if nextCheckin == nil {
		return false
	}
	return !nextCheckin.After(now)
}

// IsRecent reports whether an interaction time falls within the trailing
// recent window ending at now.
func IsRecent(lastInteraction time.Time, now time.Time) bool {
	if lastInteraction.After(now) {
		return false
	}
	return now.Sub(lastInteraction) <= RecentWindow
}

// SortByName orders contacts by display name, case-insensitively. Ties keep
// their relative order.
func SortByName(contacts []storage.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].DisplayName) < strings.ToLower(contacts[j].DisplayName)
	})
}

// SortByRecency orders contacts by most recent interaction first. Contacts
// absent from the map have never been interacted with and sort last.
func SortByRecency(contacts []storage.Contact, lastInteraction map[string]time.Time) {
	sort.SliceStable(contacts, func(i, j int) bool {
		ti, okI := lastInteraction[contacts[i].ID]
		tj, okJ := lastInteraction[contacts[j].ID]
		if okI != okJ {
			return okI
		}
		if !okI {
			return false
		}
		return ti.After(tj)
	})
}

// SortByDueDate orders contacts by next check-in, soonest first. Contacts
// without a check-in date sort last.
func SortByDueDate(contacts []storage.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		di, dj := contacts[i].NextCheckin, contacts[j].NextCheckin
		if (di == nil) != (dj == nil) {
			return di != nil
		}
		if di == nil {
			return false
		}
		return di.Before(*dj)
	})
}
