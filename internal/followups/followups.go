// Package followups classifies follow-up tasks into the due buckets the
// list views expose. All comparisons work at day granularity: hours never
// change which bucket a task falls in.
package followups

import (
	"fmt"
	"time"

	"github.com/reconnecthq/reconnect/internal/storage"
)

// Filter selects which follow-ups a list view shows.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterOverdue Filter = "overdue"
	FilterToday   Filter = "today"
	FilterWeek    Filter = "week"
)

// ParseFilter validates a filter string. The empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterOverdue, FilterToday, FilterWeek:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown follow-up filter %q", s)
}

// Day truncates a time to midnight UTC of the same date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Matches reports whether a follow-up belongs to the filter's bucket as of
// now. Completed tasks only appear under all. Tasks without a due date
// appear under all and nowhere else.
func Matches(f storage.FollowUp, filter Filter, now time.Time) bool {
	if filter == FilterAll {
		return true
	}
	if f.Completed || f.DueDate == nil {
		return false
	}
	due := Day(*f.DueDate)
	today := Day(now)
	switch filter {
	case FilterOverdue:
		return due.Before(today)
	case FilterToday:
		return due.Equal(today)
	case FilterWeek:
		// Today through seven days ahead, inclusive.
		return !due.Before(today) && !due.After(today.AddDate(0, 0, 7))
	}
	return false
}

// Apply filters a follow-up slice in order.
func Apply(fs []storage.FollowUp, filter Filter, now time.Time) []storage.FollowUp {
	if filter == FilterAll {
		return fs
	}
	out := make([]storage.FollowUp, 0, len(fs))
	for _, f := range fs {
		if Matches(f, filter, now) {
			out = append(out, f)
		}
	}
	return out
}
