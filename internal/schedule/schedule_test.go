package schedule

import (
	"testing"
	"time"

	"github.com/reconnecthq/reconnect/internal/storage"
)

var now = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func TestNextCheckin(t *testing.T) {
	got := NextCheckin(intPtr(14), now)
	if got == nil {
		t.Fatal("expected a check-in date")
	}
	want := now.AddDate(0, 0, 14)
	if !got.Equal(want) {
		t.Fatalf("NextCheckin = %v, want %v", got, want)
	}
}

func TestNextCheckinNilCadence(t *testing.T) {
	if got := NextCheckin(nil, now); got != nil {
		t.Fatalf("expected nil check-in for nil cadence, got %v", got)
	}
}

func TestNextCheckinNonPositiveCadence(t *testing.T) {
	for _, days := range []int{0, -3} {
		if got := NextCheckin(intPtr(days), now); got != nil {
			t.Errorf("cadence %d: expected nil check-in, got %v", days, got)
		}
	}
}

func TestIsDue(t *testing.T) {
	cases := []struct {
		name string
		next *time.Time
		want bool
	}{
		{"past", timePtr(now.Add(-time.Hour)), true},
		{"exactly now", timePtr(now), true},
		{"future", timePtr(now.Add(time.Hour)), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := IsDue(tc.next, now); got != tc.want {
			t.Errorf("%s: IsDue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsRecent(t *testing.T) {
	cases := []struct {
		name string
		last time.Time
		want bool
	}{
		{"yesterday", now.AddDate(0, 0, -1), true},
		{"exactly seven days", now.Add(-RecentWindow), true},
		{"eight days ago", now.AddDate(0, 0, -8), false},
		{"future", now.Add(time.Hour), false},
	}
	for _, tc := range cases {
		if got := IsRecent(tc.last, now); got != tc.want {
			t.Errorf("%s: IsRecent = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSortByName(t *testing.T) {
	contacts := []storage.Contact{
		{ID: "1", DisplayName: "charlie"},
		{ID: "2", DisplayName: "Alice"},
		{ID: "3", DisplayName: "bob"},
	}
	SortByName(contacts)
	want := []string{"Alice", "bob", "charlie"}
	for i, name := range want {
		if contacts[i].DisplayName != name {
			t.Fatalf("position %d: got %s, want %s", i, contacts[i].DisplayName, name)
		}
	}
}

func TestSortByRecency(t *testing.T) {
	contacts := []storage.Contact{
		{ID: "never"},
		{ID: "old"},
		{ID: "fresh"},
	}
	last := map[string]time.Time{
		"old":   now.AddDate(0, 0, -30),
		"fresh": now.AddDate(0, 0, -1),
	}
	SortByRecency(contacts, last)
	want := []string{"fresh", "old", "never"}
	for i, id := range want {
		if contacts[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, contacts[i].ID, id)
		}
	}
}

func TestSortByDueDateNullLast(t *testing.T) {
	contacts := []storage.Contact{
		{ID: "bob", DisplayName: "Bob"},
		{ID: "amy", DisplayName: "Amy", NextCheckin: timePtr(now.AddDate(0, 0, 1))},
	}
	SortByDueDate(contacts)
	if contacts[0].ID != "amy" || contacts[1].ID != "bob" {
		t.Fatalf("got order [%s, %s], want [amy, bob]", contacts[0].ID, contacts[1].ID)
	}
}

func TestSortByDueDateSoonestFirst(t *testing.T) {
	contacts := []storage.Contact{
		{ID: "late", NextCheckin: timePtr(now.AddDate(0, 0, 10))},
		{ID: "none"},
		{ID: "soon", NextCheckin: timePtr(now.AddDate(0, 0, 2))},
		{ID: "overdue", NextCheckin: timePtr(now.AddDate(0, 0, -3))},
	}
	SortByDueDate(contacts)
	want := []string{"overdue", "soon", "late", "none"}
	for i, id := range want {
		if contacts[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, contacts[i].ID, id)
		}
	}
}
