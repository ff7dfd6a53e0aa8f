package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Contact is one person the owner stays in touch with. The reserved
// display names "Self" and "Unassigned" mark per-owner system contacts;
// those never carry a cadence.
type Contact struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	DisplayName string     `json:"display_name"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	CadenceDays *int       `json:"cadence_days"`
	NextCheckin *time.Time `json:"next_checkin_date"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Interaction is one recorded conversation filed against a contact.
// Transcript and OccurredAt are immutable after insert; only ContactID
// may be reassigned later (re-filing from Unassigned).
type Interaction struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	ContactID  string    `json:"contact_id"`
	Transcript string    `json:"transcript"`
	OccurredAt time.Time `json:"occurred_at"`
	Extracted  string    `json:"extracted"` // payload JSON stored as text
	CreatedAt  time.Time `json:"created_at"`
}

// Person is a human mentioned inside an interaction's extracted data,
// back-referenced to the contact the interaction was filed against.
type Person struct {
	ID            string  `json:"id"`
	InteractionID string  `json:"interaction_id"`
	ContactID     string  `json:"contact_id"`
	Name          string  `json:"name"`
	Relation      *string `json:"relation"`
	OrgSchool     *string `json:"org_school"`
	Location      *string `json:"location"`
}

// FollowUp is an actionable task derived from an interaction (or created
// manually). Only the completed flag and its timestamp ever change.
type FollowUp struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	ContactID     string     `json:"contact_id"`
	InteractionID string     `json:"interaction_id,omitempty"`
	Task          string     `json:"task"`
	DueDate       *time.Time `json:"due_date"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
}
