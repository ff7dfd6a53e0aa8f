// Package registry maintains the two reserved system contacts every owner
// carries: "Self" for personal notes and "Unassigned" as the placeholder a
// note is filed against until it is linked to a real person.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reconnecthq/reconnect/internal/storage"
)

// Reserved display names. Exactly one contact of each must exist per owner.
const (
	SelfName       = "Self"
	UnassignedName = "Unassigned"
)

// ErrDuplicateSpecial is returned by the id lookups when more than one
// contact carries a reserved name. Callers must reconcile; the lookups
// never silently pick one.
var ErrDuplicateSpecial = errors.New("duplicate system contact")

// IsSpecial reports whether a display name is reserved for system contacts.
func IsSpecial(name string) bool {
	return name == SelfName || name == UnassignedName
}

// ContactStore is the slice of persistence the registry needs.
type ContactStore interface {
	ContactsByName(owner, name string) ([]storage.Contact, error)
	InsertContact(c storage.Contact) error
	DeleteContacts(ids []string) error
}

// Registry ensures and repairs the system contacts for an owner.
type Registry struct {
	store ContactStore
	now   func() time.Time
}

// New creates a Registry. A nil clock uses time.Now.
func New(store ContactStore, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{store: store, now: now}
}

// Ensure creates whichever of the two system contacts is missing for the
// owner and returns both ids. It is idempotent in intent but not atomic:
// two racing callers can each observe "missing" and each insert, leaving
// duplicates for Reconcile to repair.
func (r *Registry) Ensure(owner string) (selfID, unassignedID string, err error) {
	selfID, err = r.ensureOne(owner, SelfName, "Personal notes to self")
	if err != nil {
		return "", "", err
	}
	unassignedID, err = r.ensureOne(owner, UnassignedName, "Temporary placeholder for unassigned notes")
	if err != nil {
		return "", "", err
	}
	return selfID, unassignedID, nil
}

func (r *Registry) ensureOne(owner, name, notes string) (string, error) {
	existing, err := r.store.ContactsByName(owner, name)
	if err != nil {
		return "", fmt.Errorf("looking up %s contact: %w", name, err)
	}
	if len(existing) > 0 {
		// Earliest-created wins, same as Reconcile.
		return existing[0].ID, nil
	}

	c := storage.Contact{
		ID:          uuid.New().String(),
		OwnerID:     owner,
		DisplayName: name,
		Notes:       notes,
		CreatedAt:   r.now().UTC(),
		// System contacts never carry a cadence, so no check-in date either.
	}
	if err := r.store.InsertContact(c); err != nil {
		return "", fmt.Errorf("creating %s contact: %w", name, err)
	}
	return c.ID, nil
}

// Reconcile repairs duplicates of one reserved name for the owner: the
// earliest-created contact is retained, the rest are deleted. It returns
// the number of rows removed. This is remediation for the Ensure race, not
// prevention; a storage-level uniqueness constraint is the long-term fix.
func (r *Registry) Reconcile(owner, name string) (int, error) {
	if !IsSpecial(name) {
		return 0, fmt.Errorf("%q is not a reserved contact name", name)
	}

	contacts, err := r.store.ContactsByName(owner, name)
	if err != nil {
		return 0, fmt.Errorf("looking up %s contacts: %w", name, err)
	}
	if len(contacts) <= 1 {
		return 0, nil
	}

	ids := make([]string, 0, len(contacts)-1)
	for _, c := range contacts[1:] {
		ids = append(ids, c.ID)
	}
	if err := r.store.DeleteContacts(ids); err != nil {
		return 0, fmt.Errorf("deleting duplicate %s contacts: %w", name, err)
	}
	return len(ids), nil
}

// SelfID returns the id of the owner's Self contact.
func (r *Registry) SelfID(owner string) (string, error) {
	return r.lookupOne(owner, SelfName)
}

// UnassignedID returns the id of the owner's Unassigned contact.
func (r *Registry) UnassignedID(owner string) (string, error) {
	return r.lookupOne(owner, UnassignedName)
}

func (r *Registry) lookupOne(owner, name string) (string, error) {
	contacts, err := r.store.ContactsByName(owner, name)
	if err != nil {
		return "", fmt.Errorf("looking up %s contact: %w", name, err)
	}
	switch len(contacts) {
	case 0:
		return "", storage.ErrNotFound
	case 1:
		return contacts[0].ID, nil
	default:
		return "", fmt.Errorf("%w: %d %s contacts", ErrDuplicateSpecial, len(contacts), name)
	}
}
