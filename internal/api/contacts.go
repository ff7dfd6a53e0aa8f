package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reconnecthq/reconnect/internal/registry"
	"github.com/reconnecthq/reconnect/internal/schedule"
	"github.com/reconnecthq/reconnect/internal/storage"
)

type CreateContactRequest struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	CadenceDays *int   `json:"cadence_days"`
	Notes       string `json:"notes"`
}

// ContactView is a contact plus its most recent interaction time. A
// contact never interacted with carries null, not an error.
type ContactView struct {
	storage.Contact
	LastInteraction *time.Time `json:"last_interaction"`
}

func handleCreateContact(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req CreateContactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.DisplayName == "" {
			httpError(w, http.StatusBadRequest, "display_name is required")
			return
		}
		if registry.IsSpecial(req.DisplayName) {
			httpError(w, http.StatusBadRequest, "%q is a reserved contact name", req.DisplayName)
			return
		}
		if req.CadenceDays != nil && *req.CadenceDays <= 0 {
			httpError(w, http.StatusBadRequest, "cadence_days must be positive")
			return
		}

		now := deps.Now().UTC()
		c := storage.Contact{
			ID:          uuid.New().String(),
			OwnerID:     deps.Owner,
			DisplayName: req.DisplayName,
			Phone:       req.Phone,
			Email:       req.Email,
			CadenceDays: req.CadenceDays,
			NextCheckin: schedule.NextCheckin(req.CadenceDays, now),
			Notes:       req.Notes,
			CreatedAt:   now,
		}
		if err := deps.Store.InsertContact(c); err != nil {
			httpError(w, http.StatusInternalServerError, "saving contact: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func handleListContacts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := deps.Store.ListContacts(deps.Owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing contacts: %v", err)
			return
		}

		visible := contacts[:0]
		for _, c := range contacts {
			if !registry.IsSpecial(c.DisplayName) {
				visible = append(visible, c)
			}
		}
		contacts = visible

		last, err := deps.Store.LastInteractionTimes(deps.Owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading interaction times: %v", err)
			return
		}

		switch sort := r.URL.Query().Get("sort"); sort {
		case "", "name":
			schedule.SortByName(contacts)
		case "recency":
			schedule.SortByRecency(contacts, last)
		case "due":
			schedule.SortByDueDate(contacts)
		default:
			httpError(w, http.StatusBadRequest, "unknown sort %q", sort)
			return
		}

		writeJSON(w, http.StatusOK, contactViews(contacts, last))
	}
}

func handleUpNext(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := deps.Store.ListContacts(deps.Owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing contacts: %v", err)
			return
		}

		now := deps.Now()
		due := contacts[:0]
		for _, c := range contacts {
			if schedule.IsDue(c.NextCheckin, now) {
				due = append(due, c)
			}
		}
		schedule.SortByDueDate(due)

		last, err := deps.Store.LastInteractionTimes(deps.Owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading interaction times: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, contactViews(due, last))
	}
}

func handleGetContact(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Store.GetContact(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "contact not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading contact: %v", err)
			return
		}

		last, err := deps.Store.LastInteractionTimes(deps.Owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading interaction times: %v", err)
			return
		}
		views := contactViews([]storage.Contact{c}, last)
		writeJSON(w, http.StatusOK, views[0])
	}
}

func handleContactInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetContact(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "contact not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "loading contact: %v", err)
			return
		}

		interactions, err := deps.Store.ListInteractionsByContact(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}
		writeJSON(w, http.StatusOK, interactions)
	}
}

func handleContactPeople(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetContact(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "contact not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "loading contact: %v", err)
			return
		}

		people, err := deps.Store.ListPeopleByContact(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing people: %v", err)
			return
		}
		if people == nil {
			people = []storage.Person{}
		}
		writeJSON(w, http.StatusOK, people)
	}
}

func contactViews(contacts []storage.Contact, last map[string]time.Time) []ContactView {
	views := make([]ContactView, 0, len(contacts))
	for _, c := range contacts {
		v := ContactView{Contact: c}
		if t, ok := last[c.ID]; ok {
			v.LastInteraction = &t
		}
		views = append(views, v)
	}
	return views
}
