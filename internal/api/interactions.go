package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reconnecthq/reconnect/internal/pipeline"
	"github.com/reconnecthq/reconnect/internal/storage"
)

type SaveInteractionsRequest struct {
	ContactIDs []string         `json:"contact_ids"`
	Transcript string           `json:"transcript"`
	OccurredAt *time.Time       `json:"occurred_at"`
	Extracted  pipeline.Payload `json:"extracted"`
}

// SaveInteractionsResponse reports which contacts were committed. On
// partial failure Saved holds the interactions already written,
// FailedContactID names where the sequence stopped, and Error carries the
// cause. Committed rows are never rolled back.
type SaveInteractionsResponse struct {
	Saved           []SavedInteraction `json:"saved"`
	FailedContactID string             `json:"failed_contact_id,omitempty"`
	Error           string             `json:"error,omitempty"`
}

type SavedInteraction struct {
	InteractionID string `json:"interaction_id"`
	ContactID     string `json:"contact_id"`
}

// handleSaveInteractions files one reviewed note against each selected
// contact in order. Each save also persists the mentioned people and the
// payload's follow-up tasks for that contact.
func handleSaveInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req SaveInteractionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if len(req.ContactIDs) == 0 {
			httpError(w, http.StatusBadRequest, "contact_ids is required")
			return
		}
		if req.Transcript == "" {
			httpError(w, http.StatusBadRequest, "transcript is required")
			return
		}

		now := deps.Now().UTC()
		occurred := now
		if req.OccurredAt != nil {
			occurred = req.OccurredAt.UTC()
		}

		extractedJSON, err := json.Marshal(req.Extracted)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid extracted payload: %v", err)
			return
		}

		var resp SaveInteractionsResponse
		resp.Saved = []SavedInteraction{}
		for _, contactID := range req.ContactIDs {
			interactionID, err := saveOne(deps, contactID, req.Transcript, string(extractedJSON), req.Extracted, occurred, now)
			if err != nil {
				resp.FailedContactID = contactID
				resp.Error = err.Error()
				deps.Logger.Error("interaction save stopped",
					"contact_id", contactID, "saved", len(resp.Saved), "error", err)
				writeJSON(w, http.StatusInternalServerError, resp)
				return
			}
			resp.Saved = append(resp.Saved, SavedInteraction{InteractionID: interactionID, ContactID: contactID})
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func saveOne(deps AppDeps, contactID, transcript, extractedJSON string, payload pipeline.Payload, occurred, now time.Time) (string, error) {
	contact, err := deps.Store.GetContact(contactID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("contact %s not found", contactID)
	}
	if err != nil {
		return "", fmt.Errorf("loading contact: %w", err)
	}

	interaction := storage.Interaction{
		ID:         uuid.New().String(),
		OwnerID:    deps.Owner,
		ContactID:  contactID,
		Transcript: transcript,
		OccurredAt: occurred,
		Extracted:  extractedJSON,
		CreatedAt:  now,
	}
	if err := deps.Store.InsertInteraction(interaction); err != nil {
		return "", fmt.Errorf("saving interaction: %w", err)
	}

	for _, p := range payload.PeopleMentioned {
		if p.Name == "" {
			continue
		}
		person := storage.Person{
			ID:            uuid.New().String(),
			InteractionID: interaction.ID,
			ContactID:     contactID,
			Name:          p.Name,
			Relation:      p.Relation,
			OrgSchool:     p.OrgSchool,
			Location:      p.Location,
		}
		if err := deps.Store.InsertPerson(person); err != nil {
			return "", fmt.Errorf("saving mentioned person: %w", err)
		}
	}

	for _, f := range payload.Followups {
		if f.What == "" {
			continue
		}
		fu := storage.FollowUp{
			ID:            uuid.New().String(),
			OwnerID:       deps.Owner,
			ContactID:     contactID,
			InteractionID: interaction.ID,
			Task:          f.What,
			DueDate:       parseDueDate(f.Due),
			CreatedAt:     now,
		}
		if err := deps.Store.InsertFollowUp(fu); err != nil {
			return "", fmt.Errorf("saving follow-up: %w", err)
		}
	}

	// Check-in dates are fixed at contact creation; a new interaction does
	// not reschedule, which can leave the date stale.
	if contact.NextCheckin != nil && contact.NextCheckin.Before(now) {
		deps.Logger.Warn("check-in date already passed and is not rescheduled on save",
			"contact_id", contactID, "next_checkin", contact.NextCheckin)
	}

	return interaction.ID, nil
}

// parseDueDate accepts a day-granularity date from the extraction payload.
// Anything unparsable degrades to no due date rather than failing the save.
func parseDueDate(due *string) *time.Time {
	if due == nil || *due == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *due)
	if err != nil {
		return nil
	}
	return &t
}

type ReassignRequest struct {
	ContactID string `json:"contact_id"`
}

func handleReassignInteraction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req ReassignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.ContactID == "" {
			httpError(w, http.StatusBadRequest, "contact_id is required")
			return
		}

		if _, err := deps.Store.GetContact(req.ContactID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusBadRequest, "target contact %s not found", req.ContactID)
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "loading target contact: %v", err)
			return
		}

		id := chi.URLParam(r, "id")
		if err := deps.Store.ReassignInteraction(id, req.ContactID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "interaction not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "reassigning interaction: %v", err)
			return
		}

		interaction, err := deps.Store.GetInteraction(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, interaction)
	}
}

// handleUnassignedInteractions lists notes still filed against the
// owner's Unassigned placeholder.
func handleUnassignedInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unassignedID, err := deps.Registry.UnassignedID(deps.Owner)
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, []storage.Interaction{})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "resolving unassigned contact: %v", err)
			return
		}

		interactions, err := deps.Store.ListInteractionsByContact(unassignedID)
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
