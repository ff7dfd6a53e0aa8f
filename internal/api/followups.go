package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reconnecthq/reconnect/internal/followups"
	"github.com/reconnecthq/reconnect/internal/storage"
)

func handleListFollowUps(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := followups.ParseFilter(r.URL.Query().Get("filter"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}

		all, err := deps.Store.ListFollowUps(deps.Owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing follow-ups: %v", err)
			return
		}

		filtered := followups.Apply(all, filter, deps.Now())
		if filtered == nil {
			filtered = []storage.FollowUp{}
		}
		writeJSON(w, http.StatusOK, filtered)
	}
}

type CreateFollowUpRequest struct {
	ContactID string  `json:"contact_id"`
	Task      string  `json:"task"`
	DueDate   *string `json:"due_date"` // 2006-01-02
}

func handleCreateFollowUp(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req CreateFollowUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Task == "" {
			httpError(w, http.StatusBadRequest, "task is required")
			return
		}
		if req.ContactID == "" {
			httpError(w, http.StatusBadRequest, "contact_id is required")
			return
		}
		if _, err := deps.Store.GetContact(req.ContactID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusBadRequest, "contact %s not found", req.ContactID)
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "loading contact: %v", err)
			return
		}

		f := storage.FollowUp{
			ID:        uuid.New().String(),
			OwnerID:   deps.Owner,
			ContactID: req.ContactID,
			Task:      req.Task,
			DueDate:   parseDueDate(req.DueDate),
			CreatedAt: deps.Now().UTC(),
		}
		if req.DueDate != nil && *req.DueDate != "" && f.DueDate == nil {
			httpError(w, http.StatusBadRequest, "due_date must be formatted 2006-01-02")
			return
		}

		if err := deps.Store.InsertFollowUp(f); err != nil {
			httpError(w, http.StatusInternalServerError, "saving follow-up: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	}
}

type ToggleFollowUpRequest struct {
	Completed bool `json:"completed"`
}

func handleToggleFollowUp(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req ToggleFollowUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		id := chi.URLParam(r, "id")
		var completedAt *time.Time
		if req.Completed {
			t := deps.Now().UTC()
			completedAt = &t
		}
		if err := deps.Store.SetFollowUpCompleted(id, req.Completed, completedAt); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "follow-up not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "updating follow-up: %v", err)
			return
		}

		f, err := deps.Store.GetFollowUp(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading follow-up: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}
