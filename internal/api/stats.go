package api

import (
	"net/http"
	"time"

	"github.com/reconnecthq/reconnect/internal/registry"
)

type StatsResponse struct {
	Contacts       int `json:"contacts"`
	NotesThisMonth int `json:"notes_this_month"`
}

// handleStats serves the dashboard counters: non-system contacts and
// notes recorded since the start of the current calendar month.
func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := deps.Store.ListContacts(deps.Owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing contacts: %v", err)
			return
		}
		total := 0
		for _, c := range contacts {
			if !registry.IsSpecial(c.DisplayName) {
				total++
			}
		}

		now := deps.Now().UTC()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		notes, err := deps.Store.CountInteractionsSince(deps.Owner, monthStart)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "counting notes: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, StatsResponse{Contacts: total, NotesThisMonth: notes})
	}
}
