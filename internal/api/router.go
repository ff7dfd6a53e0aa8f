// Package api serves the HTTP surface of the daemon and the MCP server
// that exposes the same operations to agent tooling.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reconnecthq/reconnect/internal/pipeline"
	"github.com/reconnecthq/reconnect/internal/registry"
	"github.com/reconnecthq/reconnect/internal/storage"
)

const maxRequestBodySize = 1 << 20  // 1MB
const maxAudioUploadSize = 25 << 20 // 25MB, the provider's transcription cap

// Processor runs captured audio through transcription and extraction.
type Processor interface {
	Process(ctx context.Context, audio []byte, filename string) (pipeline.Result, error)
}

type AppDeps struct {
	Store    *storage.Store
	Registry *registry.Registry
	Pipeline Processor
	Owner    string
	// Token protects the API; empty disables auth for loopback setups.
	Token  string
	Logger *slog.Logger
	Now    func() time.Time
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(CORS)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Post("/process", handleProcess(deps))

		r.Post("/contacts", handleCreateContact(deps))
		r.Get("/contacts", handleListContacts(deps))
		r.Get("/contacts/up-next", handleUpNext(deps))
		r.Get("/contacts/{id}", handleGetContact(deps))
		r.Get("/contacts/{id}/interactions", handleContactInteractions(deps))
		r.Get("/contacts/{id}/people", handleContactPeople(deps))

		r.Post("/interactions", handleSaveInteractions(deps))
		r.Get("/interactions/unassigned", handleUnassignedInteractions(deps))
		r.Patch("/interactions/{id}", handleReassignInteraction(deps))

		r.Get("/followups", handleListFollowUps(deps))
		r.Post("/followups", handleCreateFollowUp(deps))
		r.Patch("/followups/{id}", handleToggleFollowUp(deps))

		r.Get("/stats", handleStats(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}
