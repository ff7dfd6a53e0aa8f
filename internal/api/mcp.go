package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/reconnecthq/reconnect/internal/followups"
	"github.com/reconnecthq/reconnect/internal/registry"
	"github.com/reconnecthq/reconnect/internal/schedule"
	"github.com/reconnecthq/reconnect/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Registry *registry.Registry
	Owner    string
	Now      func() time.Time
}

// NewMCPServer creates an MCP server exposing the contact records to
// agent clients over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := server.NewMCPServer(
		"reconnect",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("reconnect — local store of voice-note conversations, contacts, check-ins, and follow-ups."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("log_note",
			mcp.WithDescription("File a text note against a contact. Without contact_id the note goes to the Unassigned placeholder for later re-filing."),
			mcp.WithString("transcript", mcp.Description("The note text"), mcp.Required()),
			mcp.WithString("contact_id", mcp.Description("Contact to file the note against")),
		),
		mcpLogNote(deps),
	)

	s.AddTool(
		mcp.NewTool("due_checkins",
			mcp.WithDescription("List contacts whose check-in date has arrived, soonest first."),
		),
		mcpDueCheckins(deps),
	)

	s.AddTool(
		mcp.NewTool("list_followups",
			mcp.WithDescription("List follow-up tasks, optionally filtered by due bucket."),
			mcp.WithString("filter", mcp.Description("One of all, overdue, today, week (default all)")),
		),
		mcpListFollowUps(deps),
	)

	s.AddTool(
		mcp.NewTool("complete_followup",
			mcp.WithDescription("Mark a follow-up task completed (or open again with completed=false)."),
			mcp.WithString("id", mcp.Description("Follow-up id"), mcp.Required()),
			mcp.WithBoolean("completed", mcp.Description("Completion state (default true)")),
		),
		mcpCompleteFollowUp(deps),
	)

	s.AddTool(
		mcp.NewTool("reassign_note",
			mcp.WithDescription("Re-file a note against a different contact. Transcript and occurrence time never change."),
			mcp.WithString("id", mcp.Description("Interaction id"), mcp.Required()),
			mcp.WithString("contact_id", mcp.Description("Target contact id"), mcp.Required()),
		),
		mcpReassignNote(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"notes://recent",
			"Recent Notes",
			mcp.WithResourceDescription("Last 10 recorded notes (transcript excerpts)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpLogNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		transcript, err := req.RequireString("transcript")
		if err != nil {
			return mcpError("transcript is required"), nil
		}

		contactID := req.GetString("contact_id", "")
		if contactID == "" {
			contactID, err = deps.Registry.UnassignedID(deps.Owner)
			if err != nil {
				return mcpError(fmt.Sprintf("resolving unassigned contact: %v", err)), nil
			}
		} else if _, err := deps.Store.GetContact(contactID); err != nil {
			return mcpError(fmt.Sprintf("contact %s: %v", contactID, err)), nil
		}

		now := deps.Now().UTC()
		interaction := storage.Interaction{
			ID:         uuid.New().String(),
			OwnerID:    deps.Owner,
			ContactID:  contactID,
			Transcript: transcript,
			OccurredAt: now,
			Extracted:  "{}",
			CreatedAt:  now,
		}
		if err := deps.Store.InsertInteraction(interaction); err != nil {
			return mcpError(fmt.Sprintf("failed to save note: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Filed note %s against contact %s", interaction.ID, contactID)), nil
	}
}

func mcpDueCheckins(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contacts, err := deps.Store.ListContacts(deps.Owner)
		if err != nil {
			return mcpError(fmt.Sprintf("listing contacts: %v", err)), nil
		}

		now := deps.Now()
		due := contacts[:0]
		for _, c := range contacts {
			if schedule.IsDue(c.NextCheckin, now) {
				due = append(due, c)
			}
		}
		schedule.SortByDueDate(due)

		type checkin struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
			NextCheckin string `json:"next_checkin"`
		}
		results := make([]checkin, len(due))
		for i, c := range due {
			results[i] = checkin{
				ID:          c.ID,
				DisplayName: c.DisplayName,
				NextCheckin: c.NextCheckin.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal check-ins: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListFollowUps(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter, err := followups.ParseFilter(req.GetString("filter", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		all, err := deps.Store.ListFollowUps(deps.Owner)
		if err != nil {
			return mcpError(fmt.Sprintf("listing follow-ups: %v", err)), nil
		}
		filtered := followups.Apply(all, filter, deps.Now())

		b, err := json.Marshal(filtered)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal follow-ups: %v", err)), nil
		}
		if filtered == nil {
			return mcpText("[]"), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCompleteFollowUp(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		completed := req.GetBool("completed", true)

		var completedAt *time.Time
		if completed {
			t := deps.Now().UTC()
			completedAt = &t
		}
		if err := deps.Store.SetFollowUpCompleted(id, completed, completedAt); err != nil {
			return mcpError(fmt.Sprintf("updating follow-up: %v", err)), nil
		}

		state := "open"
		if completed {
			state = "completed"
		}
		return mcpText(fmt.Sprintf("Follow-up %s is now %s", id, state)), nil
	}
}

func mcpReassignNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		contactID, err := req.RequireString("contact_id")
		if err != nil {
			return mcpError("contact_id is required"), nil
		}

		if _, err := deps.Store.GetContact(contactID); err != nil {
			return mcpError(fmt.Sprintf("contact %s: %v", contactID, err)), nil
		}
		if err := deps.Store.ReassignInteraction(id, contactID); err != nil {
			return mcpError(fmt.Sprintf("reassigning note: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Note %s re-filed to contact %s", id, contactID)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.ListRecentInteractions(deps.Owner, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent notes: %w", err)
		}

		type noteSummary struct {
			ID         string `json:"id"`
			ContactID  string `json:"contact_id"`
			OccurredAt string `json:"occurred_at"`
			Transcript string `json:"transcript"`
		}

		summaries := make([]noteSummary, len(interactions))
		for i, ix := range interactions {
			transcript := ix.Transcript
			if utf8.RuneCountInString(transcript) > 200 {
				runes := []rune(transcript)
				transcript = string(runes[:200]) + "..."
			}
			summaries[i] = noteSummary{
				ID:         ix.ID,
				ContactID:  ix.ContactID,
				OccurredAt: ix.OccurredAt.Format(time.RFC3339),
				Transcript: transcript,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notes: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
