package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPaint(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := paint(ansiGreen, "hello"); got != "hello" {
		t.Errorf("paint with noColor=true should not contain ANSI codes, got %q", got)
	}

	noColor = false
	got := paint(ansiGreen, "hello")
	if !strings.Contains(got, ansiGreen) || !strings.Contains(got, ansiReset) {
		t.Errorf("paint with noColor=false should contain ANSI codes, got %q", got)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := pidFilePath(dir)

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after PID file removal")
	}
}

func TestPIDFileInNestedDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "reconnectd.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile should create parent dirs: %v", err)
	}
}

func TestCaptureMissingFile(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"capture", filepath.Join(t.TempDir(), "nope.webm")})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing audio file")
	}
}

// fakeServerClient points the CLI at a test server and restores the real
// client factory on cleanup.
func fakeServerClient(t *testing.T, srv *httptest.Server) {
	t.Helper()
	old := newAPIClient
	t.Cleanup(func() { newAPIClient = old })
	newAPIClient = func() (*apiClient, error) {
		return &apiClient{baseURL: srv.URL, httpClient: srv.Client()}, nil
	}
}

func writeAudioFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "note.webm")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCaptureSubmitsAudioAndSaves(t *testing.T) {
	var gotProcess, gotSave bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/process":
			gotProcess = true
			f, _, err := r.FormFile("audio")
			if err != nil {
				t.Errorf("audio part missing: %v", err)
			} else {
				data, _ := io.ReadAll(f)
				if string(data) != "fake-audio" {
					t.Errorf("uploaded %q, want the file contents", data)
				}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"transcript": "called Amy about the move",
				"extracted":  map[string]any{"people_mentioned": []any{}, "key_topics": []any{}, "hashtags": []any{}, "facts": []any{}, "followups": []any{}, "checkin_hint_days": nil},
			})
		case "/interactions":
			gotSave = true
			var req struct {
				ContactIDs []string `json:"contact_ids"`
				Transcript string   `json:"transcript"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decoding save request: %v", err)
			}
			if len(req.ContactIDs) != 2 || req.ContactIDs[0] != "c1" || req.ContactIDs[1] != "c2" {
				t.Errorf("contact_ids = %v, want [c1 c2]", req.ContactIDs)
			}
			if req.Transcript != "called Amy about the move" {
				t.Errorf("transcript = %q", req.Transcript)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"saved": []map[string]string{
					{"interaction_id": "i1", "contact_id": "c1"},
					{"interaction_id": "i2", "contact_id": "c2"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	fakeServerClient(t, srv)

	defer rootCmd.SetArgs(nil)
	defer captureCmd.Flags().Set("save", "")
	rootCmd.SetArgs([]string{"capture", writeAudioFile(t, "fake-audio"), "--save", "c1, c2"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !gotProcess || !gotSave {
		t.Errorf("process hit = %v, save hit = %v, want both", gotProcess, gotSave)
	}
}

func TestCapturePartialSaveReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/process":
			json.NewEncoder(w).Encode(map[string]any{
				"transcript": "called Amy",
				"extracted":  map[string]any{"people_mentioned": []any{}, "key_topics": []any{}, "hashtags": []any{}, "facts": []any{}, "followups": []any{}, "checkin_hint_days": nil},
			})
		case "/interactions":
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{
				"saved":             []map[string]string{{"interaction_id": "i1", "contact_id": "c1"}},
				"failed_contact_id": "c2",
				"error":             "contact c2 not found",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	fakeServerClient(t, srv)

	defer rootCmd.SetArgs(nil)
	defer captureCmd.Flags().Set("save", "")
	rootCmd.SetArgs([]string{"capture", writeAudioFile(t, "fake-audio"), "--save", "c1,c2"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error when the save stops partway")
	}
	if !strings.Contains(err.Error(), "partial save") {
		t.Errorf("error = %v, want a partial save report", err)
	}
}
