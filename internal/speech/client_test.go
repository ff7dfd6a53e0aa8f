package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key")
}

func TestTranscribe_MultipartSubmission(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q, want /audio/transcriptions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3" {
			t.Errorf("model field = %q, want whisper-large-v3", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("reading file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "note.webm" {
			t.Errorf("filename = %q, want note.webm", header.Filename)
		}
		fmt.Fprint(w, `{"text":"hello from the call"}`)
	})

	text, err := c.Transcribe(context.Background(), "whisper-large-v3", []byte("audio-bytes"), "note.webm")
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if text != "hello from the call" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribe_NonSuccessCarriesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"audio too short"}`)
	})

	_, err := c.Transcribe(context.Background(), "whisper-large-v3", []byte("x"), "note.webm")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "audio too short") {
		t.Errorf("Body = %q, want the upstream body verbatim", apiErr.Body)
	}
}

func TestTranscribe_NoAPIKey(t *testing.T) {
	c := New("http://localhost:0", "")
	_, err := c.Transcribe(context.Background(), "whisper-large-v3", []byte("x"), "note.webm")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("error = %v, want ErrNoAPIKey", err)
	}
}

func TestChatJSON_RequestsJSONObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		var req chatRequest
		if err := jsonDecode(r, &req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format.type = %q, want json_object", req.ResponseFormat.Type)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system+user pair", req.Messages)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	})

	content, err := c.ChatJSON(context.Background(), "llama-3.3-70b-versatile", []Message{
		{Role: "system", Content: "extract"},
		{Role: "user", Content: "transcript"},
	})
	if err != nil {
		t.Fatalf("ChatJSON() failed: %v", err)
	}
	if content != `{"ok":true}` {
		t.Errorf("content = %q", content)
	}
}

func TestChatJSON_NonSuccessCarriesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	})

	_, err := c.ChatJSON(context.Background(), "llama-3.3-70b-versatile", []Message{{Role: "user", Content: "x"}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Body != "rate limited" {
		t.Errorf("got status %d body %q", apiErr.StatusCode, apiErr.Body)
	}
}

func TestChatJSON_EmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})

	if _, err := c.ChatJSON(context.Background(), "m", []Message{{Role: "user", Content: "x"}}); err == nil {
		t.Fatal("ChatJSON() succeeded on empty choices, want error")
	}
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
