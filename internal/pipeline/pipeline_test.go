package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/reconnecthq/reconnect/internal/speech"
)

// --- fakes ---

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, model string, audio []byte, filename string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeCompleter struct {
	content string
	err     error
	calls   int
	lastMsg []speech.Message
}

func (f *fakeCompleter) ChatJSON(ctx context.Context, model string, messages []speech.Message) (string, error) {
	f.calls++
	f.lastMsg = messages
	return f.content, f.err
}

const validExtraction = `{
	"people_mentioned": [{"name": "Sarah", "relation": "sister", "org_school": null, "location": "Boston"}],
	"key_topics": ["moving", "new job"],
	"hashtags": ["books", "movies"],
	"facts": [{"type": "job_change", "who": "Sarah", "org": "Acme", "role": "engineer", "when": "2025-06-01", "to": null, "from": null}],
	"followups": [{"what": "send apartment listings", "due": "2025-06-10"}],
	"checkin_hint_days": 14
}`

// --- tests ---

func TestProcess_Success(t *testing.T) {
	tr := &fakeTranscriber{text: "talked to Sarah about her new job"}
	cm := &fakeCompleter{content: validExtraction}
	p := New(tr, cm, "whisper-large-v3", "llama-3.3-70b-versatile")

	result, err := p.Process(context.Background(), []byte("audio"), "note.webm")
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if result.Transcript != "talked to Sarah about her new job" {
		t.Errorf("transcript = %q", result.Transcript)
	}
	if len(result.Extracted.PeopleMentioned) != 1 || result.Extracted.PeopleMentioned[0].Name != "Sarah" {
		t.Errorf("people_mentioned = %+v", result.Extracted.PeopleMentioned)
	}
	if result.Extracted.CheckinHintDays == nil || *result.Extracted.CheckinHintDays != 14 {
		t.Errorf("checkin_hint_days = %v, want 14", result.Extracted.CheckinHintDays)
	}
	if tr.calls != 1 || cm.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", tr.calls, cm.calls)
	}
}

func TestProcess_NoAudio(t *testing.T) {
	tr := &fakeTranscriber{}
	cm := &fakeCompleter{}
	p := New(tr, cm, "stt", "llm")

	_, err := p.Process(context.Background(), nil, "")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("error = %v, want ErrNoAudio", err)
	}
	if tr.calls != 0 || cm.calls != 0 {
		t.Errorf("remote calls = %d/%d, want none", tr.calls, cm.calls)
	}
}

func TestProcess_TranscriptionFailureSkipsExtraction(t *testing.T) {
	tr := &fakeTranscriber{err: &speech.APIError{StatusCode: 500, Body: "stt exploded"}}
	cm := &fakeCompleter{content: validExtraction}
	p := New(tr, cm, "stt", "llm")

	_, err := p.Process(context.Background(), []byte("audio"), "")
	var tErr *TranscriptionError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want *TranscriptionError", err)
	}
	if tErr.Body != "stt exploded" {
		t.Errorf("Body = %q, want the upstream body", tErr.Body)
	}
	if cm.calls != 0 {
		t.Fatalf("extraction called %d times after transcription failure, want 0", cm.calls)
	}
}

func TestProcess_ExtractionFailure(t *testing.T) {
	tr := &fakeTranscriber{text: "a transcript"}
	cm := &fakeCompleter{err: &speech.APIError{StatusCode: 429, Body: "rate limited"}}
	p := New(tr, cm, "stt", "llm")

	_, err := p.Process(context.Background(), []byte("audio"), "")
	var eErr *ExtractionError
	if !errors.As(err, &eErr) {
		t.Fatalf("error = %v, want *ExtractionError", err)
	}
	if eErr.Body != "rate limited" {
		t.Errorf("Body = %q", eErr.Body)
	}
}

func TestProcess_MalformedExtraction(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"not json", "the model wrote prose instead"},
		{"extra top-level key", `{"people_mentioned":[],"key_topics":[],"hashtags":[],"facts":[],"followups":[],"checkin_hint_days":null,"mood":"upbeat"}`},
		{"trailing garbage", `{"people_mentioned":[],"key_topics":[],"hashtags":[],"facts":[],"followups":[],"checkin_hint_days":null} extra`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTranscriber{text: "a transcript"}
			cm := &fakeCompleter{content: tc.content}
			p := New(tr, cm, "stt", "llm")

			_, err := p.Process(context.Background(), []byte("audio"), "")
			var mErr *MalformedExtractionError
			if !errors.As(err, &mErr) {
				t.Fatalf("error = %v, want *MalformedExtractionError", err)
			}
			if mErr.Raw != tc.content {
				t.Errorf("Raw = %q, want the response body", mErr.Raw)
			}
		})
	}
}

func TestProcess_ConfigErrorPropagates(t *testing.T) {
	tr := &fakeTranscriber{err: fmt.Errorf("call setup: %w", speech.ErrNoAPIKey)}
	cm := &fakeCompleter{}
	p := New(tr, cm, "stt", "llm")

	_, err := p.Process(context.Background(), []byte("audio"), "")
	if !errors.Is(err, speech.ErrNoAPIKey) {
		t.Fatalf("error = %v, want wrapped ErrNoAPIKey", err)
	}
	if cm.calls != 0 {
		t.Errorf("extraction called after config error")
	}
}

func TestProcess_PromptCarriesSchemaAndTranscript(t *testing.T) {
	tr := &fakeTranscriber{text: "remember hashtag books and hashtag movies"}
	cm := &fakeCompleter{content: validExtraction}
	p := New(tr, cm, "stt", "llm")

	if _, err := p.Process(context.Background(), []byte("audio"), ""); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if len(cm.lastMsg) != 2 {
		t.Fatalf("got %d messages, want system+user", len(cm.lastMsg))
	}
	system := cm.lastMsg[0]
	if system.Role != "system" || !strings.Contains(system.Content, "STRICT JSON") {
		t.Errorf("system message = %+v", system)
	}
	if !strings.Contains(system.Content, `"hashtag books" -> "books"`) {
		t.Error("system message does not state the hashtag derivation rule")
	}
	user := cm.lastMsg[1]
	for _, key := range []string{"people_mentioned", "key_topics", "hashtags", "facts", "followups", "checkin_hint_days"} {
		if !strings.Contains(user.Content, `"`+key+`"`) {
			t.Errorf("user message missing schema key %q", key)
		}
	}
	if !strings.Contains(user.Content, "remember hashtag books and hashtag movies") {
		t.Error("user message does not carry the transcript")
	}
}
