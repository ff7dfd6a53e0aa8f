// Package pipeline turns a captured audio blob into a transcript and a
// schema-constrained extraction payload. The two remote stages run strictly
// in sequence; a failure at either stage aborts the whole run and surfaces
// as one typed error. Nothing here persists anything: the caller reviews,
// edits, and saves the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/reconnecthq/reconnect/internal/speech"
)

// ErrNoAudio is returned when Process is handed an empty blob.
var ErrNoAudio = errors.New("no audio supplied")

// TranscriptionError reports a non-success response from the
// transcription stage. The extraction stage is never attempted after it.
type TranscriptionError struct {
	Body string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %s", e.Body)
}

// ExtractionError reports a non-success response from the structured
// extraction stage.
type ExtractionError struct {
	Body string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %s", e.Body)
}

// MalformedExtractionError reports a successful extraction response whose
// body was not well-formed schema-shaped JSON. Partial data is never
// returned in its place.
type MalformedExtractionError struct {
	Raw string
	Err error
}

func (e *MalformedExtractionError) Error() string {
	return fmt.Sprintf("malformed extraction result: %v", e.Err)
}

func (e *MalformedExtractionError) Unwrap() error { return e.Err }

// Transcriber converts an audio blob to plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, model string, audio []byte, filename string) (string, error)
}

// Completer runs a JSON-only chat completion.
type Completer interface {
	ChatJSON(ctx context.Context, model string, messages []speech.Message) (string, error)
}

// Result is the all-or-nothing output of a pipeline run.
type Result struct {
	Transcript string  `json:"transcript"`
	Extracted  Payload `json:"extracted"`
}

// Pipeline chains transcription and structured extraction.
type Pipeline struct {
	transcriber     Transcriber
	completer       Completer
	transcribeModel string
	extractModel    string
}

// New creates a Pipeline over the given provider calls and model names.
func New(transcriber Transcriber, completer Completer, transcribeModel, extractModel string) *Pipeline {
	return &Pipeline{
		transcriber:     transcriber,
		completer:       completer,
		transcribeModel: transcribeModel,
		extractModel:    extractModel,
	}
}

// Process runs both stages on the audio blob. The blob is not consumed:
// after a failure the caller can re-invoke Process with the same audio
// instead of re-recording. There is no internal retry.
func (p *Pipeline) Process(ctx context.Context, audio []byte, filename string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, ErrNoAudio
	}
	if filename == "" {
		filename = "recording.webm"
	}

	transcript, err := p.transcriber.Transcribe(ctx, p.transcribeModel, audio, filename)
	if err != nil {
		var apiErr *speech.APIError
		if errors.As(err, &apiErr) {
			return Result{}, &TranscriptionError{Body: apiErr.Body}
		}
		return Result{}, fmt.Errorf("transcribing: %w", err)
	}

	raw, err := p.completer.ChatJSON(ctx, p.extractModel, BuildPrompt(transcript))
	if err != nil {
		var apiErr *speech.APIError
		if errors.As(err, &apiErr) {
			return Result{}, &ExtractionError{Body: apiErr.Body}
		}
		return Result{}, fmt.Errorf("extracting: %w", err)
	}

	payload, err := ParsePayload([]byte(raw))
	if err != nil {
		return Result{}, &MalformedExtractionError{Raw: raw, Err: err}
	}

	return Result{Transcript: transcript, Extracted: payload}, nil
}
