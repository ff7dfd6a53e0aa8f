package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/reconnecthq/reconnect/internal/pipeline"
	"github.com/reconnecthq/reconnect/internal/speech"
)

// handleProcess runs an uploaded voice note through transcription and
// extraction. Nothing is persisted here: the client reviews the result and
// saves through POST /interactions, keeping the audio around to resubmit
// if a stage fails.
func handleProcess(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("audio")
		if err != nil {
			httpError(w, http.StatusBadRequest, "multipart field %q is required", "audio")
			return
		}
		defer file.Close()

		audio, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "reading audio upload: %v", err)
			return
		}

		result, err := deps.Pipeline.Process(r.Context(), audio, header.Filename)
		if err != nil {
			status, msg := pipelineErrorStatus(err)
			deps.Logger.Warn("processing failed", "error", err, "audio_bytes", len(audio))
			httpError(w, status, "%s", msg)
			return
		}

		deps.Logger.Info("note processed",
			"audio_bytes", len(audio),
			"transcript_chars", len(result.Transcript),
			"followups", len(result.Extracted.Followups),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

func pipelineErrorStatus(err error) (int, string) {
	var tErr *pipeline.TranscriptionError
	var eErr *pipeline.ExtractionError
	var mErr *pipeline.MalformedExtractionError
	switch {
	case errors.Is(err, pipeline.ErrNoAudio):
		return http.StatusBadRequest, "no audio data in upload"
	case errors.As(err, &tErr):
		return http.StatusBadGateway, "transcription failed: " + tErr.Body
	case errors.As(err, &eErr):
		return http.StatusBadGateway, "extraction failed: " + eErr.Body
	case errors.As(err, &mErr):
		return http.StatusBadGateway, "extraction returned malformed data: " + mErr.Err.Error()
	case errors.Is(err, speech.ErrNoAPIKey):
		return http.StatusInternalServerError, "speech provider API key is not configured"
	}
	return http.StatusInternalServerError, err.Error()
}
