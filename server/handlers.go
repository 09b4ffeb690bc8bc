package polyserv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bosley/polyglot/lang"
	"github.com/bosley/polyglot/pipeline"
)

// Translation is the body of a successful /api/translate response.
type Translation struct {
	Original     string `json:"original"`
	Translated   string `json:"translated"`
	DetectedLang string `json:"detected_lang"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lang.Supported())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	id := requestIDFrom(r.Context())
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Audio upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "No audio file part")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Malformed multipart request: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file part")
		return
	}
	defer file.Close()

	target := strings.TrimSpace(r.FormValue("targetLang"))
	if target == "" {
		writeError(w, http.StatusBadRequest, "Missing target language")
		return
	}
	source := strings.TrimSpace(r.FormValue("sourceLang"))
	if source == "" {
		source = lang.Auto
	}

	var blob bytes.Buffer
	if _, err := io.Copy(&blob, file); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read audio: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		slog.Warn("No processing slot available", "requestID", id)
		writeError(w, http.StatusServiceUnavailable, "Server is busy, try again later")
		return
	}

	res, err := s.processor.Process(ctx, pipeline.Request{
		Audio:      blob.Bytes(),
		SourceLang: source,
		TargetLang: target,
	})
	if err != nil {
		status, message := errorStatus(err)
		slog.Error("Translation request failed",
			"requestID", id,
			"kind", pipeline.KindOf(err),
			"status", status,
			"error", err)
		writeError(w, status, message)
		return
	}

	out := Translation{
		Original:     res.Original,
		Translated:   res.Translated,
		DetectedLang: res.DetectedLang,
	}
	slog.Info("Translation complete",
		"requestID", id,
		"sourceLang", source,
		"targetLang", target,
		"detectedLang", res.DetectedLang,
		"shortCircuit", res.ShortCircuit,
		"duration", time.Since(start))

	writeJSON(w, http.StatusOK, out)
	s.hub.Publish("translation", id, out)
}

// errorStatus maps a pipeline error to the response status and message.
func errorStatus(err error) (int, string) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, fmt.Sprintf("An unexpected error occurred: %v", err)
	}

	switch pe.Kind {
	case pipeline.InvalidRequest:
		return http.StatusBadRequest, capitalize(pe.Err.Error())
	case pipeline.UnintelligibleAudio:
		return http.StatusBadRequest, "Could not understand audio"
	case pipeline.UnsupportedAudioFormat:
		return http.StatusBadRequest, capitalize(pe.Err.Error())
	case pipeline.TranscriptionService, pipeline.TranslationService:
		return http.StatusInternalServerError, capitalize(pe.Err.Error())
	default:
		return http.StatusInternalServerError, fmt.Sprintf("An unexpected error occurred: %v", pe.Err)
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) ||
		errors.Is(err, multipart.ErrMessageTooLarge) ||
		strings.Contains(err.Error(), "request body too large")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
