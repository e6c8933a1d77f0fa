// This file holds the fluent builder every handler uses to write JSON, and
// the mapping from error kinds to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"xpense/internal/core"
	applog "xpense/internal/log"
)

// JSONResponseBuilder accumulates status, headers and a body, then writes them once.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body before sending headers so an encoding failure still
// produces a well-formed 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var payload []byte
	if b.body != nil {
		var err error
		payload, err = json.Marshal(b.body)
		if err != nil {
			slog.Error("Failed to encode response", "error", err)
			b.statusCode = http.StatusInternalServerError
			payload = []byte(`{"message":"Internal server error","error":"encoding failure"}`)
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if payload != nil {
		_, _ = w.Write(append(payload, '\n'))
	}
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// statusFor classifies err. Anything unclassified is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with {message, error}. Client faults echo the problem;
// server faults log the cause and return fallback with a generic error.
func writeError(w http.ResponseWriter, r *http.Request, fallback string, err error) {
	status := statusFor(err)
	body := errorBody{Message: fallback}
	logger := applog.FromContext(r.Context())

	switch status {
	case http.StatusBadRequest:
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			body.Message = capitalize(ve.Message)
		}
		body.Error = err.Error()
		logger.WarnContext(r.Context(), "Rejected invalid request", applog.FieldError, err, "path", r.URL.Path)
	case http.StatusUnauthorized:
		body.Message = "Authentication required"
		body.Error = core.ErrUnauthorized.Error()
	case http.StatusNotFound:
		body.Error = core.ErrNotFound.Error()
	default:
		body.Error = core.ErrStore.Error()
		logger.ErrorContext(r.Context(), fallback, applog.FieldError, err, "path", r.URL.Path)
	}

	NewJSONResponse().Status(status).Body(body).Write(w)
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
