// Package api exposes the engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Mindburn-Labs/charter/pkg/fault"
)

// ProblemDetail implements RFC 7807. Code carries the fault code for
// rejected calls.
type ProblemDetail struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func writeProblem(w http.ResponseWriter, r *http.Request, p *ProblemDetail) {
	if p.Type == "" {
		p.Type = fmt.Sprintf("https://charter.schemas.local/errors/%d", p.Status)
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	if r != nil {
		p.Instance = r.URL.Path
		p.TraceID = middleware.GetReqID(r.Context())
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteError writes a plain problem response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblem(w, r, &ProblemDetail{Status: status, Detail: detail})
}

func WriteBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, r, http.StatusBadRequest, detail)
}

func WriteUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	if detail == "" {
		detail = "Authentication required"
	}
	WriteError(w, r, http.StatusUnauthorized, detail)
}

// WriteTooManyRequests writes a 429 with Retry-After.
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Retry after the specified interval.")
}

// WriteFault maps a rejected call to its status and code. Internal details
// are logged and never sent to the client. idempotent marks calls that may
// be repeated unchanged whatever the rejection.
func WriteFault(w http.ResponseWriter, r *http.Request, err error, idempotent bool) {
	kind := fault.KindOf(err)
	p := &ProblemDetail{
		Type:      "https://charter.schemas.local/errors/" + kind.Code(),
		Status:    kind.HTTPStatus(),
		Code:      kind.Code(),
		Retryable: idempotent || kind.Classify() == fault.Retryable,
	}

	var fe *fault.Error
	switch {
	case kind == fault.KindInternal:
		slog.Error("internal server error", "error", err)
		p.Detail = "An unexpected error occurred. Please try again later."
	case errors.As(err, &fe):
		p.Detail = string(fe.Kind) + ": " + fe.Detail
	default:
		p.Detail = err.Error()
	}
	writeProblem(w, r, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
