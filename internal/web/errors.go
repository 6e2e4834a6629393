package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its request ID and technical detail, then mapped
// through certificate.MapError. API clients get JSON; browsers get the lookup
// page with the message shown and the session's certificate left in place.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/export"
	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/JonMunkholm/certgen/internal/session"
	"github.com/JonMunkholm/certgen/internal/sheet"
	"github.com/JonMunkholm/certgen/internal/web/middleware"
	"github.com/JonMunkholm/certgen/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the user-facing form of it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := certificate.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, statusCode)
		return
	}

	cert, _ := s.deps.Sessions.Get(sessionFrom(r))
	s.renderIndex(w, r, statusCode, templates.IndexParams{
		Query:       strings.TrimSpace(r.PostFormValue(formField)),
		Certificate: cert,
		Error:       &userMsg,
	})
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg certificate.UserMessage, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for a lookup or export error.
func statusFor(err error) int {
	var (
		te *sheet.TransportError
		re *export.RasterizationError
	)
	switch {
	case errors.Is(err, certificate.ErrEmptyQuery):
		return http.StatusBadRequest
	case certificate.IsNotFound(err), errors.Is(err, session.ErrNoCertificate):
		return http.StatusNotFound
	case errors.Is(err, middleware.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, export.ErrTooManyRenders):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &re):
		return http.StatusInternalServerError
	case errors.As(err, &te),
		errors.Is(err, certificate.ErrEmptyTable),
		errors.Is(err, certificate.ErrMalformedTable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
