package web

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/certgen/internal/audit"
	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/export"
	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/JonMunkholm/certgen/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// formField is the lookup form's input name.
const formField = "certId"

// maxEventsLimit caps /api/events?limit=.
const maxEventsLimit = 500

func sessionFrom(r *http.Request) string {
	return audit.SessionFromContext(r.Context())
}

// handleIndex renders the lookup form and the session's certificate, if any.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cert, _ := s.deps.Sessions.Get(sessionFrom(r))
	s.renderIndex(w, r, http.StatusOK, templates.IndexParams{Certificate: cert})
}

// handleLookup runs a lookup for the form's certificate ID and stores the
// result in the session.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	query := strings.TrimSpace(r.PostFormValue(formField))

	cert, err := s.lookupForSession(r, query)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if wantsJSON(r) {
		respondJSON(w, http.StatusOK, cert)
		return
	}
	s.renderIndex(w, r, http.StatusOK, templates.IndexParams{Query: query, Certificate: cert})
}

// lookupForSession looks query up and commits the outcome under a ticket
// taken before the fetch, so a slow earlier request cannot overwrite a later
// one. A failed lookup leaves the stored certificate alone.
func (s *Server) lookupForSession(r *http.Request, query string) (*certificate.Certificate, error) {
	if query == "" {
		return nil, certificate.ErrEmptyQuery
	}
	ctx := r.Context()
	sid := sessionFrom(r)

	ticket := s.deps.Sessions.Begin(sid)
	cert, err := s.deps.Lookup.Lookup(ctx, query)
	if !s.deps.Sessions.Commit(ticket, cert) {
		logging.FromContext(ctx).Debug("lookup superseded by a newer request", "query", query)
	}

	s.recordLookup(r, query, cert, err)
	return cert, err
}

// handleAPILookup returns a lookup result as JSON without touching the session.
func (s *Server) handleAPILookup(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(chi.URLParam(r, "id"))
	if query == "" {
		s.respondError(w, r, certificate.ErrEmptyQuery, http.StatusBadRequest)
		return
	}

	cert, err := s.deps.Lookup.Lookup(r.Context(), query)
	s.recordLookup(r, query, cert, err)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, cert)
}

// handleImage downloads the session's certificate as a PNG.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	cert, err := s.deps.Sessions.Get(sessionFrom(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	file, err := s.deps.Image.Export(r.Context(), cert)
	if err != nil {
		s.recordExport(r, audit.ActionExportFailed, cert, err)
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.recordExport(r, audit.ActionExportImage, cert, nil)

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(file.Data)
}

// handlePrint serves the standalone print document for the session's
// certificate.
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	cert, err := s.deps.Sessions.Get(sessionFrom(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	doc, err := export.PrintDocument(r.Context(), cert, s.deps.Theme)
	if err != nil {
		s.recordExport(r, audit.ActionExportFailed, cert, err)
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.recordExport(r, audit.ActionExportPrint, cert, nil)

	w.Header().Set("Content-Type", export.ContentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(doc))
}

// handleEvents lists recent audit events, newest first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := audit.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondErrorJSON(w, certificate.UserMessage{
				Message: "limit must be a positive integer",
				Code:    "REQ003",
			}, http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventsLimit)
	}

	events, err := s.deps.Audit.Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status   string                `json:"status"`
	Sessions int                   `json:"sessions"`
	Renders  *export.LimiterStatus `json:"renders,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Sessions: s.deps.Sessions.Len()}
	if s.deps.Renders != nil {
		st := s.deps.Renders.Status()
		resp.Renders = &st
	}
	respondJSON(w, http.StatusOK, resp)
}

// renderIndex writes the lookup page with the given status.
func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, statusCode int, p templates.IndexParams) {
	p.Theme = s.deps.Theme
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.Index(p).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// recordLookup writes the audit event for a lookup. Audit failures are logged
// and never fail the request.
func (s *Server) recordLookup(r *http.Request, query string, cert *certificate.Certificate, err error) {
	params := audit.Params{Query: query}
	switch {
	case err == nil:
		params.Action = audit.ActionLookup
		params.CertificateID = cert.View.Identifier.Plain()
		params.Name = cert.View.Name.Plain()
	case certificate.IsNotFound(err):
		params.Action = audit.ActionNotFound
	default:
		params.Action = audit.ActionLookupFailed
		params.Detail = err.Error()
	}
	s.record(r, params)
}

func (s *Server) recordExport(r *http.Request, action audit.Action, cert *certificate.Certificate, err error) {
	params := audit.Params{
		Action:        action,
		CertificateID: cert.View.Identifier.Plain(),
		Name:          cert.View.Name.Plain(),
	}
	if err != nil {
		params.Detail = err.Error()
	}
	s.record(r, params)
}

func (s *Server) record(r *http.Request, params audit.Params) {
	if _, err := s.deps.Audit.Record(r.Context(), params); err != nil {
		logging.FromContext(r.Context()).Warn("audit record failed", "action", params.Action, "error", err)
	}
}
