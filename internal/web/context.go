package web

import (
	"net/http"

	"github.com/JonMunkholm/certgen/internal/audit"
	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/JonMunkholm/certgen/internal/session"
	"github.com/JonMunkholm/certgen/internal/web/middleware"
	"github.com/google/uuid"
)

// withSession makes sure the client carries a session cookie and stores the
// session ID, client IP, and User-Agent on the context for auditing.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := s.sessionID(r)
		if sid == "" {
			sid = session.NewID()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(s.cfg.Session.TTL.Seconds()),
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := audit.ContextWithSession(r.Context(), sid)
		ctx = audit.ContextWithIPAddress(ctx, middleware.ClientIP(r))
		ctx = audit.ContextWithUserAgent(ctx, r.UserAgent())
		ctx = logging.ContextWith(ctx, "session_id", sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the cookie's session ID, or "" when it is missing or not
// one we could have issued.
func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(s.cfg.Session.CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}
