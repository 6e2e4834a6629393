package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/certgen/internal/audit"
	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/config"
	"github.com/JonMunkholm/certgen/internal/export"
	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/JonMunkholm/certgen/internal/session"
	"github.com/JonMunkholm/certgen/internal/sheet"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioCSV = "Cert ID,Full Name,Course Name\n" +
	"C100,Asha Rao,Data Structures\n" +
	"C101,,Algorithms\n" +
	"C102,<script>x</script>,Security\n"

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

// fakeImage stands in for the browser-backed exporter.
type fakeImage struct {
	err   error
	calls atomic.Int32
}

func (f *fakeImage) Export(ctx context.Context, cert *certificate.Certificate) (*export.File, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &export.File{
		Name:        export.Filename(cert.View, "png"),
		ContentType: export.ContentTypePNG,
		Data:        pngBytes,
	}, nil
}

// sheetServer serves body with status and counts requests.
func sheetServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 10 * time.Second,
		},
		Session: config.SessionConfig{
			TTL:        time.Minute,
			CookieName: "certgen_session",
		},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

type testEnv struct {
	srv    *Server
	image  *fakeImage
	events *audit.MemoryRecorder
	hits   *atomic.Int32
	store  *session.Store
}

func newTestEnv(t *testing.T, status int, body string, mutate func(*config.Config)) *testEnv {
	t.Helper()
	ts, hits := sheetServer(t, status, body)

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	env := &testEnv{
		image:  &fakeImage{},
		events: audit.NewMemoryRecorder(100),
		hits:   hits,
		store:  session.NewStore(time.Minute),
	}
	env.srv = NewServer(Deps{
		Lookup:   certificate.NewService(sheet.NewFetcher(ts.URL), sheet.CSVParser{}),
		Sessions: env.store,
		Image:    env.image,
		Theme:    render.DefaultTheme(),
		Audit:    env.events,
		Renders:  export.NewLimiter(2, time.Second),
	}, cfg)
	t.Cleanup(func() { _ = env.srv.Shutdown(context.Background()) })
	return env
}

// client replays the session cookie across requests.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, h: e.srv.Router()}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if cks := rec.Result().Cookies(); len(cks) > 0 {
		c.cookies = cks
	}
	return rec
}

func (c *client) get(path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return c.do(req)
}

func (c *client) lookup(id string, headers ...string) *httptest.ResponseRecorder {
	form := url.Values{formField: {id}}
	req := httptest.NewRequest(http.MethodPost, "/certificate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return c.do(req)
}

// lookupResponse mirrors the certificate JSON with plain strings.
type lookupResponse struct {
	Query string `json:"query"`
	View  struct {
		Name       string `json:"name"`
		Course     string `json:"course"`
		Identifier string `json:"identifier"`
	} `json:"view"`
}

func decodeLookup(t *testing.T, rec *httptest.ResponseRecorder) lookupResponse {
	t.Helper()
	var resp lookupResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestIndex_SetsSessionCookie(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)

	rec := c.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="certId"`)
	assert.NotContains(t, rec.Body.String(), `id="certificate-container"`)
	require.Len(t, c.cookies, 1)
	assert.Equal(t, "certgen_session", c.cookies[0].Name)
	assert.True(t, c.cookies[0].HttpOnly)

	// The issued cookie is reused, not replaced.
	rec = c.get("/")
	assert.Empty(t, rec.Result().Cookies())
}

func TestIndex_ReplacesForgedCookie(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)
	c.cookies = []*http.Cookie{{Name: "certgen_session", Value: "not-a-uuid"}}

	rec := c.get("/")

	cks := rec.Result().Cookies()
	require.Len(t, cks, 1)
	assert.NotEqual(t, "not-a-uuid", cks[0].Value)
}

func TestLookup_Found(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)

	rec := c.lookup("  C100 ")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Asha Rao")
	assert.Contains(t, body, "Data Structures")
	assert.Contains(t, body, `id="certificate-container"`)
	assert.Contains(t, body, `value="C100"`)

	// The certificate stays with the session.
	rec = c.get("/")
	assert.Contains(t, rec.Body.String(), "Asha Rao")
	assert.Equal(t, 1, env.store.Len())
}

func TestLookup_BlankFieldsUseDefaults(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)

	rec := env.client(t).lookup("C101", "Accept", "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeLookup(t, rec)
	assert.Equal(t, certificate.DefaultName, resp.View.Name)
	assert.Equal(t, "Algorithms", resp.View.Course)
	assert.Equal(t, "C101", resp.View.Identifier)
}

func TestLookup_EscapesName(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)

	rec := env.client(t).lookup("C102")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, body, "<script>x</script>")
}

func TestLookup_EmptyQueryDoesNotFetch(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)

	rec := env.client(t).lookup("   ")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CERT002")
	assert.Equal(t, int32(0), env.hits.Load())
}

func TestLookup_NotFound(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)

	rec := env.client(t).lookup("C999", "Accept", "application/json")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "CERT001", resp.Code)
	assert.Equal(t, `Certificate ID "C999" not found`, resp.Message)
}

func TestLookup_NotFoundKeepsPreviousCertificate(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)

	require.Equal(t, http.StatusOK, c.lookup("C100").Code)
	rec := c.lookup("C999")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "CERT001")
	assert.Contains(t, body, "Asha Rao")
	assert.Contains(t, body, `value="C999"`)
}

func TestLookup_SourceFailure(t *testing.T) {
	env := newTestEnv(t, http.StatusInternalServerError, "boom", nil)
	c := env.client(t)

	rec := c.lookup("C100", "Accept", "application/json")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "SRC001", decodeError(t, rec).Code)

	// Nothing was rendered, so there is nothing to export.
	rec = c.get("/certificate/image")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "EXP003")
	assert.Equal(t, int32(0), env.image.calls.Load())
}

func TestLookup_EmptySheet(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, "Cert ID,Full Name\n,\n", nil)

	rec := env.client(t).lookup("C100", "Accept", "application/json")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "SRC002", decodeError(t, rec).Code)
}

func TestLookup_RecordsAuditEvents(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)

	c.lookup("C100")
	c.lookup("C999")

	events, err := env.events.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionNotFound, events[0].Action)
	assert.Equal(t, audit.ActionLookup, events[1].Action)
	assert.Equal(t, "C100", events[1].CertificateID)
	assert.Equal(t, "Asha Rao", events[1].Name)
	assert.Equal(t, "192.0.2.1", events[1].IPAddress)
	assert.Equal(t, c.cookies[0].Value, events[1].SessionID)
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	alice := env.client(t)
	bob := env.client(t)

	alice.lookup("C100")
	bob.get("/")

	assert.Equal(t, http.StatusNotFound, bob.get("/certificate/image").Code)
	assert.Equal(t, http.StatusOK, alice.get("/certificate/image").Code)
}

func TestImage_Download(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)
	c.lookup("C100")

	rec := c.get("/certificate/image")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypePNG, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=Certificate_Asha_Rao.png`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestImage_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "rasterization failure",
			err:         &export.RasterizationError{Format: "png", Err: errors.New("tainted canvas")},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "EXP001",
			wantMessage: "Error creating certificate image: tainted canvas",
		},
		{
			name:        "render slots exhausted",
			err:         export.ErrTooManyRenders,
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    "EXP002",
			wantMessage: certificate.MapError(export.ErrTooManyRenders).Message,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
			env.image.err = tt.err
			c := env.client(t)
			c.lookup("C100")

			// The page script asks for JSON and alerts the message.
			rec := c.get("/certificate/image", "Accept", "application/json")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Message)

			// Without the script the link navigates to the page, which shows
			// the message and keeps the certificate for a retry or print.
			rec = c.get("/certificate/image")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), templ.EscapeString(tt.wantMessage))
			assert.Contains(t, rec.Body.String(), "Asha Rao")
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestPrint(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)
	c.lookup("C100")

	rec := c.get("/certificate/print")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeHTML, rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "window.print()")
	assert.Contains(t, body, "Asha Rao")
	assert.Contains(t, body, "fonts.googleapis.com")

	csp := rec.Header().Get("Content-Security-Policy")
	_, after, ok := strings.Cut(csp, "'nonce-")
	require.True(t, ok, csp)
	nonce, _, _ := strings.Cut(after, "'")
	assert.Contains(t, body, `<script nonce="`+templ.EscapeString(nonce)+`">`)
}

func TestPrint_NoCertificate(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)

	rec := env.client(t).get("/certificate/print", "Accept", "application/json")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXP003", decodeError(t, rec).Code)
}

func TestAPILookup(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)

	rec := c.get("/api/certificates/C100")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeLookup(t, rec)
	assert.Equal(t, "Asha Rao", resp.View.Name)
	assert.Equal(t, "C100", resp.Query)

	// API lookups do not become the session's certificate.
	assert.Equal(t, 0, env.store.Len())

	rec = c.get("/api/certificates/C999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CERT001", decodeError(t, rec).Code)
}

func TestAPIEvents(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)
	c := env.client(t)
	c.lookup("C100")
	c.lookup("C101")

	rec := c.get("/api/events?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Events []audit.Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "C101", resp.Events[0].CertificateID)

	rec = c.get("/api/events?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)

	rec := env.client(t).get("/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Renders)
	assert.Equal(t, 2, resp.Renders.MaxConcurrent)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, nil)

	rec := env.client(t).get("/")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "https://fonts.googleapis.com")
	assert.Contains(t, csp, "https://fonts.gstatic.com")
	assert.Contains(t, csp, "script-src 'self' 'nonce-")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, scenarioCSV, func(cfg *config.Config) {
		cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ExportLimit: 1}
	})
	c := env.client(t)

	assert.Equal(t, http.StatusOK, c.get("/").Code)
	assert.Equal(t, http.StatusOK, c.get("/").Code)

	rec := c.get("/", "Accept", "application/json")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty query", certificate.ErrEmptyQuery, http.StatusBadRequest},
		{"not found", &certificate.NotFoundError{Query: "C1"}, http.StatusNotFound},
		{"no certificate", session.ErrNoCertificate, http.StatusNotFound},
		{"transport", &sheet.TransportError{URL: "u", StatusCode: 500}, http.StatusBadGateway},
		{"empty table", certificate.ErrEmptyTable, http.StatusBadGateway},
		{"malformed table", certificate.ErrMalformedTable, http.StatusBadGateway},
		{"fetch deadline", &sheet.TransportError{URL: "u", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"too many renders", export.ErrTooManyRenders, http.StatusServiceUnavailable},
		{"rasterization", &export.RasterizationError{Format: "png", Err: errors.New("x")}, http.StatusInternalServerError},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
