package export

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/JonMunkholm/certgen/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRasterizer records calls and returns canned output.
type fakeRasterizer struct {
	mu        sync.Mutex
	documents []string
	selector  string
	viewport  Viewport
	err       error
	delay     time.Duration
}

func (f *fakeRasterizer) Screenshot(ctx context.Context, document, selector string, vp Viewport) ([]byte, error) {
	f.mu.Lock()
	f.documents = append(f.documents, document)
	f.selector = selector
	f.viewport = vp
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG fake"), nil
}

func (f *fakeRasterizer) PDF(ctx context.Context, document string) ([]byte, error) {
	f.mu.Lock()
	f.documents = append(f.documents, document)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

func testCert(name string) *certificate.Certificate {
	roles := certificate.ColumnRoleMap{
		certificate.RoleIdentifier: "ID",
		certificate.RoleName:       "Name",
		certificate.RoleCourse:     "Course",
	}
	view := certificate.NewBinder().Bind(sheet.Record{"ID": "C100", "Name": name, "Course": "Data Structures"}, roles)
	return &certificate.Certificate{ID: "cert-1", Query: "C100", View: view, Roles: roles}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{"Asha Rao", "png", "Certificate_Asha_Rao.png"},
		{"  Mary   Jane  Watson ", "png", "Certificate_Mary_Jane_Watson.png"},
		{"", "png", "Certificate_Participant.png"},
		{"José Núñez", "pdf", "Certificate_José_Núñez.pdf"},
		{`a/b\c"d`, "png", "Certificate_abcd.png"},
		{"<script>", "html", "Certificate_script.html"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			view := testCert(tt.name).View
			assert.Equal(t, tt.want, Filename(view, tt.ext))
		})
	}
}

func TestImageExporter_Export(t *testing.T) {
	raster := &fakeRasterizer{}
	exp := NewImageExporter(raster, NewLimiter(1, time.Second), render.DefaultTheme())

	file, err := exp.Export(context.Background(), testCert("Asha Rao"))
	require.NoError(t, err)

	assert.Equal(t, "Certificate_Asha_Rao.png", file.Name)
	assert.Equal(t, ContentTypePNG, file.ContentType)
	assert.Equal(t, []byte("\x89PNG fake"), file.Data)

	assert.Equal(t, render.CardSelector, raster.selector)
	assert.Equal(t, DefaultScale, raster.viewport.Scale)
	assert.Greater(t, raster.viewport.Width, render.CardWidth)
	require.Len(t, raster.documents, 1)
	assert.Contains(t, raster.documents[0], "Asha Rao")
	assert.NotContains(t, raster.documents[0], "window.print")
}

func TestImageExporter_Scale(t *testing.T) {
	raster := &fakeRasterizer{}
	exp := NewImageExporter(raster, nil, render.DefaultTheme(), WithScale(3))

	_, err := exp.Export(context.Background(), testCert("Ann"))
	require.NoError(t, err)
	assert.Equal(t, 3.0, raster.viewport.Scale)
}

func TestImageExporter_RasterizationError(t *testing.T) {
	cause := errors.New("chrome crashed")
	exp := NewImageExporter(&fakeRasterizer{err: cause}, nil, render.DefaultTheme())

	file, err := exp.Export(context.Background(), testCert("Ann"))
	assert.Nil(t, file)

	var rerr *RasterizationError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, cause)

	msg := certificate.MapError(err)
	assert.Equal(t, "EXP001", msg.Code)
	assert.Contains(t, msg.Message, "chrome crashed")
}

func TestImageExporter_Timeout(t *testing.T) {
	raster := &fakeRasterizer{delay: time.Second}
	exp := NewImageExporter(raster, nil, render.DefaultTheme(), WithRenderTimeout(20*time.Millisecond))

	_, err := exp.Export(context.Background(), testCert("Ann"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestImageExporter_TooManyRenders(t *testing.T) {
	limiter := NewLimiter(1, 20*time.Millisecond)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	exp := NewImageExporter(&fakeRasterizer{}, limiter, render.DefaultTheme())
	_, err := exp.Export(context.Background(), testCert("Ann"))

	require.ErrorIs(t, err, ErrTooManyRenders)
	assert.Equal(t, "EXP002", certificate.MapError(err).Code)
}

func TestImageExporter_ReleasesSlot(t *testing.T) {
	limiter := NewLimiter(1, time.Second)
	exp := NewImageExporter(&fakeRasterizer{err: errors.New("boom")}, limiter, render.DefaultTheme())

	for i := 0; i < 3; i++ {
		_, err := exp.Export(context.Background(), testCert("Ann"))
		require.Error(t, err)
	}
	assert.Equal(t, 0, limiter.ActiveCount())
}

func TestPDFExporter_Export(t *testing.T) {
	raster := &fakeRasterizer{}
	exp := NewPDFExporter(raster, nil, render.DefaultTheme(), time.Second)

	file, err := exp.Export(context.Background(), testCert("Asha Rao"))
	require.NoError(t, err)
	assert.Equal(t, "Certificate_Asha_Rao.pdf", file.Name)
	assert.Equal(t, ContentTypePDF, file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestPDFExporter_Error(t *testing.T) {
	exp := NewPDFExporter(&fakeRasterizer{err: errors.New("no printer")}, nil, render.DefaultTheme(), 0)

	_, err := exp.Export(context.Background(), testCert("Ann"))
	var rerr *RasterizationError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "pdf", rerr.Format)
}

func TestHTMLExporter_Export(t *testing.T) {
	file, err := HTMLExporter{Theme: render.DefaultTheme(), Print: true}.Export(context.Background(), testCert("<script>x</script>"))
	require.NoError(t, err)

	doc := string(file.Data)
	assert.Equal(t, ContentTypeHTML, file.ContentType)
	assert.Equal(t, "Certificate_script.html", file.Name)
	assert.Contains(t, doc, "window.print()")
	assert.Contains(t, doc, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, doc, "<script>x</script>")
}

func TestPrintDocument(t *testing.T) {
	doc, err := PrintDocument(context.Background(), testCert("Asha Rao"), render.DefaultTheme())
	require.NoError(t, err)

	assert.Contains(t, doc, "window.print()")
	assert.Contains(t, doc, "fonts.googleapis.com")
	assert.Contains(t, doc, "Asha Rao")
}
