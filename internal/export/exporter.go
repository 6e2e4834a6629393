package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/JonMunkholm/certgen/internal/render"
)

// DefaultScale is the device scale factor used for PNG export.
const DefaultScale = 2.0

// Content types of the files produced here.
const (
	ContentTypePNG  = "image/png"
	ContentTypePDF  = "application/pdf"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// pagePadding matches the document body padding around the card.
const pagePadding = 24

var unsafeFilenameRe = regexp.MustCompile(`[^\p{L}\p{N}_.-]+`)

// File is an export ready to be written or downloaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Exporter produces one kind of file from a certificate.
type Exporter interface {
	Export(ctx context.Context, cert *certificate.Certificate) (*File, error)
}

// Filename returns "Certificate_<Name>.<ext>" with whitespace runs replaced
// by underscores.
func Filename(view certificate.View, ext string) string {
	name := strings.Join(strings.Fields(view.Name.Plain()), "_")
	name = unsafeFilenameRe.ReplaceAllString(name, "")
	if name == "" {
		name = certificate.DefaultName
	}
	return "Certificate_" + name + "." + ext
}

// ImageExporter rasterizes the certificate card to PNG.
type ImageExporter struct {
	raster  Rasterizer
	limiter *Limiter
	theme   render.Theme
	scale   float64
	timeout time.Duration
}

// ImageOption configures an ImageExporter.
type ImageOption func(*ImageExporter)

// WithScale sets the device scale factor.
func WithScale(scale float64) ImageOption {
	return func(e *ImageExporter) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

// WithRenderTimeout bounds a single render.
func WithRenderTimeout(d time.Duration) ImageOption {
	return func(e *ImageExporter) {
		e.timeout = d
	}
}

// NewImageExporter creates an ImageExporter. limiter may be nil.
func NewImageExporter(raster Rasterizer, limiter *Limiter, theme render.Theme, opts ...ImageOption) *ImageExporter {
	e := &ImageExporter{
		raster:  raster,
		limiter: limiter,
		theme:   theme,
		scale:   DefaultScale,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export implements Exporter. Browser failures are *RasterizationError.
func (e *ImageExporter) Export(ctx context.Context, cert *certificate.Certificate) (*File, error) {
	ctx, release, err := acquire(ctx, e.limiter, e.timeout)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := render.RenderDocument(ctx, cert.View, e.theme, render.DocumentOptions{})
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	start := time.Now()
	data, err := e.raster.Screenshot(ctx, doc, render.CardSelector, Viewport{
		Width:  render.CardWidth + 2*pagePadding,
		Height: render.CardHeight + 2*pagePadding,
		Scale:  e.scale,
	})
	if err != nil {
		logging.FromContext(ctx).Error("image export failed", "certificate_id", cert.ID, "error", err)
		return nil, &RasterizationError{Format: "png", Err: err}
	}

	logging.FromContext(ctx).Info("image exported",
		"certificate_id", cert.ID,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &File{Name: Filename(cert.View, "png"), ContentType: ContentTypePNG, Data: data}, nil
}

// PDFExporter prints the certificate document to PDF.
type PDFExporter struct {
	raster  Rasterizer
	limiter *Limiter
	theme   render.Theme
	timeout time.Duration
}

// NewPDFExporter creates a PDFExporter. limiter may be nil.
func NewPDFExporter(raster Rasterizer, limiter *Limiter, theme render.Theme, timeout time.Duration) *PDFExporter {
	return &PDFExporter{raster: raster, limiter: limiter, theme: theme, timeout: timeout}
}

// Export implements Exporter.
func (e *PDFExporter) Export(ctx context.Context, cert *certificate.Certificate) (*File, error) {
	ctx, release, err := acquire(ctx, e.limiter, e.timeout)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := render.RenderDocument(ctx, cert.View, e.theme, render.DocumentOptions{})
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	data, err := e.raster.PDF(ctx, doc)
	if err != nil {
		logging.FromContext(ctx).Error("pdf export failed", "certificate_id", cert.ID, "error", err)
		return nil, &RasterizationError{Format: "pdf", Err: err}
	}
	return &File{Name: Filename(cert.View, "pdf"), ContentType: ContentTypePDF, Data: data}, nil
}

// HTMLExporter writes the standalone document. With Print set the document
// opens the print dialog when loaded.
type HTMLExporter struct {
	Theme render.Theme
	Print bool
}

// Export implements Exporter.
func (e HTMLExporter) Export(ctx context.Context, cert *certificate.Certificate) (*File, error) {
	doc, err := render.RenderDocument(ctx, cert.View, e.Theme, render.DocumentOptions{Print: e.Print})
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return &File{Name: Filename(cert.View, "html"), ContentType: ContentTypeHTML, Data: []byte(doc)}, nil
}

// PrintDocument returns the print-ready standalone document for cert.
func PrintDocument(ctx context.Context, cert *certificate.Certificate, theme render.Theme) (string, error) {
	return render.RenderDocument(ctx, cert.View, theme, render.DocumentOptions{Print: true})
}

// acquire takes a render slot and applies the render timeout. The returned
// release must be called.
func acquire(ctx context.Context, limiter *Limiter, timeout time.Duration) (context.Context, func(), error) {
	if limiter != nil {
		if err := limiter.Acquire(ctx); err != nil {
			return ctx, nil, err
		}
	}

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	return ctx, func() {
		cancel()
		if limiter != nil {
			limiter.Release()
		}
	}, nil
}
