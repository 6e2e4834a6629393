package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Rasterizer turns an HTML document into image or PDF bytes.
type Rasterizer interface {
	// Screenshot captures the element matched by selector as PNG, rendered at
	// the given device scale factor.
	Screenshot(ctx context.Context, document, selector string, viewport Viewport) ([]byte, error)

	// PDF prints the document.
	PDF(ctx context.Context, document string) ([]byte, error)
}

// Viewport sizes the page a document is rendered in.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// errBrowserClosed is returned by a RodBrowser after Close.
var errBrowserClosed = errors.New("browser closed")

// RodBrowser is a Rasterizer backed by one shared headless Chromium. The
// browser is started on first use.
type RodBrowser struct {
	bin      string
	headless bool

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	closed   bool
}

// RodOption configures a RodBrowser.
type RodOption func(*RodBrowser)

// WithBrowserBin uses a local Chromium binary instead of the downloaded one.
func WithBrowserBin(bin string) RodOption {
	return func(b *RodBrowser) {
		b.bin = bin
	}
}

// WithHeadless controls whether the browser runs without a window.
func WithHeadless(headless bool) RodOption {
	return func(b *RodBrowser) {
		b.headless = headless
	}
}

// NewRodBrowser creates a RodBrowser. No process is started until the first
// render.
func NewRodBrowser(opts ...RodOption) *RodBrowser {
	b := &RodBrowser{headless: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches and connects the browser if it is not running yet.
func (b *RodBrowser) Start(ctx context.Context) error {
	_, err := b.connect(ctx)
	return err
}

func (b *RodBrowser) connect(ctx context.Context) (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBrowserClosed
	}
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().Headless(b.headless)
	if b.bin != "" {
		l = l.Bin(b.bin)
	}
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	logging.FromContext(ctx).Info("browser started", "headless", b.headless)
	b.launcher = l
	b.browser = browser
	return browser, nil
}

// open creates a blank page bound to ctx and sized to vp.
func (b *RodBrowser) open(ctx context.Context, vp Viewport) (*rod.Page, error) {
	browser, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	page = page.Context(ctx)

	if vp.Width > 0 && vp.Height > 0 {
		scale := vp.Scale
		if scale <= 0 {
			scale = 1
		}
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: scale,
			Mobile:            false,
		}).Call(page); err != nil {
			page.Close()
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}
	return page, nil
}

// load writes document into page and waits for its web fonts.
func load(page *rod.Page, document string) error {
	if err := page.SetDocumentContent(document); err != nil {
		return fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Evaluate(&rod.EvalOptions{
		JS:           `() => document.fonts.ready.then(() => true)`,
		ByValue:      true,
		AwaitPromise: true,
	}); err != nil {
		return fmt.Errorf("wait fonts: %w", err)
	}
	return nil
}

// Screenshot implements Rasterizer.
func (b *RodBrowser) Screenshot(ctx context.Context, document, selector string, vp Viewport) ([]byte, error) {
	page, err := b.open(ctx, vp)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := load(page, document); err != nil {
		return nil, err
	}

	el, err := page.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return data, nil
}

// PDF implements Rasterizer.
func (b *RodBrowser) PDF(ctx context.Context, document string) ([]byte, error) {
	page, err := b.open(ctx, Viewport{})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := load(page, document); err != nil {
		return nil, err
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		Landscape:         true,
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return data, nil
}

// Close shuts the browser down. Later renders fail.
func (b *RodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.browser == nil {
		return nil
	}

	err := b.browser.Close()
	b.browser = nil
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return err
}
