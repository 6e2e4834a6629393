package export

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRodBrowser_Screenshot drives a real Chromium. Set CERTGEN_BROWSER_TESTS=1
// to run it.
func TestRodBrowser_Screenshot(t *testing.T) {
	if os.Getenv("CERTGEN_BROWSER_TESTS") == "" {
		t.Skip("set CERTGEN_BROWSER_TESTS=1 to run browser tests")
	}

	browser := NewRodBrowser(WithBrowserBin(os.Getenv("EXPORT_BROWSER_BIN")))
	defer browser.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	exp := NewImageExporter(browser, nil, render.DefaultTheme())
	file, err := exp.Export(ctx, testCert("Asha Rao"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("\x89PNG")))

	pdf, err := NewPDFExporter(browser, nil, render.DefaultTheme(), 0).Export(ctx, testCert("Asha Rao"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Data, []byte("%PDF")))
}

func TestRodBrowser_ClosedRejectsRenders(t *testing.T) {
	browser := NewRodBrowser()
	require.NoError(t, browser.Close())

	_, err := browser.Screenshot(context.Background(), "<html></html>", "body", Viewport{})
	assert.ErrorIs(t, err, errBrowserClosed)
}
