package render

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/a-h/templ"
)

// DocumentOptions controls the standalone document.
type DocumentOptions struct {
	// Print opens the print dialog once fonts have loaded.
	Print bool
}

const printScript = `window.addEventListener("load",function(){` +
	`var go=function(){window.focus();window.print();};` +
	`if(document.fonts&&document.fonts.ready){document.fonts.ready.then(go);}else{go();}});`

const documentCSS = `html,body{margin:0;padding:0;background:#ffffff}` +
	`body.certificate-document{display:flex;justify-content:center;align-items:flex-start;padding:24px}` +
	`@page{size:A4 landscape;margin:0}` +
	`@media print{body.certificate-document{padding:0}` +
	`.certificate{-webkit-print-color-adjust:exact;print-color-adjust:exact}}`

// Document renders a complete HTML page holding only the certificate, with
// inline styles and the theme's web fonts. The script nonce, when one is set
// on ctx with templ.WithNonce, is applied to the print script.
func Document(view certificate.View, theme Theme, opts DocumentOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>` + documentTitle(view, theme) + `</title>`)
		b.WriteString(`<link rel="preconnect" href="https://fonts.googleapis.com">`)
		b.WriteString(`<link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>`)
		b.WriteString(`<link rel="stylesheet" href="` + templ.EscapeString(GoogleFontsURL(theme)) + `">`)
		b.WriteString(`<style>` + Stylesheet(theme) + documentCSS + `</style>`)
		b.WriteString(`</head><body class="certificate-document">`)

		writeCard(&b, view, theme)

		if opts.Print {
			b.WriteString(`<script`)
			if nonce := templ.GetNonce(ctx); nonce != "" {
				b.WriteString(` nonce="` + templ.EscapeString(nonce) + `"`)
			}
			b.WriteString(`>` + printScript + `</script>`)
		}

		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// RenderDocument renders Document to a string.
func RenderDocument(ctx context.Context, view certificate.View, theme Theme, opts DocumentOptions) (string, error) {
	var b strings.Builder
	if err := Document(view, theme, opts).Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func documentTitle(view certificate.View, theme Theme) string {
	title := templ.EscapeString(theme.Title)
	if title == "" {
		title = "Certificate"
	}
	if view.Name.IsZero() {
		return title
	}
	return title + " - " + view.Name.HTML()
}
