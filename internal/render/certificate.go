package render

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/a-h/templ"
)

// CardSelector selects the rendered card within a document.
const CardSelector = ".certificate"

// Certificate renders the certificate card for view.
func Certificate(view certificate.View, theme Theme) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		writeCard(&b, view, theme)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeCard(b *strings.Builder, view certificate.View, theme Theme) {
	class := "certificate"
	if theme.BackgroundURL != "" {
		class += " certificate--overlay"
	}

	b.WriteString(`<div class="` + class + `" data-certificate-id="` + view.Identifier.HTML() + `">`)
	b.WriteString(`<div class="certificate__frame">`)

	if theme.LogoURL != "" {
		b.WriteString(`<img class="certificate__logo" alt="" src="` + templ.EscapeString(theme.LogoURL) + `">`)
	}
	writeText(b, "h1", "certificate__title", theme.Title)
	writeText(b, "p", "certificate__preamble", theme.Preamble)

	b.WriteString(`<p class="certificate__name">` + view.Name.HTML() + `</p>`)

	writeText(b, "p", "certificate__completion", theme.Completion)
	b.WriteString(`<p class="certificate__course">` + view.Course.HTML() + `</p>`)

	b.WriteString(`<div class="certificate__footer">`)
	b.WriteString(`<div class="certificate__field certificate__date">`)
	b.WriteString(`<span class="certificate__label">Date</span>`)
	b.WriteString(`<span class="certificate__value">` + view.Date.HTML() + `</span>`)
	b.WriteString(`</div>`)

	if theme.Signatory != "" {
		b.WriteString(`<div class="certificate__field certificate__signatory">`)
		writeText(b, "span", "certificate__value", theme.Signatory)
		writeText(b, "span", "certificate__label", theme.SignatoryRole)
		b.WriteString(`</div>`)
	}

	b.WriteString(`<div class="certificate__field certificate__id">`)
	b.WriteString(`<span class="certificate__label">Certificate ID:</span>`)
	b.WriteString(`<span class="certificate__value">` + view.Identifier.HTML() + `</span>`)
	b.WriteString(`</div>`)
	b.WriteString(`</div>`)

	writeText(b, "p", "certificate__institution", theme.Institution)

	b.WriteString(`</div></div>`)
}

// writeText writes an element with escaped text content. Empty text is skipped.
func writeText(b *strings.Builder, tag, class, text string) {
	if text == "" {
		return
	}
	b.WriteString(`<` + tag + ` class="` + class + `">`)
	b.WriteString(templ.EscapeString(text))
	b.WriteString(`</` + tag + `>`)
}
