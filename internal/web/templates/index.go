package templates

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/a-h/templ"
)

// Routes referenced from the page.
const (
	LookupPath = "/certificate"
	ImagePath  = "/certificate/image"
	PrintPath  = "/certificate/print"
)

// downloadFailedMessage is alerted when the image request fails without a
// readable error body.
const downloadFailedMessage = "Error creating certificate image. Try again, or use Print and save as PDF."

// IndexParams is the state of the lookup page.
type IndexParams struct {
	Query       string
	Certificate *certificate.Certificate
	Error       *certificate.UserMessage
	Theme       render.Theme
}

// Index renders the lookup page.
func Index(p IndexParams) templ.Component {
	return Layout("Certificate Lookup", p.Theme, indexBody(p))
}

func indexBody(p IndexParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<header class="page__header"><h1>Certificate Lookup</h1>`)
		b.WriteString(`<p>Enter the ID printed on your confirmation to view your certificate.</p></header>`)

		b.WriteString(`<form class="lookup" method="post" action="` + LookupPath + `">`)
		b.WriteString(`<input type="text" id="certId" name="certId" placeholder="Certificate ID" autocomplete="off" value="`)
		b.WriteString(templ.EscapeString(p.Query))
		b.WriteString(`"><button class="button" type="submit">Generate Certificate</button></form>`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}

		if p.Error != nil {
			if err := ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code).Render(ctx, w); err != nil {
				return err
			}
		}

		if p.Certificate == nil {
			return nil
		}
		return CertificatePanel(p.Certificate, p.Theme).Render(ctx, w)
	})
}

// CertificatePanel renders the certificate with its export actions.
func CertificatePanel(cert *certificate.Certificate, theme render.Theme) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="result" id="certificate-container">`); err != nil {
			return err
		}
		if err := render.Certificate(cert.View, theme).Render(ctx, w); err != nil {
			return err
		}

		popup := certificate.PopupBlockedMessage
		var b strings.Builder
		b.WriteString(`<div class="result__actions">`)
		// Without the script the link navigates, so a failed export still
		// shows the error page.
		b.WriteString(`<a class="button button--download" href="` + ImagePath + `" data-download`)
		b.WriteString(` data-error-message="` + templ.EscapeString(downloadFailedMessage) + `">Download Certificate</a>`)
		b.WriteString(`<button class="button button--print" type="button" data-print-url="` + PrintPath + `"`)
		b.WriteString(` data-popup-message="` + templ.EscapeString(popup.Message+". "+popup.Action+".") + `">`)
		b.WriteString(`Print Certificate</button></div></section>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
