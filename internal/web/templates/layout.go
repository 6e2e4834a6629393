// Package templates holds the page components of the web UI.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/a-h/templ"
)

const pageCSS = `*{box-sizing:border-box}` +
	`body{margin:0;font-family:system-ui,-apple-system,'Segoe UI',sans-serif;background:#f3f4f6;color:#1f2937}` +
	`.page{max-width:1220px;margin:0 auto;padding:32px 16px}` +
	`.page__header{text-align:center;margin-bottom:24px}` +
	`.page__header h1{margin:0 0 8px;font-size:28px}` +
	`.page__header p{margin:0;color:#6b7280}` +
	`.lookup{display:flex;gap:12px;justify-content:center;margin-bottom:24px;flex-wrap:wrap}` +
	`.lookup input{padding:12px 16px;font-size:16px;border:1px solid #d1d5db;border-radius:12px;min-width:280px}` +
	`.button{display:inline-block;border:none;border-radius:12px;padding:12px 22px;font-size:16px;` +
	`cursor:pointer;color:#ffffff;text-decoration:none;background:linear-gradient(135deg,#3b82f6,#1d4ed8)}` +
	`.button--download{background:linear-gradient(135deg,#10b981,#047857)}` +
	`.button--print{background:linear-gradient(135deg,#6366f1,#4338ca)}` +
	`.alert{max-width:640px;margin:0 auto 24px;padding:14px 18px;border-radius:12px;` +
	`background:#fef2f2;border:1px solid #fecaca;color:#991b1b}` +
	`.alert__action{margin:4px 0 0;color:#7f1d1d}` +
	`.alert__code{font-size:12px;opacity:.7;margin-left:6px}` +
	`.result{overflow-x:auto}` +
	`.result__actions{text-align:center;margin-top:20px;display:flex;gap:12px;justify-content:center}`

// pageScript opens the print window and downloads the image. Downloads are
// fetched with a JSON Accept header; a failed export alerts the server's
// message.
const pageScript = `function certAlert(m){alert(m.message+(m.action?"\n"+m.action:""));}` +
	`function certFilename(r,fallback){var d=r.headers.get("Content-Disposition")||"";` +
	`var m=/filename\*?=(?:UTF-8'')?"?([^";]+)"?/i.exec(d);return m?decodeURIComponent(m[1]):fallback;}` +
	`function certDownload(a){fetch(a.getAttribute("href"),{headers:{Accept:"application/json"},credentials:"same-origin"})` +
	`.then(function(r){if(!r.ok){return r.json().then(certAlert,function(){certAlert({message:a.getAttribute("data-error-message")});});}` +
	`var name=certFilename(r,"certificate.png");return r.blob().then(function(b){` +
	`var u=URL.createObjectURL(b),l=document.createElement("a");l.href=u;l.download=name;` +
	`document.body.appendChild(l);l.click();l.remove();setTimeout(function(){URL.revokeObjectURL(u);},1000);});})` +
	`.catch(function(){certAlert({message:a.getAttribute("data-error-message")});});}` +
	`document.addEventListener("click",function(e){` +
	`var d=e.target.closest("[data-download]");if(d){e.preventDefault();certDownload(d);return;}` +
	`var b=e.target.closest("[data-print-url]");if(!b){return;}e.preventDefault();` +
	`var w=window.open(b.getAttribute("data-print-url"),"_blank");` +
	`if(!w){alert(b.getAttribute("data-popup-message"));}});`

// Layout wraps body in the page shell. theme supplies the certificate fonts
// and card styles.
func Layout(title string, theme render.Theme, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>` + templ.EscapeString(title) + `</title>`)
		b.WriteString(`<link rel="preconnect" href="https://fonts.googleapis.com">`)
		b.WriteString(`<link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>`)
		b.WriteString(`<link rel="stylesheet" href="` + templ.EscapeString(render.GoogleFontsURL(theme)) + `">`)
		b.WriteString(`<style>` + pageCSS + render.Stylesheet(theme) + `</style>`)
		b.WriteString(`</head><body><main class="page">`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		b.Reset()
		b.WriteString(`</main><script`)
		if nonce := templ.GetNonce(ctx); nonce != "" {
			b.WriteString(` nonce="` + templ.EscapeString(nonce) + `"`)
		}
		b.WriteString(`>` + pageScript + `</script></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
