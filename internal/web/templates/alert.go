package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders a user-facing error message.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out := `<div class="alert" role="alert"><p class="alert__message">` + templ.EscapeString(message)
		if code != "" {
			out += `<span class="alert__code">(` + templ.EscapeString(code) + `)</span>`
		}
		out += `</p>`
		if action != "" {
			out += `<p class="alert__action">` + templ.EscapeString(action) + `</p>`
		}
		out += `</div>`
		_, err := io.WriteString(w, out)
		return err
	})
}
