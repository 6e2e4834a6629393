package certificate

import (
	"encoding/json"
	"log/slog"

	"github.com/a-h/templ"
)

// Text is a value that is safe to write into markup as text content.
// The zero value is empty text.
type Text struct {
	plain string
	html  string
}

// escapeText is the only constructor of non-empty Text.
func escapeText(s string) Text {
	return Text{plain: s, html: templ.EscapeString(s)}
}

// HTML returns the escaped form for writing into an HTML document.
func (t Text) HTML() string {
	return t.html
}

// Plain returns the original value for non-markup sinks such as filenames,
// JSON, and logs.
func (t Text) Plain() string {
	return t.plain
}

// IsZero reports whether t is empty.
func (t Text) IsZero() bool {
	return t.plain == ""
}

// MarshalJSON encodes the plain value; encoding/json escapes it for its own context.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.plain)
}

// LogValue implements slog.LogValuer.
func (t Text) LogValue() slog.Value {
	return slog.StringValue(t.plain)
}
