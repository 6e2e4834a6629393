package render

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	fontFamilySafeRe = regexp.MustCompile(`[^a-zA-Z0-9 _-]+`)
	hexColorRe       = regexp.MustCompile(`^#?([0-9a-fA-F]{3}([0-9a-fA-F]{3})?)$`)
)

// Theme controls the fixed text and styling of the certificate.
type Theme struct {
	Title         string `yaml:"title"`
	Preamble      string `yaml:"preamble"`
	Completion    string `yaml:"completion"`
	Institution   string `yaml:"institution"`
	Signatory     string `yaml:"signatory"`
	SignatoryRole string `yaml:"signatory_role"`

	// LogoURL and BackgroundURL must be absolute http(s) URLs; anything else is dropped.
	LogoURL       string `yaml:"logo_url"`
	BackgroundURL string `yaml:"background_url"`

	Colors Colors `yaml:"colors"`
	Fonts  Fonts  `yaml:"fonts"`
}

// Colors are hex values with or without the leading '#'.
type Colors struct {
	Primary    string `yaml:"primary"`
	Accent     string `yaml:"accent"`
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
}

// Fonts are Google Fonts family names.
type Fonts struct {
	Heading string `yaml:"heading"`
	Script  string `yaml:"script"`
	Body    string `yaml:"body"`
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	return Theme{
		Title:      "Certificate of Completion",
		Preamble:   "This is to certify that",
		Completion: "has successfully completed",
		Colors: Colors{
			Primary:    "#1e3a5f",
			Accent:     "#c9a227",
			Background: "#fffdf7",
			Text:       "#2d2d2d",
		},
		Fonts: Fonts{
			Heading: "Cinzel",
			Script:  "Great Vibes",
			Body:    "Montserrat",
		},
	}
}

// LoadTheme reads a YAML theme file. Fields left out keep their defaults.
// An empty path returns DefaultTheme.
func LoadTheme(path string) (Theme, error) {
	theme := DefaultTheme()
	if path == "" {
		return theme, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("read theme: %w", err)
	}
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return Theme{}, fmt.Errorf("parse theme %s: %w", path, err)
	}
	return theme.Sanitized(), nil
}

// Sanitized returns a copy whose colors, fonts, and URLs are safe to place in
// CSS and attributes. Invalid values fall back to the defaults.
func (t Theme) Sanitized() Theme {
	def := DefaultTheme()

	t.Colors.Primary = sanitizeColor(t.Colors.Primary, def.Colors.Primary)
	t.Colors.Accent = sanitizeColor(t.Colors.Accent, def.Colors.Accent)
	t.Colors.Background = sanitizeColor(t.Colors.Background, def.Colors.Background)
	t.Colors.Text = sanitizeColor(t.Colors.Text, def.Colors.Text)

	t.Fonts.Heading = sanitizeFontFamily(t.Fonts.Heading, def.Fonts.Heading)
	t.Fonts.Script = sanitizeFontFamily(t.Fonts.Script, def.Fonts.Script)
	t.Fonts.Body = sanitizeFontFamily(t.Fonts.Body, def.Fonts.Body)

	t.LogoURL = sanitizeURL(t.LogoURL)
	t.BackgroundURL = sanitizeURL(t.BackgroundURL)
	return t
}

// sanitizeColor normalizes a 3- or 6-digit hex color to "#rrggbb" form, or
// returns fallback.
func sanitizeColor(s, fallback string) string {
	m := hexColorRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return fallback
	}
	hex := strings.ToLower(m[1])
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex
}

// sanitizeFontFamily strips any characters that are not considered safe for a
// CSS font-family name.
func sanitizeFontFamily(s, fallback string) string {
	s = strings.TrimSpace(fontFamilySafeRe.ReplaceAllString(s, ""))
	if s == "" {
		return fallback
	}
	return s
}

func sanitizeURL(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	out := u.String()
	// The URL is also written into CSS url('...') inside a <style> element.
	if strings.ContainsAny(out, "'\"()\\ <>") {
		return ""
	}
	return out
}
