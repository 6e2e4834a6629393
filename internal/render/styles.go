package render

import (
	"net/url"
	"strings"
)

// Card dimensions in CSS pixels (A4 landscape at 96 dpi).
const (
	CardWidth  = 1123
	CardHeight = 794
)

// GoogleFontsURL returns the stylesheet URL that loads the theme's fonts.
func GoogleFontsURL(theme Theme) string {
	seen := make(map[string]bool, 3)
	var families []string
	for _, f := range []string{theme.Fonts.Heading, theme.Fonts.Script, theme.Fonts.Body} {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		families = append(families, "family="+strings.ReplaceAll(url.PathEscape(f), "%20", "+"))
	}
	return "https://fonts.googleapis.com/css2?" + strings.Join(families, "&") + "&display=swap"
}

// Stylesheet returns the card CSS for theme. Theme values must already be
// sanitized.
func Stylesheet(theme Theme) string {
	r := strings.NewReplacer(
		"{{primary}}", theme.Colors.Primary,
		"{{accent}}", theme.Colors.Accent,
		"{{background}}", theme.Colors.Background,
		"{{text}}", theme.Colors.Text,
		"{{heading}}", theme.Fonts.Heading,
		"{{script}}", theme.Fonts.Script,
		"{{body}}", theme.Fonts.Body,
	)
	css := r.Replace(cardCSS)
	if theme.BackgroundURL != "" {
		css += ".certificate--overlay{background-image:url('" + theme.BackgroundURL + "');background-size:cover;background-position:center}" +
			".certificate--overlay .certificate__frame{border-color:transparent}"
	}
	return css
}

const cardCSS = `.certificate{box-sizing:border-box;width:1123px;height:794px;padding:28px;` +
	`background:{{background}};color:{{text}};font-family:'{{body}}',sans-serif;position:relative;margin:0 auto}` +
	`.certificate__frame{box-sizing:border-box;height:100%;border:6px double {{accent}};outline:2px solid {{primary}};` +
	`outline-offset:-18px;display:flex;flex-direction:column;align-items:center;justify-content:center;` +
	`text-align:center;padding:48px 72px}` +
	`.certificate__logo{max-height:84px;margin-bottom:16px}` +
	`.certificate__title{font-family:'{{heading}}',serif;font-size:46px;letter-spacing:4px;` +
	`text-transform:uppercase;color:{{primary}};margin:0 0 24px}` +
	`.certificate__preamble,.certificate__completion{font-size:18px;margin:8px 0;letter-spacing:1px}` +
	`.certificate__name{font-family:'{{script}}',cursive;font-size:64px;color:{{primary}};margin:8px 0;` +
	`padding:0 32px 4px;border-bottom:2px solid {{accent}};overflow-wrap:anywhere}` +
	`.certificate__course{font-family:'{{heading}}',serif;font-size:28px;font-weight:600;color:{{primary}};` +
	`margin:8px 0 32px;overflow-wrap:anywhere}` +
	`.certificate__footer{display:flex;justify-content:space-between;align-items:flex-end;width:100%;margin-top:auto}` +
	`.certificate__field{display:flex;flex-direction:column;gap:4px;min-width:200px}` +
	`.certificate__label{font-size:12px;text-transform:uppercase;letter-spacing:2px;opacity:.75}` +
	`.certificate__value{font-size:16px;font-weight:600;overflow-wrap:anywhere}` +
	`.certificate__institution{font-size:14px;letter-spacing:2px;text-transform:uppercase;margin:16px 0 0}`
