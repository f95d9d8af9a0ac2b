package popup

import (
	"strings"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/model"
)

// classesFor returns the CSS classes of an entry's popup.
func classesFor(e *model.Entry, scheme string) []string {
	classes := []string{
		"entrykit-popup",
		scheme,
		"band-" + string(e.Rank().Band()),
	}
	if e.Content.Body != "" {
		classes = append(classes, "has-body")
	}
	if e.Content.Icon != "" {
		classes = append(classes, "has-icon")
	}
	if cat := e.Content.Hint(model.HintCategory); cat != "" {
		if c := sanitizeClassName(cat); c != "" {
			classes = append(classes, "category-"+c)
		}
	}
	if e.Name != "" {
		if c := sanitizeClassName(e.Name); c != "" {
			classes = append(classes, "name-"+c)
		}
	}
	return classes
}

// colorSchemeClass resolves the configured scheme to "light" or "dark".
func colorSchemeClass(scheme string) string {
	switch config.ColorScheme(scheme) {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		if adw.StyleManagerGetDefault().Dark() {
			return "dark"
		}
		return "light"
	}
}

// sanitizeClassName converts a string to a valid CSS class name.
func sanitizeClassName(name string) string {
	var b strings.Builder
	prevHyphen := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		case r == '-' || r == '_' || r == ' ' || r == '.' || r == '/':
			if !prevHyphen && b.Len() > 0 {
				b.WriteRune('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
