package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jmylchreest/entrykit/internal/config"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name    string // Theme name (without .css extension)
	Path    string // File the theme was read from, empty when bundled
	CSS     string // Stylesheet with imports inlined
	Bundled bool
}

// ThemesDir returns the directory searched for user themes.
func ThemesDir() string {
	return filepath.Join(filepath.Dir(config.DaemonConfigPath()), "themes")
}

// NewTheme loads a theme file. @import statements are resolved and inlined.
func NewTheme(name, path string) (*Theme, error) {
	css, err := readCSS(path)
	if err != nil {
		return nil, err
	}
	return &Theme{Name: name, Path: path, CSS: css}, nil
}

// NewBundledTheme loads a bundled theme.
func NewBundledTheme(name string) (*Theme, bool) {
	css, ok := GetEmbeddedTheme(name)
	if !ok {
		return nil, false
	}
	return &Theme{Name: name, CSS: ProcessImports(css, "", nil), Bundled: true}, true
}

// Resolve finds a theme by name: a file in dir wins over a bundled theme
// of the same name. A name that is a path to a .css file is loaded
// directly. An empty name selects the default theme.
func Resolve(name, dir string) (*Theme, error) {
	if name == "" {
		name = DefaultThemeName
	}

	if strings.HasSuffix(name, ".css") {
		path := config.ExpandPath(name)
		return NewTheme(strings.TrimSuffix(filepath.Base(path), ".css"), path)
	}

	if dir != "" {
		path := filepath.Join(dir, name+".css")
		if _, err := os.Stat(path); err == nil {
			return NewTheme(name, path)
		}
	}

	if t, ok := NewBundledTheme(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("theme %q not found in %s or bundled themes %v", name, dir, ListEmbeddedThemes())
}

// Reload re-reads a file theme. It reports whether the CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled {
		return false, nil
	}
	css, err := readCSS(t.Path)
	if err != nil {
		return false, err
	}
	changed := css != t.CSS
	t.CSS = css
	return changed, nil
}

func readCSS(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read theme: %w", err)
	}
	return ProcessImports(string(data), filepath.Dir(path), nil), nil
}

// ProcessImports resolves and inlines @import statements in CSS.
// Imports are resolved relative to baseDir, then among bundled partials
// and themes. The seen map prevents circular imports.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		submatch := importRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		importPath := submatch[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}

		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		imported, err := os.ReadFile(fullPath)
		if err != nil {
			baseName := filepath.Base(importPath)
			if strings.HasPrefix(baseName, "_") {
				if embedded, found := GetEmbeddedPartial(baseName); found {
					return "/* imported (embedded): " + importPath + " */\n" + embedded
				}
			}
			if embedded, found := GetEmbeddedTheme(strings.TrimSuffix(baseName, ".css")); found {
				return "/* imported (embedded): " + importPath + " */\n" + ProcessImports(embedded, "", seen)
			}
			return "/* import failed: " + importPath + " */"
		}

		return "/* imported: " + importPath + " */\n" + ProcessImports(string(imported), filepath.Dir(fullPath), seen)
	})
}
