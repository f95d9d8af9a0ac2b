package theme

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmbeddedTheme(t *testing.T) {
	css, found := GetEmbeddedTheme("default")
	require.True(t, found, "default theme should be found")
	assert.Contains(t, css, ".entrykit-popup")
	assert.Contains(t, css, ".entrykit-summary")
	assert.Contains(t, css, "@window_bg_color")

	css, found = GetEmbeddedTheme("minimal")
	require.True(t, found)
	assert.Contains(t, css, "-gtk-icon-size: 0")

	_, found = GetEmbeddedTheme("nonexistent")
	assert.False(t, found)
}

func TestGetEmbeddedPartial(t *testing.T) {
	for _, name := range []string{"_bands.css", "bands", "_bands"} {
		css, found := GetEmbeddedPartial(name)
		require.True(t, found, name)
		assert.Contains(t, css, ".band-max")
	}
}

func TestListEmbeddedThemes(t *testing.T) {
	themes := ListEmbeddedThemes()
	assert.Contains(t, themes, "default")
	assert.Contains(t, themes, "minimal")
	for _, name := range themes {
		assert.False(t, strings.HasPrefix(name, "_"), "partials are not themes")
	}
}

func TestProcessImports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_grandchild.css"), []byte(`.grandchild { color: blue; }`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_child.css"), []byte("@import \"_grandchild.css\";\n.child { color: green; }"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_a.css"), []byte("@import \"_b.css\";\n.a {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_b.css"), []byte("@import \"_a.css\";\n.b {}"), 0644))

	tests := []struct {
		name     string
		css      string
		baseDir  string
		contains []string
	}{
		{
			name:     "no imports",
			css:      `.entrykit-popup { color: red; }`,
			contains: []string{`.entrykit-popup { color: red; }`},
		},
		{
			name:     "nested",
			css:      "@import \"_child.css\";\n.main {}",
			baseDir:  dir,
			contains: []string{"/* imported: _child.css */", "/* imported: _grandchild.css */", ".grandchild", ".main"},
		},
		{
			name:     "circular",
			css:      `@import "_a.css";`,
			baseDir:  dir,
			contains: []string{"/* imported: _b.css */", "/* circular import prevented: _a.css */"},
		},
		{
			name:     "missing",
			css:      `@import "nonexistent.css";`,
			baseDir:  dir,
			contains: []string{"/* import failed: nonexistent.css */"},
		},
		{
			name:     "embedded partial",
			css:      `@import url("_bands.css");`,
			baseDir:  dir,
			contains: []string{"/* imported (embedded): _bands.css */", ".band-high"},
		},
		{
			name:     "embedded theme",
			css:      `@import 'minimal.css';`,
			baseDir:  dir,
			contains: []string{"/* imported (embedded): minimal.css */", ".band-max"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ProcessImports(tt.css, tt.baseDir, nil)
			for _, want := range tt.contains {
				assert.Contains(t, result, want)
			}
		})
	}
}

func TestImportRegex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`@import "file.css";`, "file.css"},
		{`@import 'file.css';`, "file.css"},
		{`@import url("file.css");`, "file.css"},
		{`@import url( "file.css" );`, "file.css"},
		{`@import "_partial.css"`, "_partial.css"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			matches := importRegex.FindStringSubmatch(tt.input)
			require.Len(t, matches, 2)
			assert.Equal(t, tt.expected, matches[1])
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "minimal.css"), []byte(`.mine {}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.css"), []byte(`.custom {}`), 0644))

	t.Run("empty is default", func(t *testing.T) {
		th, err := Resolve("", dir)
		require.NoError(t, err)
		assert.Equal(t, DefaultThemeName, th.Name)
		assert.True(t, th.Bundled)
		assert.Contains(t, th.CSS, ".band-max", "bundled imports are inlined")
	})

	t.Run("user theme shadows bundled", func(t *testing.T) {
		th, err := Resolve("minimal", dir)
		require.NoError(t, err)
		assert.False(t, th.Bundled)
		assert.Equal(t, filepath.Join(dir, "minimal.css"), th.Path)
		assert.Contains(t, th.CSS, ".mine")
	})

	t.Run("path", func(t *testing.T) {
		th, err := Resolve(filepath.Join(dir, "custom.css"), "")
		require.NoError(t, err)
		assert.Equal(t, "custom", th.Name)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Resolve("neon", dir)
		assert.ErrorContains(t, err, `theme "neon" not found`)
	})
}

func TestTheme_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.css")
	require.NoError(t, os.WriteFile(path, []byte(`.entrykit-popup { color: red; }`), 0644))

	th, err := NewTheme("test", path)
	require.NoError(t, err)

	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "_new.css"), []byte(`:root { --c: blue; }`), 0644))
	require.NoError(t, os.WriteFile(path, []byte("@import \"_new.css\";\n.entrykit-popup { color: var(--c); }"), 0644))

	changed, err = th.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, th.CSS, "--c: blue")

	bundled, ok := NewBundledTheme("default")
	require.True(t, ok)
	changed, err = bundled.Reload()
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestWatcher_ReloadsOnPartialChange(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "_colors.css")
	require.NoError(t, os.WriteFile(partial, []byte(`:root { --c: red; }`), 0644))
	path := filepath.Join(dir, "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`@import "_colors.css";`), 0644))

	th, err := NewTheme("mine", path)
	require.NoError(t, err)

	w, err := NewWatcher(th, nil)
	require.NoError(t, err)

	changes := make(chan string, 4)
	w.SetChangeCallback(func(css string) { changes <- css })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	require.NoError(t, os.WriteFile(partial, []byte(`:root { --c: green; }`), 0644))

	select {
	case css := <-changes:
		assert.Contains(t, css, "--c: green")
	case <-time.After(5 * time.Second):
		t.Fatal("theme change not observed")
	}
}

func TestNewWatcher_RejectsBundled(t *testing.T) {
	th, ok := NewBundledTheme("default")
	require.True(t, ok)
	_, err := NewWatcher(th, nil)
	assert.Error(t, err)
}
