package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, root, rel string, mtime int64) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	ts := time.Unix(mtime, 0)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}
}

func TestFileMod(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "skins/elastic/ui.js", 1000)
	touch(t, root, "skins/elastic/ui.min.js", 2000)
	touch(t, root, "program/js/app.js", 3000)

	tests := []struct {
		name  string
		devel bool
		file  string
		want  string
	}{
		{"prefers minified", false, "skins/elastic/ui.js", "skins/elastic/ui.min.js?s=2000"},
		{"devel uses original", true, "skins/elastic/ui.js", "skins/elastic/ui.js?s=1000"},
		{"no minified sibling", false, "program/js/app.js", "program/js/app.js?s=3000"},
		{"already minified", false, "skins/elastic/ui.min.js", "skins/elastic/ui.min.js?s=2000"},
		{"missing file", false, "skins/elastic/none.css", "skins/elastic/none.css"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(root, tt.devel)
			if got := r.FileMod(tt.file); got != tt.want {
				t.Errorf("FileMod(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestFixPaths(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "skins/base/images/logo.svg", 1500)
	touch(t, root, "skins/child/styles/styles.css", 1600)
	touch(t, root, "program/js/common.js", 1700)
	r := New(root, true)
	paths := []string{"skins/child", "skins/base"}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"parent skin file", `<img src="/images/logo.svg">`, `<img src="skins/base/images/logo.svg?s=1500">`},
		{"this prefix", `<link href="/this/styles/styles.css" />`, `<link href="skins/child/styles/styles.css?s=1600" />`},
		{"relative script", `<script src="program/js/common.js"></script>`, `<script src="program/js/common.js?s=1700"></script>`},
		{"missing falls back to base path", `<a href="/missing.html">`, `<a href="skins/child/missing.html">`},
		{"data src", `<div data-src-dark="/images/logo.svg">`, `<div data-src-dark="skins/base/images/logo.svg?s=1500">`},
		{"unquoted", `<img src=/images/logo.svg>`, `<img src=skins/base/images/logo.svg?s=1500>`},
		{"external untouched", `<a href="https://example.com/x.js">`, `<a href="https://example.com/x.js">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.FixPaths(tt.input, paths, "skins/child"); got != tt.want {
				t.Errorf("FixPaths() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixAssetsPaths(t *testing.T) {
	r := New(t.TempDir(), false)
	input := `<script src="program/js/app.js?s=1"></script><a href="./?_task=mail"><img src="/abs.png"><a href="?_action=x">`

	if got := r.FixAssetsPaths(input); got != input {
		t.Errorf("FixAssetsPaths() without assets path changed output: %q", got)
	}

	r.SetAssetsPath("https://cdn.example.com/rc", "")
	got := r.FixAssetsPaths(input)
	if !strings.Contains(got, `src="https://cdn.example.com/rc/program/js/app.js?s=1"`) {
		t.Errorf("script not prefixed: %q", got)
	}
	for _, keep := range []string{`href="./?_task=mail"`, `src="/abs.png"`, `href="?_action=x"`} {
		if !strings.Contains(got, keep) {
			t.Errorf("FixAssetsPaths() altered %s: %q", keep, got)
		}
	}
	if r.AssetsPath() != "https://cdn.example.com/rc/" {
		t.Errorf("AssetsPath() = %q", r.AssetsPath())
	}
}

func TestSetAssetsPath_RelativeDir(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "public/skins/elastic/ui.js", 4242)
	r := New(root, true)
	r.SetAssetsPath("public", "")
	if got := r.FileMod("skins/elastic/ui.js"); got != "skins/elastic/ui.js?s=4242" {
		t.Errorf("FileMod() with relative assets dir = %q", got)
	}
	if got := r.AssetURL("skins/elastic/ui.js"); got != "public/skins/elastic/ui.js" {
		t.Errorf("AssetURL() = %q", got)
	}
}

func TestAbsURL(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "skins/base/watermark.html", 1)
	r := New(root, false)
	paths := []string{"skins/child", "skins/base"}

	if got := r.AbsURL("/watermark.html", paths, "skins/child", true); got != "skins/base/watermark.html" {
		t.Errorf("AbsURL(search) = %q", got)
	}
	if got := r.AbsURL("/watermark.html", paths, "skins/child", false); got != "skins/child/watermark.html" {
		t.Errorf("AbsURL(no search) = %q", got)
	}
	if got := r.AbsURL("about:blank", paths, "skins/child", true); got != "about:blank" {
		t.Errorf("AbsURL(relative) = %q", got)
	}
}
