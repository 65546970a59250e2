package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogue(t *testing.T, dir, locale, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, locale+".yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalogue: %v", err)
	}
}

func TestCatalog_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, "en_US", "welcome: Welcome to $product\nmail: Mail\ncompose: Compose\n")
	writeCatalogue(t, dir, "de_DE", "welcome: Willkommen bei $product\nmail: E-Mail\n")

	tests := []struct {
		locale string
		label  string
		want   string
	}{
		{"en_US", "mail", "Mail"},
		{"de_DE", "mail", "E-Mail"},
		{"de_CH", "mail", "E-Mail"},
		{"de_DE", "compose", "Compose"},
		{"fr_FR", "mail", "Mail"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.label, func(t *testing.T) {
			c := NewCatalog(tt.locale)
			if err := c.LoadDir(dir); err != nil {
				t.Fatalf("LoadDir() failed: %v", err)
			}
			if got := c.Translate(tt.label, nil); got != tt.want {
				t.Errorf("Translate(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestCatalog_LoadDirMissing(t *testing.T) {
	c := NewCatalog("en_US")
	if err := c.LoadDir(filepath.Join(t.TempDir(), "none")); err != nil {
		t.Errorf("LoadDir() on missing dir returned error: %v", err)
	}
}

func TestCatalog_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, "en_US", "mail: [unclosed\n")
	if err := NewCatalog("en_US").LoadDir(dir); err == nil {
		t.Error("LoadDir() should fail on invalid YAML")
	}
}

func TestCatalog_Translate(t *testing.T) {
	c := NewCatalog("")
	c.Add(map[string]string{
		"welcome":  "Welcome to $product",
		"quota":    "$prod of $product",
		"archived": "Archived",
	})

	if got := c.Translate("welcome", map[string]string{"product": "Acme"}); got != "Welcome to Acme" {
		t.Errorf("Translate(welcome) = %q", got)
	}
	if got := c.Translate("quota", map[string]string{"prod": "A", "product": "B"}); got != "A of B" {
		t.Errorf("Translate(quota) = %q", got)
	}
	if got := c.Translate("missing", nil); got != "[missing]" {
		t.Errorf("Translate(missing) = %q", got)
	}
	if !c.TextExists("archive.archived") {
		t.Error("TextExists() should fall back to the plain label name")
	}
	if c.TextExists("nothing") {
		t.Error("TextExists(nothing) = true")
	}
	if c.Language() != DefaultLanguage {
		t.Errorf("Language() = %q, want %q", c.Language(), DefaultLanguage)
	}
}

func TestLangCodeAndUCFirst(t *testing.T) {
	if got := LangCode("de_CH"); got != "de" {
		t.Errorf("LangCode(de_CH) = %q", got)
	}
	if got := LangCode("pt_BR"); got != "pt" {
		t.Errorf("LangCode(pt_BR) = %q", got)
	}
	if got := UCFirst("addressbook"); got != "Addressbook" {
		t.Errorf("UCFirst() = %q", got)
	}
	if got := UCFirst(""); got != "" {
		t.Errorf("UCFirst(empty) = %q", got)
	}
}
