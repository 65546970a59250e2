package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/pflag"
)

func TestNew_Defaults(t *testing.T) {
	s := New()
	if got := s.GetString("product_name"); got != DefaultProductName {
		t.Errorf("product_name = %q, want %q", got, DefaultProductName)
	}
	if got := s.GetString("plugins_url"); got != "plugins/" {
		t.Errorf("plugins_url = %q, want %q", got, "plugins/")
	}
	if s.GetBool("devel_mode") {
		t.Error("devel_mode should default to false")
	}
}

func TestGetDefault(t *testing.T) {
	s := New()
	if got := s.GetDefault("enable_spellcheck", true); got != true {
		t.Errorf("GetDefault(unset) = %v, want true", got)
	}
	s.Set("enable_spellcheck", false)
	if got := s.GetDefault("enable_spellcheck", true); got != false {
		t.Errorf("GetDefault(set) = %v, want false", got)
	}
}

func TestLoad_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "product_name: Acme Mail\nskin: larry\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("skin", "", "skin name")
	if err := flags.Parse([]string{"--skin=classic"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	s, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := s.GetString("product_name"); got != "Acme Mail" {
		t.Errorf("product_name = %q, want %q", got, "Acme Mail")
	}
	if got := s.GetString("skin"); got != "classic" {
		t.Errorf("skin = %q, want flag value %q", got, "classic")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Fatal("Load() with missing file should fail")
	}
}

func TestDontOverride(t *testing.T) {
	s := New()
	s.Set("layout", "widescreen")
	s.AddDontOverride("layout")
	s.AddDontOverride("layout", "timezone")

	got := s.DontOverride()
	if len(got) != 2 || got[0] != "layout" || got[1] != "timezone" {
		t.Fatalf("DontOverride() = %v, want [layout timezone]", got)
	}

	applied := s.MergePrefs(map[string]any{"layout": "list", "date_format": "Y-m-d"})
	sort.Strings(applied)
	if len(applied) != 1 || applied[0] != "date_format" {
		t.Errorf("MergePrefs applied %v, want [date_format]", applied)
	}
	if got := s.GetString("layout"); got != "widescreen" {
		t.Errorf("layout = %q, want skin value %q", got, "widescreen")
	}
}

func TestClone_Independent(t *testing.T) {
	s := New()
	s.Set("product_name", "Acme Mail")

	c := s.Clone()
	if got := c.GetString("product_name"); got != "Acme Mail" {
		t.Errorf("clone product_name = %q, want %q", got, "Acme Mail")
	}

	c.Set("product_name", "Other")
	c.AddDontOverride("skin")
	if got := s.GetString("product_name"); got != "Acme Mail" {
		t.Errorf("original changed to %q after clone was modified", got)
	}
	if len(s.DontOverride()) != 0 {
		t.Errorf("original dont_override = %v, want empty", s.DontOverride())
	}
}
