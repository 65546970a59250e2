// Package i18n provides the label catalogue used to localize templates.
// Catalogues are YAML files named after their locale (en_US.yaml,
// de_DE.yaml) holding a flat map of label names to texts.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is always loaded first, so every label has a fallback.
const DefaultLanguage = "en_US"

// Translator looks up localized labels.
type Translator interface {
	TextExists(name string) bool
	Translate(name string, vars map[string]string) string
}

// Catalog is a Translator backed by in-memory label maps.
type Catalog struct {
	mu       sync.RWMutex
	language string
	texts    map[string]string
}

// NewCatalog creates an empty catalog for a locale such as "de_DE".
func NewCatalog(locale string) *Catalog {
	if locale == "" {
		locale = DefaultLanguage
	}
	return &Catalog{language: locale, texts: make(map[string]string)}
}

// Language returns the catalog locale.
func (c *Catalog) Language() string { return c.language }

// Add merges texts into the catalog; existing labels are replaced.
func (c *Catalog) Add(texts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range texts {
		c.texts[k] = v
	}
}

// LoadDir reads the default catalogue of dir and then the one best
// matching the catalog language, e.g. de_DE.yaml for de_CH. A missing
// directory is not an error.
func (c *Catalog) LoadDir(dir string) error {
	available, err := locales(dir)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return nil
	}

	files := []string{}
	if contains(available, DefaultLanguage) {
		files = append(files, DefaultLanguage)
	}
	if best := Match(c.language, available); best != "" && best != DefaultLanguage {
		files = append(files, best)
	}

	for _, locale := range files {
		texts, err := readFile(filepath.Join(dir, locale+".yaml"))
		if err != nil {
			return err
		}
		c.Add(texts)
	}
	return nil
}

// TextExists reports whether name (or, for "domain.name", the plain
// name) has a text.
func (c *Catalog) TextExists(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

// Translate returns the text of name with $var placeholders replaced.
// Unknown labels render as "[name]".
func (c *Catalog) Translate(name string, vars map[string]string) string {
	text, ok := c.lookup(name)
	if !ok {
		return "[" + name + "]"
	}
	if len(vars) == 0 {
		return text
	}
	// longest names first so $product is not clobbered by $prod
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "$"+k, vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (c *Catalog) lookup(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if text, ok := c.texts[name]; ok {
		return text, true
	}
	if _, label, ok := strings.Cut(name, "."); ok {
		text, ok := c.texts[label]
		return text, ok
	}
	return "", false
}

// Match picks the entry of available (locale names) closest to locale.
// It returns "" when nothing matches with at least low confidence.
func Match(locale string, available []string) string {
	if len(available) == 0 {
		return ""
	}
	if contains(available, locale) {
		return locale
	}
	tags := make([]language.Tag, 0, len(available))
	for _, a := range available {
		tags = append(tags, parseLocale(a))
	}
	_, index, confidence := language.NewMatcher(tags).Match(parseLocale(locale))
	if confidence == language.No {
		return ""
	}
	return available[index]
}

// LangCode returns the two letter language of a locale ("de_CH" -> "de"),
// as used for the html lang attribute.
func LangCode(locale string) string {
	base, _ := parseLocale(locale).Base()
	return base.String()
}

// UCFirst upper-cases the first letter of s, e.g. a task name for the
// page title.
func UCFirst(s string) string {
	if s == "" {
		return s
	}
	first := []rune(s)[0]
	n := len(string(first))
	return cases.Upper(language.Und).String(s[:n]) + s[n:]
}

func parseLocale(locale string) language.Tag {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und
	}
	return tag
}

func locales(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read localization dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue %s: %w", path, err)
	}
	texts := make(map[string]string)
	if err := yaml.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue %s: %w", path, err)
	}
	return texts, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
