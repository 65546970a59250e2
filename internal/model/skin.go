package model

import "sort"

// SkinMeta is the content of a skin's meta.json file.
type SkinMeta struct {
	Name         string         `json:"name"`                   // Display name, defaults to the directory name
	Extends      string         `json:"extends,omitempty"`      // Parent skin name
	Config       map[string]any `json:"config,omitempty"`       // Config overrides declared by the skin
	Localization any            `json:"localization,omitempty"` // true or a folder name relative to the skin
	Meta         map[string]any `json:"meta,omitempty"`         // <meta> tags keyed by name
	Links        map[string]any `json:"links,omitempty"`        // <link> tags keyed by rel
	Path         string         `json:"-"`                      // Relative skin path, e.g. "skins/elastic"
}

// LocalizationDir returns the folder holding the skin's label catalogues,
// or an empty string when the skin ships none.
func (m *SkinMeta) LocalizationDir() string {
	switch v := m.Localization.(type) {
	case bool:
		if v {
			return "localization"
		}
	case string:
		return v
	}
	return ""
}

// Skin is the resolved form of a skin and its whole extends chain.
type Skin struct {
	Name      string
	PathStack []string             // Search paths, child first
	Metas     map[string]*SkinMeta // Metadata of every skin in the chain, by skin id
	Config    map[string]any       // Effective config overlay, nearest skin wins
	MetaTags  *TagSet
	LinkTags  *TagSet

	// ConfigOrder lists config keys in the order they were applied to the store.
	ConfigOrder []string
	// LocalizationDirs lists catalogue folders, most distant ancestor first.
	LocalizationDirs []string
}

// TagSet is an insertion-ordered collection of <meta>/<link> definitions.
type TagSet struct {
	keys   []string
	values map[string]any
}

// NewTagSet creates an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{values: make(map[string]any)}
}

// Set adds or replaces a definition. Replaced keys keep their position.
func (t *TagSet) Set(key string, value any) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Merge applies every entry of src over the set, in sorted key order.
func (t *TagSet) Merge(src map[string]any) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, src[k])
	}
}

// Get returns the definition stored under key.
func (t *TagSet) Get(key string) (any, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (t *TagSet) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of definitions.
func (t *TagSet) Len() int { return len(t.keys) }
