package model

import "strings"

// Attributes is an insertion-ordered set of tag attributes. Keys are
// stored lowercase, as produced by the attribute parser.
type Attributes struct {
	keys   []string
	values map[string]string
}

// NewAttributes builds an attribute set from alternating key/value pairs.
func NewAttributes(pairs ...string) *Attributes {
	a := &Attributes{values: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		a.Set(pairs[i], pairs[i+1])
	}
	return a
}

// Get returns the value for key, or "" when unset.
func (a *Attributes) Get(key string) string {
	if a == nil {
		return ""
	}
	return a.values[key]
}

// Lookup returns the value for key and whether it is set.
func (a *Attributes) Lookup(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is set, even to an empty value.
func (a *Attributes) Has(key string) bool {
	_, ok := a.Lookup(key)
	return ok
}

// Set stores a value. Existing keys keep their position.
func (a *Attributes) Set(key, value string) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// SetDefault stores value only when key is not set yet.
func (a *Attributes) SetDefault(key, value string) {
	if !a.Has(key) {
		a.Set(key, value)
	}
}

// Delete removes a key.
func (a *Attributes) Delete(keys ...string) {
	for _, key := range keys {
		if _, ok := a.values[key]; !ok {
			continue
		}
		delete(a.values, key)
		for i, k := range a.keys {
			if k == key {
				a.keys = append(a.keys[:i], a.keys[i+1:]...)
				break
			}
		}
	}
}

// Keys returns the attribute names in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Clone returns an independent copy.
func (a *Attributes) Clone() *Attributes {
	c := NewAttributes()
	for _, k := range a.Keys() {
		c.Set(k, a.values[k])
	}
	return c
}

// Map returns the attributes as a plain map, e.g. for hook payloads.
func (a *Attributes) Map() map[string]any {
	m := make(map[string]any, a.Len())
	for _, k := range a.Keys() {
		m[k] = a.values[k]
	}
	return m
}

// Bool interprets a value the way skin authors write flags:
// "", "0", "false", "no", "off" and "nein" are false.
func (a *Attributes) Bool(key string) bool {
	return ParseBool(a.Get(key))
}

// ParseBool converts a string flag to a boolean.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off", "nein":
		return false
	}
	return true
}

// Tag is a parsed <roundcube:NAME ...> token.
type Tag struct {
	Name  string
	Attrs *Attributes
}
