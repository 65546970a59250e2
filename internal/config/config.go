// Package config holds the renderer configuration: defaults, an optional
// config file, environment overrides and the overlay applied by skins.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultProductName is used when no product_name is configured.
const DefaultProductName = "Roundcube Webmail"

// Store wraps a viper instance. Skins write into it through Set, and user
// preferences are merged with MergePrefs, which honors dont_override.
type Store struct {
	v *viper.Viper
}

// New returns a Store populated with defaults only.
func New() *Store {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RENDERER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Store{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("skin", "elastic")
	v.SetDefault("install_dir", ".")
	v.SetDefault("plugins_url", "plugins/")
	v.SetDefault("product_name", DefaultProductName)
	v.SetDefault("devel_mode", false)
	v.SetDefault("blankpage_url", "/watermark.html")
	v.SetDefault("x_frame_options", "sameorigin")
	v.SetDefault("standard_windows", false)
	v.SetDefault("language", "en_US")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("compression.enabled", true)
	v.SetDefault("compression.min_size", 1024)
	v.SetDefault("compression.level", "default")
	v.SetDefault("session_db", "")
	v.SetDefault("session_lifetime", 10)
}

// Load reads the config file at path (any format viper understands) on top
// of the defaults. An empty path skips the file. Flags, when given, take
// precedence over the file.
func Load(path string, flags *pflag.FlagSet) (*Store, error) {
	s := New()
	if path != "" {
		s.v.SetConfigFile(path)
		if err := s.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if flags != nil {
		if err := s.v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	return s, nil
}

// Clone returns an independent Store holding the current settings, so a
// render can apply its skin overlay without touching the shared store.
func (s *Store) Clone() *Store {
	v := viper.New()
	setDefaults(v)
	if err := v.MergeConfigMap(s.v.AllSettings()); err != nil {
		for k, val := range s.v.AllSettings() {
			v.Set(k, val)
		}
	}
	return &Store{v: v}
}

// Get returns the value stored under key, or nil.
func (s *Store) Get(key string) any {
	return s.v.Get(key)
}

// GetDefault returns the value stored under key, or def when it is unset.
func (s *Store) GetDefault(key string, def any) any {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.Get(key)
}

// IsSet reports whether key has any value, including a default.
func (s *Store) IsSet(key string) bool { return s.v.IsSet(key) }

// GetString returns key as a string.
func (s *Store) GetString(key string) string { return s.v.GetString(key) }

// GetBool returns key as a bool.
func (s *Store) GetBool(key string) bool { return s.v.GetBool(key) }

// GetInt returns key as an int.
func (s *Store) GetInt(key string) int { return s.v.GetInt(key) }

// GetStringSlice returns key as a list of strings.
func (s *Store) GetStringSlice(key string) []string { return s.v.GetStringSlice(key) }

// Set stores a value in the override layer.
func (s *Store) Set(key string, value any) {
	s.v.Set(key, value)
}

// DontOverride returns the keys user preferences may not replace.
func (s *Store) DontOverride() []string {
	return s.v.GetStringSlice("dont_override")
}

// AddDontOverride appends keys to dont_override. Existing keys are kept,
// so the list only grows.
func (s *Store) AddDontOverride(keys ...string) {
	current := s.DontOverride()
	seen := make(map[string]bool, len(current))
	for _, k := range current {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			current = append(current, k)
			seen[k] = true
		}
	}
	s.v.Set("dont_override", current)
}

// MergePrefs applies user preferences, skipping every key listed in
// dont_override. It returns the keys that were applied.
func (s *Store) MergePrefs(prefs map[string]any) []string {
	locked := make(map[string]bool)
	for _, k := range s.DontOverride() {
		locked[strings.ToLower(k)] = true
	}
	var applied []string
	for k, v := range prefs {
		if locked[strings.ToLower(k)] {
			continue
		}
		s.v.Set(k, v)
		applied = append(applied, k)
	}
	return applied
}
