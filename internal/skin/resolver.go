// Package skin resolves skin names into search-path stacks and loads
// template files from them.
package skin

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/storage"
)

// DefaultSkin is used whenever a requested skin is invalid or missing.
const DefaultSkin = "elastic"

// Resolver turns skin names into resolved skins. Metadata is cached per
// skin until Invalidate is called; the resolved skin itself is built fresh
// on every call so a render never shares mutable state with another.
type Resolver struct {
	store  storage.MetaStore
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*model.SkinMeta
}

// NewResolver creates a Resolver reading metadata from store.
func NewResolver(store storage.MetaStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		store:  store,
		logger: logger,
		cache:  make(map[string]*model.SkinMeta),
	}
}

// ValidName rejects empty names and names containing path separators.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}

// Check reports whether name is a valid, existing, readable skin.
func (r *Resolver) Check(name string) bool {
	if !ValidName(name) {
		r.logger.Error("Invalid skin name", "skin", name)
		return false
	}
	return r.store.SkinExists(name)
}

// Resolve builds the skin for name following its extends chain. An
// invalid or missing skin is replaced by DefaultSkin. The returned skin is
// always usable; a non-nil error (ErrConfig) reports a cyclic extends chain
// that was cut at the first repeated skin.
func (r *Resolver) Resolve(name string) (*model.Skin, error) {
	if !r.Check(name) {
		r.logger.Warn("Falling back to default skin", "skin", name, "default", DefaultSkin)
		name = DefaultSkin
	}

	s := &model.Skin{
		Name:     name,
		Metas:    make(map[string]*model.SkinMeta),
		Config:   make(map[string]any),
		MetaTags: model.NewTagSet(),
		LinkTags: model.NewTagSet(),
	}
	s.LinkTags.Set("shortcut icon", "")

	var chain []*model.SkinMeta
	var resolveErr error
	visited := make(map[string]bool)
	for current := name; current != ""; {
		if visited[current] {
			names := make([]string, 0, len(chain)+1)
			for _, m := range chain {
				names = append(names, skinID(m))
			}
			names = append(names, current)
			resolveErr = model.ConfigErr(name, fmt.Errorf("cyclic extends chain %s", strings.Join(names, " -> ")))
			r.logger.Error("Cyclic skin inheritance", "skin", name, "chain", names)
			break
		}
		visited[current] = true

		meta := r.meta(current)
		chain = append(chain, meta)
		s.PathStack = append(s.PathStack, meta.Path)
		s.Metas[current] = meta

		parent := meta.Extends
		if parent != "" && !r.Check(parent) {
			r.logger.Warn("Parent skin not available", "skin", current, "extends", parent)
			parent = ""
		}
		current = parent
	}

	// config: child to parent, first applied wins
	for _, meta := range chain {
		for _, key := range sortedKeys(meta.Config) {
			if _, ok := s.Config[key]; ok {
				continue
			}
			s.Config[key] = meta.Config[key]
			s.ConfigOrder = append(s.ConfigOrder, key)
		}
	}

	// tags and catalogues: parent first so the child overrides
	for i := len(chain) - 1; i >= 0; i-- {
		meta := chain[i]
		s.MetaTags.Merge(meta.Meta)
		s.LinkTags.Merge(meta.Links)
		if dir := meta.LocalizationDir(); dir != "" {
			s.LocalizationDirs = append(s.LocalizationDirs, meta.Path+"/"+dir)
		}
	}

	r.logger.Debug("Resolved skin", "skin", name, "paths", s.PathStack)
	return s, resolveErr
}

// meta returns the cached metadata of a skin, loading it on first use.
// Missing or unreadable metadata yields empty values.
func (r *Resolver) meta(name string) *model.SkinMeta {
	r.mu.RLock()
	m, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return m
	}

	m, err := r.store.LoadMeta(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Ignoring skin metadata", "skin", name, "error", err)
		}
		m = &model.SkinMeta{Name: name, Path: r.store.SkinPath(name)}
	}

	r.mu.Lock()
	r.cache[name] = m
	r.mu.Unlock()
	return m
}

// Invalidate drops cached metadata for the given skins, or for all skins
// when called without arguments.
func (r *Resolver) Invalidate(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(names) == 0 {
		r.cache = make(map[string]*model.SkinMeta)
		return
	}
	for _, name := range names {
		delete(r.cache, name)
	}
}

func skinID(m *model.SkinMeta) string {
	if i := strings.LastIndexByte(m.Path, '/'); i >= 0 {
		return m.Path[i+1:]
	}
	return m.Path
}
