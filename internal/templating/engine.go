// Package templating renders skin templates into complete pages. An Engine
// holds what is shared between requests (config, skins, hooks, object
// handlers); every request gets its own Output carrying the page state.
package templating

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"go-skin-renderer/internal/config"
	"go-skin-renderer/internal/i18n"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/plugin"
	"go-skin-renderer/internal/skin"
	"go-skin-renderer/internal/storage"
)

// Version is the application version exposed to templates.
const Version = "1.4.2"

// LocalizationDir holds the core label catalogues, relative to the
// install root.
const LocalizationDir = "program/localization"

// DeprecatedObjects maps object names used by older skins to their
// current name.
var DeprecatedObjects = map[string]string{
	"addressframe":        "contentframe",
	"messagecontentframe": "contentframe",
	"prefsframe":          "contentframe",
	"folderframe":         "contentframe",
	"identityframe":       "contentframe",
	"responseframe":       "contentframe",
	"keyframe":            "contentframe",
	"filterframe":         "contentframe",
}

// ObjectHandler renders a template object from its attributes.
type ObjectHandler func(out *Output, attrs *model.Attributes) string

// Registry maps object names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ObjectHandler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ObjectHandler)}
}

// Register adds or replaces the handler of an object name.
func (r *Registry) Register(name string, h ObjectHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(name)] = h
}

// Lookup normalizes name, follows one deprecated alias and returns the
// handler found under the resulting name.
func (r *Registry) Lookup(name string) (ObjectHandler, string, bool) {
	name = strings.ToLower(name)
	if alias, ok := DeprecatedObjects[name]; ok {
		name = alias
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, name, ok
}

// Engine creates Outputs bound to shared collaborators.
type Engine struct {
	cfg      *config.Store
	store    storage.MetaStore
	resolver *skin.Resolver
	loader   *skin.Loader
	hooks    *plugin.Dispatcher
	objects  *Registry
	root     string
	logger   *slog.Logger
}

// NewEngine creates an Engine rendering the skins of store. hooks may be
// nil when no plugins are loaded.
func NewEngine(cfg *config.Store, store storage.MetaStore, hooks *plugin.Dispatcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg == nil {
		cfg = config.New()
	}
	if hooks == nil {
		hooks = plugin.NewDispatcher(logger)
	}
	root := store.GetBasePath()
	return &Engine{
		cfg:      cfg,
		store:    store,
		resolver: skin.NewResolver(store, logger),
		loader:   skin.NewLoader(root, cfg.GetString("plugins_url"), logger),
		hooks:    hooks,
		objects:  NewRegistry(),
		root:     root,
		logger:   logger,
	}
}

// Resolver returns the skin resolver, e.g. for a metadata watcher.
func (e *Engine) Resolver() *skin.Resolver { return e.resolver }

// Hooks returns the plugin hook dispatcher.
func (e *Engine) Hooks() *plugin.Dispatcher { return e.hooks }

// Objects returns the registry of application object handlers.
func (e *Engine) Objects() *Registry { return e.objects }

// Config returns the shared configuration.
func (e *Engine) Config() *config.Store { return e.cfg }

// NewOutput creates the page state for one request. A nil request is
// treated as an empty one.
func (e *Engine) NewOutput(req *Request) *Output {
	if req == nil {
		req = &Request{}
	}
	lang := req.Language()
	catalog := i18n.NewCatalog(lang)
	if err := catalog.LoadDir(filepath.Join(e.root, LocalizationDir)); err != nil {
		e.logger.Warn("Failed to load core labels", "error", err)
	}
	return newOutput(e, req, e.cfg.Clone(), catalog)
}
