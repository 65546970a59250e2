// Package plugin dispatches named hooks to registered callbacks.
package plugin

import (
	"io"
	"log/slog"
	"sync"
)

// Args is the payload passed through a hook. Handlers return it, modified
// or not. "content" carries markup and "abort" stops output where the
// caller honors it.
type Args map[string]any

// Content returns the "content" value as a string.
func (a Args) Content() string {
	s, _ := a["content"].(string)
	return s
}

// Abort reports whether a handler set "abort".
func (a Args) Abort() bool {
	b, _ := a["abort"].(bool)
	return b
}

// Handler processes a hook payload.
type Handler func(args Args) Args

// Dispatcher runs hook handlers in registration order.
type Dispatcher struct {
	mu         sync.RWMutex
	handlers   map[string][]Handler
	processing map[string]int
	logger     *slog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		handlers:   make(map[string][]Handler),
		processing: make(map[string]int),
		logger:     logger,
	}
}

// Register adds a handler for hook.
func (d *Dispatcher) Register(hook string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[hook] = append(d.handlers[hook], h)
}

// HasHandlers reports whether anything listens on hook.
func (d *Dispatcher) HasHandlers(hook string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[hook]) > 0
}

// Exec passes args through every handler of hook. A handler returning nil
// leaves the payload unchanged; handlers after an abort are skipped.
func (d *Dispatcher) Exec(hook string, args Args) Args {
	if args == nil {
		args = Args{}
	}
	d.mu.Lock()
	handlers := append([]Handler(nil), d.handlers[hook]...)
	d.processing[hook]++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.processing[hook]--
		d.mu.Unlock()
	}()

	for _, h := range handlers {
		if out := h(args); out != nil {
			args = out
		}
		if args.Abort() {
			d.logger.Debug("Hook aborted", "hook", hook)
			break
		}
	}
	return args
}

// IsProcessing reports whether hook is currently executing.
func (d *Dispatcher) IsProcessing(hook string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.processing[hook] > 0
}
