package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-chi/chi/v5"
)

// skinInfo describes one skin in the admin listing.
type skinInfo struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Extends string   `json:"extends,omitempty"`
	Paths   []string `json:"paths"`
	Error   string   `json:"error,omitempty"`
}

// previewRequest is the body of a preview request.
type previewRequest struct {
	Content string `json:"content"`
}

var templateFile = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)?\.html$`)

// adminRoutes mounts the skin admin API used while developing skins.
func (app *application) adminRoutes(r chi.Router) {
	r.Get("/skins", app.skinsHandler)
	r.Get("/skins/{skin}/templates/{filename}", app.templateContentHandler)
	r.Post("/skins/{skin}/reload", app.skinReloadHandler)
	r.Post("/preview/{skin}", app.previewHandler)
}

// skinsHandler lists all skins with their resolved search paths.
func (app *application) skinsHandler(w http.ResponseWriter, r *http.Request) {
	names, err := app.store.ListSkins()
	if err != nil {
		app.logger.Error("Failed to list skins", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resolver := app.engine.Resolver()
	skins := make([]skinInfo, 0, len(names))
	for _, name := range names {
		info := skinInfo{Name: name, Title: name}
		if meta, err := app.store.LoadMeta(name); err == nil {
			info.Title = meta.Name
			info.Extends = meta.Extends
		}
		sk, err := resolver.Resolve(name)
		if err != nil {
			info.Error = err.Error()
		}
		info.Paths = sk.PathStack
		skins = append(skins, info)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(skins); err != nil {
		app.logger.Error("Error writing skin list", "error", err)
	}
}

// templateContentHandler returns the source of a template of a skin.
func (app *application) templateContentHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "skin")
	filename := chi.URLParam(r, "filename")
	if !templateFile.MatchString(filename) {
		http.Error(w, "Bad Request - Invalid filename", http.StatusBadRequest)
		return
	}
	if !app.engine.Resolver().Check(name) {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(app.root, filepath.FromSlash(app.store.SkinPath(name)), "templates", filename)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		app.logger.Error("Failed to read template file", "skin", name, "path", path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write(content); err != nil {
		app.logger.Error("Error writing template content", "skin", name, "filename", filename, "error", err)
	}
}

// skinReloadHandler drops the cached metadata of a skin.
func (app *application) skinReloadHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "skin")
	if !app.engine.Resolver().Check(name) {
		http.NotFound(w, r)
		return
	}
	app.engine.Resolver().Invalidate(name)
	app.logger.Info("Reloaded skin metadata", "skin", name)
	w.WriteHeader(http.StatusNoContent)
}

// previewHandler renders posted template markup with a skin without
// assembling a page around it.
func (app *application) previewHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "skin")
	if !app.engine.Resolver().Check(name) {
		http.NotFound(w, r)
		return
	}

	var body previewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad Request - Invalid JSON", http.StatusBadRequest)
		return
	}

	out := app.engine.NewOutput(nil)
	out.SetSkin(name)

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	if _, err := w.Write([]byte(out.JustParse(body.Content))); err != nil {
		app.logger.Error("Error writing preview", "skin", name, "error", err)
	}
}
