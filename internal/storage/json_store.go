package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"go-skin-renderer/internal/model"
	"go-skin-renderer/pkg/fsutils"
)

// SkinsDir is the directory below the install root holding all skins.
const SkinsDir = "skins"

// MetaFile is the metadata file name inside a skin directory.
const MetaFile = "meta.json"

// JSONStore implements MetaStore on top of meta.json files.
type JSONStore struct {
	// BasePath is the install root; skins live in BasePath/skins/<name>.
	BasePath string
	logger   *slog.Logger
}

// NewJSONStore creates a new JSONStore instance.
// It ensures the skins directory exists.
func NewJSONStore(basePath string, logger *slog.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	skinsDir := filepath.Join(basePath, SkinsDir)
	if err := fsutils.CreateDir(skinsDir); err != nil {
		return nil, fmt.Errorf("failed to create skins directory '%s': %w", skinsDir, err)
	}
	return &JSONStore{BasePath: basePath, logger: logger}, nil
}

// GetBasePath returns the install root.
func (js *JSONStore) GetBasePath() string {
	return js.BasePath
}

// SkinPath returns the skin directory relative to the install root.
func (js *JSONStore) SkinPath(name string) string {
	return SkinsDir + "/" + name
}

func (js *JSONStore) skinDir(name string) string {
	return filepath.Join(js.BasePath, SkinsDir, name)
}

// SkinExists reports whether the skin directory exists and can be read.
func (js *JSONStore) SkinExists(name string) bool {
	if name == "" {
		return false
	}
	dir := js.skinDir(name)
	return fsutils.DirExists(dir) && fsutils.IsReadable(dir)
}

// SaveMeta persists a skin's metadata to its meta.json file.
func (js *JSONStore) SaveMeta(name string, meta *model.SkinMeta) error {
	if name == "" {
		return fmt.Errorf("skin name cannot be empty")
	}
	dir := js.skinDir(name)
	if err := fsutils.CreateDir(dir); err != nil {
		return fmt.Errorf("failed to create skin directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata of skin %s: %w", name, err)
	}

	filePath := filepath.Join(dir, MetaFile)
	if err := fsutils.WriteToFile(filePath, data); err != nil {
		return fmt.Errorf("failed to write metadata file %s: %w", filePath, err)
	}
	js.logger.Debug("Saved skin metadata", "skin", name, "path", filePath)
	return nil
}

// LoadMeta retrieves a skin's metadata from its meta.json file. The Name
// defaults to the directory name and Path is set to the relative skin path.
func (js *JSONStore) LoadMeta(name string) (*model.SkinMeta, error) {
	if name == "" {
		return nil, fmt.Errorf("skin name cannot be empty")
	}
	filePath := filepath.Join(js.skinDir(name), MetaFile)

	data, err := fsutils.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("metadata of skin %s not found: %w", name, err)
		}
		return nil, fmt.Errorf("failed to read metadata file %s: %w", filePath, err)
	}

	var meta model.SkinMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata from %s: %w", filePath, err)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	meta.Path = js.SkinPath(name)
	js.logger.Debug("Loaded skin metadata", "skin", name, "path", filePath)
	return &meta, nil
}

// ListSkins scans the skins directory for skin subdirectories.
func (js *JSONStore) ListSkins() ([]string, error) {
	dir := filepath.Join(js.BasePath, SkinsDir)
	entries, err := fsutils.ScanDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read skins directory %s: %w", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() && entry.Name()[0] != '.' {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// DeleteSkin removes the skin directory. Deleting a missing skin is not an
// error.
func (js *JSONStore) DeleteSkin(name string) error {
	if name == "" {
		return fmt.Errorf("skin name cannot be empty")
	}
	dir := js.skinDir(name)
	if !fsutils.DirExists(dir) {
		js.logger.Debug("Skin directory already deleted or never existed", "skin", name)
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete skin directory %s: %w", dir, err)
	}
	js.logger.Info("Deleted skin", "skin", name)
	return nil
}
