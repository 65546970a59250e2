package storage

import "go-skin-renderer/internal/model"

// MetaStore gives access to the skins installed below an install root.
// Skin names are plain directory names; callers validate them first.
type MetaStore interface {
	// LoadMeta reads skins/<name>/meta.json. A missing file yields an error
	// matching fs.ErrNotExist.
	LoadMeta(name string) (*model.SkinMeta, error)

	// SaveMeta writes skins/<name>/meta.json, creating the skin directory.
	SaveMeta(name string, meta *model.SkinMeta) error

	// SkinExists reports whether skins/<name> is a readable directory.
	SkinExists(name string) bool

	// ListSkins returns the names of all skin directories, sorted.
	ListSkins() ([]string, error)

	// DeleteSkin removes a skin directory and everything in it.
	DeleteSkin(name string) error

	// SkinPath returns the skin directory relative to the install root,
	// e.g. "skins/elastic".
	SkinPath(name string) string

	// GetBasePath returns the install root.
	GetBasePath() string
}
