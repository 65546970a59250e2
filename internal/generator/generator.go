// Package generator scaffolds new skins below an install root.
package generator

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/storage"
	"go-skin-renderer/pkg/fsutils"
)

// Config holds the configuration for skin generation.
type Config struct {
	SubDirs      []string               // Subdirectories created in every skin
	DefaultFiles map[string]FileContent // File name to content and target subdir
}

// FileContent defines the content and target subdirectory of a default file.
type FileContent struct {
	Content string
	SubDir  string // Relative to the skin directory, e.g. "templates"
	Base    bool   // Written only for skins without a parent
}

var templateName = regexp.MustCompile(`^[a-z0-9_-]+$`)

// DefaultConfig provides the standard layout of a new skin: a page and
// an error template, a stylesheet and an English label catalogue.
func DefaultConfig() Config {
	const mailTemplate = `<roundcube:object name="doctype" value="html5" />
<html>
<head>
<title><roundcube:object name="pagetitle" /></title>
<roundcube:object name="meta" />
<roundcube:object name="links" />
</head>
<body class="{{ .SkinName }}">
<header>
	<roundcube:object name="logo" id="logo" />
	<roundcube:button command="compose" type="link" label="compose" class="compose" />
</header>
<main>
	<roundcube:object name="message" id="messagestack" />
	<roundcube:if condition="env:task == 'mail'" />
	<roundcube:object name="contentframe" />
	<roundcube:endif />
</main>
<roundcube:include file="includes/footer.html" />
</body>
</html>
`
	const errorTemplate = `<roundcube:object name="doctype" value="html5" />
<html>
<head><title><roundcube:object name="pagetitle" /></title></head>
<body class="{{ .SkinName }} error">
<h1><roundcube:var name="env:error_code" /></h1>
<p><roundcube:var name="env:error_message" /></p>
</body>
</html>
`
	const loginTemplate = `<roundcube:object name="doctype" value="html5" />
<html>
<head>
<title></title>
</head>
<body class="{{ .SkinName }} login">
<main>
	<roundcube:object name="logo" id="logo" />
	<roundcube:object name="loginform" submit="true" />
	<roundcube:object name="message" id="messagestack" />
</main>
<roundcube:include file="includes/footer.html" />
</body>
</html>
`
	const footerTemplate = `<footer><roundcube:object name="productname" /> <roundcube:object name="version" /></footer>
`
	const stylesheet = `/* Styles of the {{ .SkinName }} skin */
body { margin: 0; font-family: sans-serif; }
`
	const labels = `compose: "Compose"
`

	return Config{
		SubDirs: []string{"templates", "templates/includes", "styles", "images", "localization"},
		DefaultFiles: map[string]FileContent{
			"mail.html":   {Content: mailTemplate, SubDir: "templates", Base: true},
			"error.html":  {Content: errorTemplate, SubDir: "templates", Base: true},
			"login.html":  {Content: loginTemplate, SubDir: "templates", Base: true},
			"footer.html": {Content: footerTemplate, SubDir: "templates/includes", Base: true},
			"styles.css":  {Content: stylesheet, SubDir: "styles"},
			"en_US.yaml":  {Content: labels, SubDir: "localization"},
		},
	}
}

// Generator creates skins in a MetaStore.
type Generator struct {
	store  storage.MetaStore
	cfg    Config
	logger *slog.Logger
}

// New creates a Generator.
func New(store storage.MetaStore, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{store: store, cfg: cfg, logger: logger}
}

// CreateSkin creates the directory structure, default files and meta.json
// of a new skin. The directory name is derived from displayName. A skin
// extending parent gets no templates of its own; it inherits them.
func (g *Generator) CreateSkin(displayName, parent string) (string, *model.SkinMeta, error) {
	if strings.TrimSpace(displayName) == "" {
		return "", nil, fmt.Errorf("skin name cannot be empty")
	}
	name := fsutils.SanitizeName(displayName)
	if g.store.SkinExists(name) {
		return "", nil, fmt.Errorf("skin %s already exists", name)
	}
	if parent != "" && !g.store.SkinExists(parent) {
		return "", nil, fmt.Errorf("parent skin %s does not exist", parent)
	}

	meta := &model.SkinMeta{
		Name:         displayName,
		Extends:      parent,
		Localization: true,
		Meta:         map[string]any{"viewport": "width=device-width, initial-scale=1.0"},
		Links:        map[string]any{"stylesheet": "/styles/styles.css"},
	}
	if err := g.store.SaveMeta(name, meta); err != nil {
		return "", nil, err
	}

	skinDir := filepath.Join(g.store.GetBasePath(), filepath.FromSlash(g.store.SkinPath(name)))
	for _, sub := range g.cfg.SubDirs {
		dir := filepath.Join(skinDir, filepath.FromSlash(sub))
		if err := fsutils.CreateDir(dir); err != nil {
			return "", nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	for filename, file := range g.cfg.DefaultFiles {
		if file.Base && parent != "" {
			continue
		}
		path := filepath.Join(skinDir, filepath.FromSlash(file.SubDir), filename)
		content := strings.ReplaceAll(file.Content, "{{ .SkinName }}", name)
		if err := fsutils.WriteToFile(path, []byte(content)); err != nil {
			return "", nil, fmt.Errorf("failed to create default file %s: %w", path, err)
		}
		g.logger.Debug("Created file", "skin", name, "path", path)
	}

	g.logger.Info("Created skin", "skin", name, "extends", parent)
	return name, meta, nil
}

// AddTemplate writes a placeholder template named name into a skin. An
// existing template is not overwritten.
func (g *Generator) AddTemplate(skin, name string) (string, error) {
	name = strings.TrimSuffix(name, ".html")
	if !templateName.MatchString(name) {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	if !g.store.SkinExists(skin) {
		return "", fmt.Errorf("skin %s does not exist", skin)
	}

	path := filepath.Join(g.store.GetBasePath(), filepath.FromSlash(g.store.SkinPath(skin)), "templates", name+".html")
	if fsutils.FileExists(path) {
		return "", fmt.Errorf("template %s already exists in skin %s", name, skin)
	}
	content := fmt.Sprintf(`<roundcube:object name="doctype" value="html5" />
<html>
<head><title><roundcube:object name="pagetitle" /></title></head>
<body class="%s">
<div class="%s-template">
	<p><roundcube:object name="productname" /></p>
</div>
</body>
</html>
`, name, name)

	if err := fsutils.WriteToFile(path, []byte(content)); err != nil {
		return "", fmt.Errorf("failed to create template file %s: %w", path, err)
	}
	g.logger.Info("Created template", "skin", skin, "template", name)
	return path, nil
}
