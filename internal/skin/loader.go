package skin

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go-skin-renderer/internal/model"
	"go-skin-renderer/pkg/fsutils"
)

// DeprecatedTemplates maps current template names to the names older
// skins still use.
var DeprecatedTemplates = map[string]string{
	"contact":      "showcontact",
	"contactadd":   "addcontact",
	"contactedit":  "editcontact",
	"identityedit": "editidentity",
	"messageprint": "printmessage",
}

// Template is a template file read from a skin path.
type Template struct {
	Name     string // requested name, possibly plugin qualified
	Plugin   string // plugin owning the template, if any
	Content  string
	SkinPath string // stack entry the file was found in
	BasePath string // core skin directory, plugin prefix removed
	File     string // file system path
}

// Loader finds template files on a render's path stack.
type Loader struct {
	root       string
	pluginsURL string
	logger     *slog.Logger
}

// NewLoader creates a Loader for the install root. pluginsURL is the
// configured plugin base, "plugins/" when empty.
func NewLoader(root, pluginsURL string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if pluginsURL == "" {
		pluginsURL = "plugins/"
	}
	return &Loader{root: root, pluginsURL: pluginsURL, logger: logger}
}

var (
	pluginsRef = regexp.MustCompile(`\bplugins/`)
	thisRef    = regexp.MustCompile(`(["']?)/this/`)
	pluginDir  = regexp.MustCompile(`plugins/\w+/`)
)

// Load finds the named template and calls process while plugin skin paths
// are on the stack, so that includes and file lookups made by process see
// them. The plugin paths are popped before Load returns, on every path.
// A template that no stack entry provides yields a NotFound error.
func (l *Loader) Load(stack *Stack, name string, process func(*Template) error) error {
	tpl := &Template{Name: name}
	file := name
	pushed := 0

	if plugin, rest, ok := strings.Cut(name, "."); ok {
		tpl.Plugin, file = plugin, rest
		var pluginPaths []string
		for _, p := range stack.Paths() {
			pluginPaths = append(pluginPaths, l.pluginsURL+plugin+"/"+p)
		}
		pushed = stack.Push(pluginPaths...)
	}
	defer stack.Pop(pushed)

	path, skinPath, found := l.find(stack, tpl.Plugin, file, name)
	if !found {
		return model.NotFound(name, fmt.Errorf("no template file in %s", strings.Join(stack.Paths(), ", ")))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.NotFound(name, err)
	}

	tpl.File = path
	tpl.SkinPath = skinPath
	tpl.BasePath = pluginDir.ReplaceAllString(skinPath, "")
	tpl.Content = string(data)

	if tpl.Plugin != "" {
		skinDir := strings.TrimPrefix(skinPath, l.pluginsURL)
		tpl.Content = pluginsRef.ReplaceAllLiteralString(tpl.Content, l.pluginsURL)
		tpl.Content = thisRef.ReplaceAllString(tpl.Content, "${1}"+escapeDollar(l.pluginsURL+skinDir+"/"))
	}

	l.logger.Debug("Loaded template", "template", name, "path", path)
	if process == nil {
		return nil
	}
	return process(tpl)
}

// Read loads a template without processing it.
func (l *Loader) Read(stack *Stack, name string) (*Template, error) {
	var out *Template
	err := l.Load(stack, name, func(t *Template) error {
		out = t
		return nil
	})
	return out, err
}

// find searches the stack for templates/<file>.html, falling back to the
// deprecated name of the template. Plugin lookups skip core skin paths.
func (l *Loader) find(stack *Stack, plugin, file, realName string) (path, skinPath string, ok bool) {
	for _, sp := range stack.Paths() {
		if plugin != "" && !strings.HasPrefix(sp, l.pluginsURL) {
			continue
		}
		path := l.templatePath(sp, file)
		if readable(path) {
			return path, sp, true
		}
		if dname, ok := DeprecatedTemplates[realName]; ok {
			path = l.templatePath(sp, dname)
			if readable(path) {
				l.logger.Warn("Using deprecated template name",
					"template", dname, "path", sp+"/templates", "rename_to", realName)
				return path, sp, true
			}
		}
	}
	return "", "", false
}

// Exists reports whether a template (or its deprecated name) is available
// in any stack path.
func (l *Loader) Exists(stack *Stack, name string) bool {
	for _, sp := range stack.Paths() {
		if readable(l.templatePath(sp, name)) {
			return true
		}
		if dname, ok := DeprecatedTemplates[name]; ok && l.Exists(stack, dname) {
			return true
		}
	}
	return false
}

func (l *Loader) templatePath(skinPath, name string) string {
	return filepath.Join(l.root, skinPath, "templates", name+".html")
}

func readable(path string) bool {
	return fsutils.FileExists(path) && fsutils.IsReadable(path)
}

func escapeDollar(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
