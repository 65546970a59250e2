// Package assets rewrites asset references in rendered pages: skin
// relative paths are resolved against the path stack and cache-busted,
// and relative URLs are prefixed with the configured assets URL.
package assets

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go-skin-renderer/internal/skin"
	"go-skin-renderer/pkg/fsutils"
)

var (
	pathAttr   = regexp.MustCompile(`(?i)(src|href|background|data-src-[a-z]+)=(["']?)([a-z0-9/_.-]+)(["'\s>])`)
	assetAttr  = regexp.MustCompile(`(?i)(src|href|background)=(["']?)([a-z0-9/_.?=-]+)(["'\s>])`)
	bustable   = regexp.MustCompile(`\.(js|css|less|ico|png|svg|jpeg)$`)
	absoluteRe = regexp.MustCompile(`^https?://`)
)

// Rewriter holds the asset settings of one output.
type Rewriter struct {
	root       string
	assetsPath string
	devel      bool
	finder     *skin.Finder
}

// New creates a Rewriter for the install root. In development mode the
// minified variants of files are never substituted.
func New(root string, develMode bool) *Rewriter {
	return &Rewriter{
		root:   root,
		devel:  develMode,
		finder: &skin.Finder{Root: root, AssetsDir: root},
	}
}

// Finder returns the file finder bound to the current assets directory.
func (r *Rewriter) Finder() *skin.Finder { return r.finder }

// AssetsPath returns the URL prefix set by SetAssetsPath, with a trailing
// slash, or "".
func (r *Rewriter) AssetsPath() string { return r.assetsPath }

// SetAssetsPath sets the URL prefix for assets. A relative path is also
// used as the directory asset files are looked up in, unless fsDir names
// one explicitly. An empty path leaves the settings untouched.
func (r *Rewriter) SetAssetsPath(path, fsDir string) {
	if path == "" {
		return
	}
	path = strings.TrimRight(path, "/") + "/"

	if !absoluteRe.MatchString(path) && path[0] != '/' {
		r.finder.AssetsDir = filepath.Join(r.root, path)
	}
	if fsDir != "" {
		if !filepath.IsAbs(fsDir) {
			fsDir = filepath.Join(r.root, fsDir)
		}
		r.finder.AssetsDir = fsDir
	}
	r.assetsPath = path
}

// FixPaths resolves skin relative references (values starting with "/")
// against paths, looking in basePath first, and appends "?s=<mtime>" to
// scripts, stylesheets and images that exist on disk. A "/this/" prefix
// refers to the skin itself.
func (r *Rewriter) FixPaths(output string, paths []string, basePath string) string {
	return replaceAttr(pathAttr, output, func(file string) string {
		if strings.HasPrefix(file, "/this/") {
			file = file[len("/this"):]
		}
		if strings.HasPrefix(file, "/") {
			_, skinPath, ok := r.finder.SkinFile(file, paths, basePath, false)
			if !ok {
				skinPath = basePath
			}
			file = skinPath + file
		}
		if bustable.MatchString(file) {
			file = r.FileMod(file)
		}
		return file
	})
}

// FixAssetsPaths prefixes relative src/href/background values with the
// assets path.
func (r *Rewriter) FixAssetsPaths(output string) string {
	if r.assetsPath == "" {
		return output
	}
	return replaceAttr(assetAttr, output, r.AssetURL)
}

// AssetURL prefixes path with the assets path unless it is empty, starts
// with '?', '/' or '.', or contains a scheme.
func (r *Rewriter) AssetURL(path string) string {
	if r.assetsPath == "" || path == "" || strings.ContainsRune("?/.", rune(path[0])) || strings.Contains(path, "://") {
		return path
	}
	return r.assetsPath + path
}

// AbsURL makes a skin relative reference ("/...") absolute: resolved on the
// path stack when searchPath is set and the file exists, else relative to
// basePath. Other values are returned unchanged.
func (r *Rewriter) AbsURL(str string, paths []string, basePath string, searchPath bool) string {
	if !strings.HasPrefix(str, "/") {
		return str
	}
	if searchPath {
		if url, _, ok := r.finder.SkinFile(str, paths, "", false); ok {
			return url
		}
	}
	return basePath + str
}

// FileMod appends "?s=<unix mtime>" to file. Outside development mode a
// minified sibling (name.min.ext) is preferred when it exists. Files not
// on disk are returned unchanged.
func (r *Rewriter) FileMod(file string) string {
	dot := strings.LastIndexByte(file, '.')
	if dot < 0 {
		return file
	}
	ext := file[dot+1:]

	if !r.devel && !strings.HasSuffix(file, ".min."+ext) {
		minified := file[:dot+1] + "min." + ext
		if mtime, ok := fsutils.ModTime(filepath.Join(r.finder.AssetsDir, minified)); ok {
			return minified + "?s=" + strconv.FormatInt(mtime.Unix(), 10)
		}
	}
	if mtime, ok := fsutils.ModTime(filepath.Join(r.finder.AssetsDir, file)); ok {
		return file + "?s=" + strconv.FormatInt(mtime.Unix(), 10)
	}
	return file
}

// replaceAttr rewrites the value group of every attribute match.
func replaceAttr(re *regexp.Regexp, s string, fn func(string) string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		g := re.FindStringSubmatch(m)
		return g[1] + "=" + g[2] + fn(g[3]) + g[4]
	})
}
