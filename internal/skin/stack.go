package skin

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go-skin-renderer/pkg/fsutils"
)

// Stack is the mutable search-path list of one render. Paths are relative
// to the install root and ordered by precedence.
type Stack struct {
	paths []string
}

// NewStack creates a stack holding a copy of paths.
func NewStack(paths []string) *Stack {
	return &Stack{paths: append([]string(nil), paths...)}
}

// Paths returns a copy of the current paths.
func (s *Stack) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Len returns the number of paths.
func (s *Stack) Len() int { return len(s.paths) }

// Base returns the highest precedence path, or "" for an empty stack.
func (s *Stack) Base() string {
	if len(s.paths) == 0 {
		return ""
	}
	return s.paths[0]
}

// Push prepends paths and returns how many were added, for Pop.
func (s *Stack) Push(paths ...string) int {
	s.paths = append(append([]string(nil), paths...), s.paths...)
	return len(paths)
}

// Pop removes the n most recently pushed paths.
func (s *Stack) Pop(n int) {
	if n > len(s.paths) {
		n = len(s.paths)
	}
	s.paths = s.paths[n:]
}

var minifiable = regexp.MustCompile(`\.(js|css)$`)

// Finder locates files below the skin paths of a stack, looking in the
// assets directory first when it differs from the install root.
type Finder struct {
	Root      string
	AssetsDir string
}

// FindPath returns the first stack path under which file exists.
func (f *Finder) FindPath(file string, paths []string) (string, bool) {
	for _, p := range paths {
		if f.AssetsDir != "" && filepath.Clean(f.AssetsDir) != filepath.Clean(f.Root) {
			if fsutils.FileExists(filepath.Join(f.AssetsDir, p, file)) {
				return p, true
			}
		}
		if fsutils.FileExists(filepath.Join(f.Root, p, file)) {
			return p, true
		}
	}
	return "", false
}

// SkinFile resolves file (starting with "/") against paths, with addPath
// searched first. With minified set, a missing x.js or x.css falls back to
// x.min.js or x.min.css. It returns the relative URL and the matching path.
func (f *Finder) SkinFile(file string, paths []string, addPath string, minified bool) (url, skinPath string, ok bool) {
	if addPath != "" {
		paths = unique(append([]string{addPath}, paths...))
	}
	if p, found := f.FindPath(file, paths); found {
		return p + file, p, true
	}
	if minified && !strings.HasSuffix(strings.TrimSuffix(strings.TrimSuffix(file, ".js"), ".css"), ".min") &&
		minifiable.MatchString(file) {
		minFile := minifiable.ReplaceAllString(file, ".min.$1")
		if p, found := f.FindPath(minFile, paths); found {
			return p + minFile, p, true
		}
	}
	return "", "", false
}

func unique(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
