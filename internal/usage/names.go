package usage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// NameResolver maps package ids to display labels. Labels come from the
// configured alias table and can be swapped at runtime on config reload.
type NameResolver struct {
	mu     sync.RWMutex
	labels map[string]string
}

func NewNameResolver(labels map[string]string) *NameResolver {
	r := &NameResolver{}
	r.SetLabels(labels)
	return r
}

func (r *NameResolver) SetLabels(labels map[string]string) {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	r.mu.Lock()
	r.labels = copied
	r.mu.Unlock()
}

// Resolve returns a human readable name for pkg.
func (r *NameResolver) Resolve(pkg string) string {
	r.mu.RLock()
	label, ok := r.labels[pkg]
	r.mu.RUnlock()
	if !ok || label == "" {
		label = pkg
	}
	return FormatAppName(label, pkg)
}

// FormatAppName keeps label unless it looks like a package id, in which case
// the trailing segment of pkg is used with its first letter upper-cased:
// "com.google.android.youtube" becomes "Youtube". This is a display
// heuristic only.
func FormatAppName(label, pkg string) string {
	if !strings.Contains(label, ".") {
		return label
	}
	name := pkg
	if i := strings.LastIndexByte(pkg, '.'); i >= 0 {
		name = pkg[i+1:]
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// IconResolver finds <dir>/<pkg>.png.
type IconResolver struct {
	Dir string
}

// Resolve returns the icon path, or "" when there is none.
func (r IconResolver) Resolve(pkg string) string {
	if r.Dir == "" || pkg == "" || strings.ContainsAny(pkg, `/\`) {
		return ""
	}
	path := filepath.Join(r.Dir, pkg+".png")
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}
