// Package symbols resolves file paths recorded in profiles back to source
// files present on the local machine, so downstream viewers can show
// source lines for binaries built elsewhere.
package symbols

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/pprof/profile"
)

// Mapper rewrites profile file paths using an index built over a set of
// search paths. A Mapper is immutable after construction and safe for
// concurrent use.
type Mapper struct {
	roots []string
	// index maps a path suffix (dir/base.go) and a bare base name to the
	// resolved absolute path. Earlier roots win over later ones.
	index map[string]string
}

// NewMapper walks the given search paths in order and indexes every Go
// source file found. Paths that do not exist are skipped; an error is
// returned only when no path could be indexed at all.
func NewMapper(paths []string) (*Mapper, error) {
	m := &Mapper{
		roots: paths,
		index: make(map[string]string),
	}

	indexed := 0
	for _, root := range paths {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(path, ".go") {
				return nil
			}
			base := filepath.Base(path)
			suffix := filepath.Join(filepath.Base(filepath.Dir(path)), base)
			if _, ok := m.index[suffix]; !ok {
				m.index[suffix] = path
			}
			if _, ok := m.index[base]; !ok {
				m.index[base] = path
			}
			indexed++
			return nil
		})
		if err != nil {
			continue
		}
	}

	if len(paths) > 0 && indexed == 0 {
		return nil, fmt.Errorf("no source files found under %v", paths)
	}
	return m, nil
}

// Resolve maps a recorded file path to a local source path. The second
// return is false when no mapping exists.
func (m *Mapper) Resolve(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	// A path that already resolves locally needs no mapping.
	if _, err := os.Stat(filename); err == nil {
		return filename, true
	}
	base := filepath.Base(filename)
	suffix := filepath.Join(filepath.Base(filepath.Dir(filename)), base)
	if p, ok := m.index[suffix]; ok {
		return p, true
	}
	if p, ok := m.index[base]; ok {
		return p, true
	}
	return "", false
}

// Apply rewrites every function filename in p that the mapper can
// resolve. Unresolvable paths are left untouched.
func (m *Mapper) Apply(p *profile.Profile) {
	if m == nil || p == nil {
		return
	}
	for _, fn := range p.Function {
		if resolved, ok := m.Resolve(fn.Filename); ok {
			fn.Filename = resolved
		}
	}
}
