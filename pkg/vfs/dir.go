// ABOUTME: OS directory backed virtual file system
// ABOUTME: Indexes a data directory once and resolves normalized names
package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir is an FS over one directory tree on disk. The tree is indexed once
// at construction; lookups are case-insensitive through normalization.
type Dir struct {
	root  string
	index map[string]string // normalized name -> on-disk path
	names []string          // sorted normalized names
}

// NewDir indexes the directory tree rooted at root.
func NewDir(root string) (*Dir, error) {
	d := &Dir{
		root:  root,
		index: make(map[string]string),
	}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		d.index[Normalize(filepath.ToSlash(rel))] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index data directory %s: %w", root, err)
	}

	d.names = make([]string, 0, len(d.index))
	for name := range d.index {
		d.names = append(d.names, name)
	}
	sort.Strings(d.names)

	return d, nil
}

// Open returns a handle to the named resource.
func (d *Dir) Open(name string) (File, error) {
	path, ok := d.index[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("resource not found: %s", name)
	}
	return os.Open(path)
}

// Exists reports whether the named resource is present.
func (d *Dir) Exists(name string) bool {
	_, ok := d.index[Normalize(name)]
	return ok
}

// List returns the normalized names of all resources under prefix.
func (d *Dir) List(prefix string) []string {
	prefix = Normalize(prefix)

	i := sort.SearchStrings(d.names, prefix)
	var out []string
	for ; i < len(d.names); i++ {
		if !strings.HasPrefix(d.names[i], prefix) {
			break
		}
		out = append(out, d.names[i])
	}
	return out
}
