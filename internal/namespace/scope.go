package namespace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	stdpath "path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Root is one entry of a search path.
type Root struct {
	// Name identifies the root in logs and errors (a directory, "builtin", ...).
	Name string
	FS   fs.FS
}

// DirRoot returns a root backed by a directory on disk.
func DirRoot(dir string) Root {
	return Root{Name: dir, FS: os.DirFS(dir)}
}

// GlobRoots expands doublestar patterns (e.g. "plugins/*", "vendor/**/handlers")
// into directory roots. Matches of each pattern are taken in lexical order;
// patterns keep their given order and duplicates keep their first position.
func GlobRoots(patterns ...string) ([]Root, error) {
	var roots []Root
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand root pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.IsDir() {
				continue
			}
			abs, err := filepath.Abs(m)
			if err != nil {
				abs = m
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			roots = append(roots, DirRoot(m))
		}
	}
	return roots, nil
}

// Resource is a mapping resource found in a root.
type Resource struct {
	Origin string
	Path   string
	fsys   fs.FS
}

// NewResource returns a resource that reads path from fsys.
func NewResource(origin, path string, fsys fs.FS) Resource {
	return Resource{Origin: origin, Path: path, fsys: fsys}
}

// ReadAll returns the raw resource contents.
func (r Resource) ReadAll() ([]byte, error) {
	if r.fsys == nil {
		return nil, fmt.Errorf("resource %s has no filesystem", r.Origin)
	}
	return fs.ReadFile(r.fsys, r.Path)
}

// Locator discovers every resource with a given logical path.
type Locator interface {
	Locate(path string) ([]Resource, error)
}

// TypeResolver maps a declared type name to a registered Type.
type TypeResolver interface {
	Lookup(name string) (*Type, error)
}

// Scope is the search boundary of a Resolver: it finds mapping resources and
// resolves the type names they declare.
type Scope interface {
	Locator
	TypeResolver
}

// SearchScope searches an ordered list of roots for resources and a Catalog
// for types.
type SearchScope struct {
	roots   []Root
	catalog *Catalog
}

var _ Scope = (*SearchScope)(nil)

// NewScope creates a scope over roots. A nil catalog means DefaultCatalog.
func NewScope(catalog *Catalog, roots ...Root) *SearchScope {
	if catalog == nil {
		catalog = DefaultCatalog
	}
	return &SearchScope{
		roots:   append([]Root(nil), roots...),
		catalog: catalog,
	}
}

// Roots returns the search roots in discovery order.
func (s *SearchScope) Roots() []Root {
	return append([]Root(nil), s.roots...)
}

// Locate returns the resource at path in every root that has one, in root
// order. Roots without the resource are skipped; any other error fails the
// whole lookup.
func (s *SearchScope) Locate(path string) ([]Resource, error) {
	name := stdpath.Clean(strings.TrimPrefix(path, "/"))
	if !fs.ValidPath(name) {
		return nil, &ResourceLoadError{Path: path, Err: fs.ErrInvalid}
	}

	var found []Resource
	for _, root := range s.roots {
		info, err := fs.Stat(root.FS, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &ResourceLoadError{Path: path, Origin: root.Name, Err: err}
		}
		if info.IsDir() {
			continue
		}
		found = append(found, NewResource(root.Name, name, root.FS))
	}
	return found, nil
}

// Lookup resolves a type name through the scope's catalog.
func (s *SearchScope) Lookup(name string) (*Type, error) {
	return s.catalog.Lookup(name)
}
