package vfs

import (
	"sort"
	"strings"

	"github.com/metascan/wasihost/errors"
)

// FS is the virtual filesystem tree for one invocation. The root
// directory "/" always exists.
type FS struct {
	nodes map[string]*Node
}

// NewFS creates an empty tree containing only the root directory.
func NewFS() *FS {
	root := &Node{
		path:     "/",
		kind:     KindDirectory,
		children: make(map[string]*Node),
	}
	return &FS{nodes: map[string]*Node{"/": root}}
}

// splitPath validates an absolute path and returns its segments.
func splitPath(path string) ([]string, error) {
	if path == "" || path[0] != '/' {
		return nil, errors.InvalidPath(path, "path must be absolute")
	}
	if path == "/" {
		return nil, nil
	}
	segs := strings.Split(strings.TrimSuffix(path[1:], "/"), "/")
	for _, s := range segs {
		switch s {
		case "":
			return nil, errors.InvalidPath(path, "empty path segment")
		case ".", "..":
			return nil, errors.InvalidPath(path, "relative path segment")
		}
	}
	return segs, nil
}

// ensureDirs walks the ancestor chain of segs, creating missing
// intermediate directories. Fails when an ancestor exists as a file.
func (f *FS) ensureDirs(path string, segs []string) (*Node, error) {
	dir := f.nodes["/"]
	for i := 0; i < len(segs)-1; i++ {
		p := "/" + strings.Join(segs[:i+1], "/")
		next, ok := f.nodes[p]
		if !ok {
			next = &Node{
				path:     p,
				kind:     KindDirectory,
				children: make(map[string]*Node),
			}
			f.nodes[p] = next
			dir.children[segs[i]] = next
		} else if !next.IsDir() {
			return nil, errors.InvalidPath(path, "ancestor "+p+" is a file")
		}
		dir = next
	}
	return dir, nil
}

// AddFile inserts or replaces a file node, creating intermediate
// directories implicitly.
func (f *FS) AddFile(path string, content []byte) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if segs == nil {
		return errors.InvalidPath(path, "root is a directory")
	}

	if existing, ok := f.nodes[path]; ok {
		if existing.IsDir() {
			return errors.InvalidPath(path, "collides with an existing directory")
		}
		existing.content = content
		return nil
	}

	dir, err := f.ensureDirs(path, segs)
	if err != nil {
		return err
	}

	node := &Node{path: path, kind: KindFile, content: content}
	f.nodes[path] = node
	dir.children[segs[len(segs)-1]] = node
	return nil
}

// AddDir inserts a directory node, creating intermediate directories
// implicitly. Adding an existing directory is a no-op.
func (f *FS) AddDir(path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if segs == nil {
		return nil
	}

	if existing, ok := f.nodes[path]; ok {
		if !existing.IsDir() {
			return errors.InvalidPath(path, "collides with an existing file")
		}
		return nil
	}

	dir, err := f.ensureDirs(path, segs)
	if err != nil {
		return err
	}

	node := &Node{
		path:     path,
		kind:     KindDirectory,
		children: make(map[string]*Node),
	}
	f.nodes[path] = node
	dir.children[segs[len(segs)-1]] = node
	return nil
}

// Lookup returns the node at path. Missing paths are reported through
// the boolean, never through an error.
func (f *FS) Lookup(path string) (*Node, bool) {
	n, ok := f.nodes[path]
	return n, ok
}

// Children returns the direct children of a directory sorted by name.
func (f *FS) Children(path string) []*Node {
	n, ok := f.nodes[path]
	if !ok || !n.IsDir() {
		return nil
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Node, len(names))
	for i, name := range names {
		out[i] = n.children[name]
	}
	return out
}

// Walk visits every node in path order. Returning false stops the walk.
func (f *FS) Walk(fn func(*Node) bool) {
	paths := make([]string, 0, len(f.nodes))
	for p := range f.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if !fn(f.nodes[p]) {
			return
		}
	}
}

// Len returns the number of nodes, root included.
func (f *FS) Len() int {
	return len(f.nodes)
}
