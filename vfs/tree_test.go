package vfs

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/metascan/wasihost/errors"
)

func TestAddFileLookupRoundTrip(t *testing.T) {
	tests := []struct {
		path    string
		content []byte
	}{
		{"/input.bin", []byte{0x01, 0x02, 0x03}},
		{"/a/b/c.txt", []byte("nested")},
		{"/empty", nil},
		{"/with space/file", []byte("ok")},
	}

	fs := NewFS()
	for _, tt := range tests {
		if err := fs.AddFile(tt.path, tt.content); err != nil {
			t.Fatalf("AddFile(%q): %v", tt.path, err)
		}
	}
	for _, tt := range tests {
		n, ok := fs.Lookup(tt.path)
		if !ok {
			t.Fatalf("Lookup(%q): not found", tt.path)
		}
		if !bytes.Equal(n.Content(), tt.content) {
			t.Errorf("Lookup(%q) content = %v, want %v", tt.path, n.Content(), tt.content)
		}
		if n.Size() != int64(len(tt.content)) {
			t.Errorf("Size(%q) = %d, want %d", tt.path, n.Size(), len(tt.content))
		}
	}
}

func TestAddFileCreatesIntermediateDirs(t *testing.T) {
	fs := NewFS()
	if err := fs.AddFile("/deep/er/file", []byte("x")); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/deep", "/deep/er"} {
		n, ok := fs.Lookup(p)
		if !ok || !n.IsDir() {
			t.Errorf("expected implicit directory at %q", p)
		}
	}
}

func TestAddFileReplaces(t *testing.T) {
	fs := NewFS()
	if err := fs.AddFile("/f", []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := fs.AddFile("/f", []byte("new")); err != nil {
		t.Fatal(err)
	}
	n, _ := fs.Lookup("/f")
	if string(n.Content()) != "new" {
		t.Errorf("content = %q, want %q", n.Content(), "new")
	}
}

func TestAddFileInvalidPaths(t *testing.T) {
	fs := NewFS()
	if err := fs.AddDir("/dir"); err != nil {
		t.Fatal(err)
	}
	if err := fs.AddFile("/dir/inner", []byte("x")); err != nil {
		t.Fatal(err)
	}

	invalid := []string{
		"relative",
		"",
		"/a//b",
		"/a/./b",
		"/a/../b",
		"/",
		"/dir",       // collides with a directory
		"/dir/inner/below", // ancestor is a file
	}
	for _, p := range invalid {
		err := fs.AddFile(p, []byte("x"))
		if err == nil {
			t.Errorf("AddFile(%q): expected error", p)
			continue
		}
		if k, _ := errors.KindOf(err); k != errors.KindInvalidPath {
			t.Errorf("AddFile(%q): kind = %v, want invalid_path", p, k)
		}
	}
}

func TestLookupMissingNeverErrors(t *testing.T) {
	fs := NewFS()
	if _, ok := fs.Lookup("/nope"); ok {
		t.Error("missing path should report not found")
	}
	root, ok := fs.Lookup("/")
	if !ok || !root.IsDir() {
		t.Error("root must always exist and be a directory")
	}
}

func TestChildrenSorted(t *testing.T) {
	fs := NewFS()
	for _, p := range []string{"/d/z", "/d/a", "/d/m"} {
		if err := fs.AddFile(p, nil); err != nil {
			t.Fatal(err)
		}
	}
	kids := fs.Children("/d")
	if len(kids) != 3 {
		t.Fatalf("expected 3 children, got %d", len(kids))
	}
	want := []string{"/d/a", "/d/m", "/d/z"}
	for i, n := range kids {
		if n.Path() != want[i] {
			t.Errorf("child %d = %q, want %q", i, n.Path(), want[i])
		}
	}
}

func TestWalkDeterministic(t *testing.T) {
	fs := NewFS()
	for _, p := range []string{"/b", "/a", "/c/d"} {
		if err := fs.AddFile(p, nil); err != nil {
			t.Fatal(err)
		}
	}
	var first []string
	fs.Walk(func(n *Node) bool {
		first = append(first, n.Path())
		return true
	})
	var second []string
	fs.Walk(func(n *Node) bool {
		second = append(second, n.Path())
		return true
	})
	if len(first) != fs.Len() {
		t.Errorf("walk visited %d nodes, tree has %d", len(first), fs.Len())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("walk order not deterministic: %v vs %v", first, second)
		}
	}
}

func TestAddDirCollision(t *testing.T) {
	fs := NewFS()
	if err := fs.AddFile("/f", nil); err != nil {
		t.Fatal(err)
	}
	err := fs.AddDir("/f")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseVFS, Kind: errors.KindInvalidPath}) {
		t.Errorf("expected invalid_path, got %v", err)
	}
	if err := fs.AddDir("/d"); err != nil {
		t.Fatal(err)
	}
	if err := fs.AddDir("/d"); err != nil {
		t.Errorf("re-adding a directory should be a no-op, got %v", err)
	}
}
