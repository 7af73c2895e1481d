package vfs

import (
	"github.com/metascan/wasihost/errors"
	"github.com/metascan/wasihost/stdio"
)

// Flags controls how a descriptor accesses its node.
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagAppend
	FlagCreate
	FlagTrunc
	FlagExcl
	FlagDirectory
)

// Well-known descriptors, pre-bound at table construction.
const (
	FdStdin   int32 = 0
	FdStdout  int32 = 1
	FdStderr  int32 = 2
	FdPreopen int32 = 3
)

type entryKind uint8

const (
	entryFree entryKind = iota
	entryStdin
	entryStream
	entryFile
	entryDir
)

type entry struct {
	node    *Node
	stream  *stdio.LineBuffer
	cursor  int64
	flags   Flags
	kind    entryKind
	preopen bool
}

// Table is the descriptor table for one invocation: an arena of slots
// keyed by small integers with explicit allocate and free, so a
// descriptor number reused after close never aliases the old entry.
type Table struct {
	fs    *FS
	slots []entry
	free  []int32
}

// NewTable creates a table over fs with the standard streams bound to
// the given line buffers and the root directory preopened at fd 3.
func NewTable(fs *FS, stdout, stderr *stdio.LineBuffer) *Table {
	root, _ := fs.Lookup("/")
	return &Table{
		fs: fs,
		slots: []entry{
			{kind: entryStdin},
			{kind: entryStream, stream: stdout},
			{kind: entryStream, stream: stderr},
			{kind: entryDir, node: root, preopen: true},
		},
	}
}

// FS returns the backing filesystem tree.
func (t *Table) FS() *FS {
	return t.fs
}

func (t *Table) lookup(fd int32) (*entry, error) {
	if fd < 0 || int(fd) >= len(t.slots) || t.slots[fd].kind == entryFree {
		return nil, errors.BadDescriptor(fd)
	}
	return &t.slots[fd], nil
}

// Get returns the node a descriptor resolves to, nil for the standard
// streams.
func (t *Table) Get(fd int32) (*Node, Flags, error) {
	e, err := t.lookup(fd)
	if err != nil {
		return nil, 0, err
	}
	return e.node, e.flags, nil
}

// IsPreopen reports whether fd is a preopened directory.
func (t *Table) IsPreopen(fd int32) bool {
	e, err := t.lookup(fd)
	return err == nil && e.preopen
}

func (t *Table) alloc(e entry) int32 {
	if n := len(t.free); n > 0 {
		fd := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[fd] = e
		return fd
	}
	t.slots = append(t.slots, e)
	return int32(len(t.slots) - 1)
}

// Open resolves or, with FlagCreate, creates a file node and allocates
// a descriptor for it. Directories require FlagDirectory; opening one
// without it fails with is_a_directory.
func (t *Table) Open(path string, flags Flags) (int32, error) {
	node, ok := t.fs.Lookup(path)
	switch {
	case !ok && flags&FlagCreate != 0:
		if err := t.fs.AddFile(path, nil); err != nil {
			return -1, err
		}
		node, _ = t.fs.Lookup(path)
	case !ok:
		return -1, errors.NotFound(errors.PhaseVFS, "path", path)
	case ok && flags&FlagExcl != 0 && flags&FlagCreate != 0:
		return -1, errors.InvalidPath(path, "path already exists")
	}

	if node.IsDir() {
		if flags&FlagDirectory == 0 {
			return -1, errors.IsADirectory(path)
		}
		return t.alloc(entry{kind: entryDir, node: node, flags: flags}), nil
	}
	if flags&FlagDirectory != 0 {
		return -1, errors.InvalidPath(path, "not a directory")
	}

	if flags&FlagTrunc != 0 && flags&FlagWrite != 0 {
		node.content = nil
	}
	return t.alloc(entry{kind: entryFile, node: node, flags: flags}), nil
}

// Read transfers up to n bytes from the descriptor's cursor, advancing
// it. Reads past end-of-file transfer zero bytes without error;
// descriptor 0 always reads end-of-file.
func (t *Table) Read(fd int32, n uint32) ([]byte, error) {
	e, err := t.lookup(fd)
	if err != nil {
		return nil, err
	}
	switch e.kind {
	case entryStdin:
		return nil, nil
	case entryStream:
		return nil, errors.BadDescriptor(fd)
	case entryDir:
		return nil, errors.IsADirectory(e.node.path)
	}
	if e.flags&FlagRead == 0 {
		return nil, errors.BadDescriptor(fd)
	}

	size := e.node.Size()
	if e.cursor >= size {
		return nil, nil
	}
	avail := size - e.cursor
	if int64(n) < avail {
		avail = int64(n)
	}
	out := e.node.content[e.cursor : e.cursor+avail]
	e.cursor += avail
	return out, nil
}

// Write transfers bytes at the descriptor's cursor, extending the file
// past its current end. Writes to descriptors 1 and 2 are routed
// through the standard-stream line buffers.
func (t *Table) Write(fd int32, b []byte) (uint32, error) {
	e, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	switch e.kind {
	case entryStdin:
		return 0, errors.BadDescriptor(fd)
	case entryStream:
		e.stream.Write(b)
		return uint32(len(b)), nil
	case entryDir:
		return 0, errors.IsADirectory(e.node.path)
	}
	if e.flags&FlagWrite == 0 {
		return 0, errors.BadDescriptor(fd)
	}

	if e.flags&FlagAppend != 0 {
		e.cursor = e.node.Size()
	}
	end := e.cursor + int64(len(b))
	if end > e.node.Size() {
		grown := make([]byte, end)
		copy(grown, e.node.content)
		e.node.content = grown
	}
	copy(e.node.content[e.cursor:], b)
	e.cursor = end
	return uint32(len(b)), nil
}

// Seek whence values, matching the ABI convention.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Seek repositions the descriptor's cursor and returns the new offset.
// The standard streams are not seekable.
func (t *Table) Seek(fd int32, offset int64, whence int) (int64, error) {
	e, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	if e.kind != entryFile {
		return 0, errors.InvalidInput(errors.PhaseVFS, "descriptor is not seekable")
	}

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = e.cursor
	case SeekEnd:
		base = e.node.Size()
	default:
		return 0, errors.InvalidInput(errors.PhaseVFS, "unknown whence")
	}
	pos := base + offset
	if pos < 0 {
		return 0, errors.InvalidInput(errors.PhaseVFS, "negative seek position")
	}
	e.cursor = pos
	return pos, nil
}

// Tell returns the descriptor's current cursor.
func (t *Table) Tell(fd int32) (int64, error) {
	e, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	if e.kind != entryFile {
		return 0, errors.InvalidInput(errors.PhaseVFS, "descriptor is not seekable")
	}
	return e.cursor, nil
}

// Close releases a descriptor and recycles its slot. The pre-bound
// descriptors (standard streams and preopens) are never closable by the
// guest.
func (t *Table) Close(fd int32) error {
	e, err := t.lookup(fd)
	if err != nil {
		return err
	}
	if e.kind == entryStdin || e.kind == entryStream || e.preopen {
		return errors.BadDescriptor(fd)
	}
	*e = entry{kind: entryFree}
	t.free = append(t.free, fd)
	return nil
}

// OpenCount returns the number of live descriptors, pre-bound slots
// included.
func (t *Table) OpenCount() int {
	n := 0
	for _, e := range t.slots {
		if e.kind != entryFree {
			n++
		}
	}
	return n
}
