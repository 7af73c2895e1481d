package wasip1

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"path"
	"strings"

	"github.com/metascan/wasihost/errors"
	"github.com/metascan/wasihost/vfs"
)

// FS binds the virtual filesystem and descriptor table to the Preview1
// file syscalls. Paths the guest passes are resolved against the
// directory descriptor they name, which in practice is the preopen of
// the root.
type FS struct {
	table *vfs.Table
}

// NewFS creates the provider over a descriptor table.
func NewFS(table *vfs.Table) *FS {
	return &FS{table: table}
}

func (p *FS) Name() string {
	return "fs"
}

func (p *FS) Syscalls() []Syscall {
	return []Syscall{
		newSyscall("fd_read", p.fdRead),
		newSyscall("fd_write", p.fdWrite),
		newSyscall("fd_seek", p.fdSeek),
		newSyscall("fd_tell", p.fdTell),
		newSyscall("fd_close", p.fdClose),
		newSyscall("fd_fdstat_get", p.fdFdstatGet),
		newSyscall("fd_filestat_get", p.fdFilestatGet),
		newSyscall("fd_prestat_get", p.fdPrestatGet),
		newSyscall("fd_prestat_dir_name", p.fdPrestatDirName),
		newSyscall("fd_readdir", p.fdReaddir),
		newSyscall("path_open", p.pathOpen),
		newSyscall("path_filestat_get", p.pathFilestatGet),
	}
}

// pathIno derives a stable inode number from a node path. The tree has
// no real inodes; guests only need distinct, stable values.
func pathIno(p string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(p))
	return h.Sum64()
}

// resolve joins a guest-supplied path onto the directory descriptor it
// is relative to. "." segments are dropped; ".." is rejected since the
// tree has no notion of traversal above a preopen.
func (p *FS) resolve(fd int32, raw string) (string, Errno) {
	node, _, err := p.table.Get(fd)
	if err != nil {
		return "", EBADF
	}
	if node == nil || !node.IsDir() {
		return "", ENOTDIR
	}

	base := node.Path()
	if strings.HasPrefix(raw, "/") {
		base = "/"
	}
	segs := make([]string, 0, 4)
	for _, s := range strings.Split(raw, "/") {
		switch s {
		case "", ".":
		case "..":
			return "", EINVAL
		default:
			segs = append(segs, s)
		}
	}
	return path.Join(append([]string{base}, segs...)...), ESUCCESS
}

func (p *FS) fdRead(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	iovs := uint32(stack[1])
	iovsLen := uint32(stack[2])
	nreadPtr := uint32(stack[3])

	var total uint32
	for i := uint32(0); i < iovsLen; i++ {
		ptr, err := mem.ReadUint32(iovs + i*8)
		if err != nil {
			return EFAULT, err
		}
		length, err := mem.ReadUint32(iovs + i*8 + 4)
		if err != nil {
			return EFAULT, err
		}

		b, rerr := p.table.Read(fd, length)
		if rerr != nil {
			return ErrnoFor(rerr), nil
		}
		if len(b) > 0 {
			if err := mem.Write(ptr, b); err != nil {
				return EFAULT, err
			}
		}
		total += uint32(len(b))
		if uint32(len(b)) < length {
			break
		}
	}
	if err := mem.WriteUint32(nreadPtr, total); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) fdWrite(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	iovs := uint32(stack[1])
	iovsLen := uint32(stack[2])
	nwrittenPtr := uint32(stack[3])

	var total uint32
	for i := uint32(0); i < iovsLen; i++ {
		ptr, err := mem.ReadUint32(iovs + i*8)
		if err != nil {
			return EFAULT, err
		}
		length, err := mem.ReadUint32(iovs + i*8 + 4)
		if err != nil {
			return EFAULT, err
		}

		b, err := mem.Read(ptr, length)
		if err != nil {
			return EFAULT, err
		}
		n, werr := p.table.Write(fd, b)
		if werr != nil {
			return ErrnoFor(werr), nil
		}
		total += n
	}
	if err := mem.WriteUint32(nwrittenPtr, total); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) fdSeek(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	offset := int64(stack[1])
	whence := uint32(stack[2])
	resultPtr := uint32(stack[3])

	if fd >= vfs.FdStdin && fd <= vfs.FdStderr {
		return ESPIPE, nil
	}
	if whence > vfs.SeekEnd {
		return EINVAL, nil
	}
	pos, err := p.table.Seek(fd, offset, int(whence))
	if err != nil {
		return ErrnoFor(err), nil
	}
	if err := mem.WriteUint64(resultPtr, uint64(pos)); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) fdTell(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	resultPtr := uint32(stack[1])

	if fd >= vfs.FdStdin && fd <= vfs.FdStderr {
		return ESPIPE, nil
	}
	pos, err := p.table.Tell(fd)
	if err != nil {
		return ErrnoFor(err), nil
	}
	if err := mem.WriteUint64(resultPtr, uint64(pos)); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) fdClose(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	if err := p.table.Close(int32(stack[0])); err != nil {
		return ErrnoFor(err), nil
	}
	return ESUCCESS, nil
}

func (p *FS) filetype(node *vfs.Node) uint8 {
	switch {
	case node == nil:
		return FiletypeCharDevice
	case node.IsDir():
		return FiletypeDirectory
	}
	return FiletypeRegularFile
}

// Rights mask reported back to the guest; the host enforces access
// through the descriptor table, not the rights system.
const rightsAll uint64 = (1 << 30) - 1

func (p *FS) fdFdstatGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	bufPtr := uint32(stack[1])

	node, flags, err := p.table.Get(fd)
	if err != nil {
		return ErrnoFor(err), nil
	}

	var fdflags uint16
	if flags&vfs.FlagAppend != 0 {
		fdflags |= fdflagAppend
	}

	var buf [24]byte
	buf[0] = p.filetype(node)
	binary.LittleEndian.PutUint16(buf[2:], fdflags)
	binary.LittleEndian.PutUint64(buf[8:], rightsAll)
	binary.LittleEndian.PutUint64(buf[16:], rightsAll)
	if err := mem.Write(bufPtr, buf[:]); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) writeFilestat(mem Memory, bufPtr uint32, node *vfs.Node) (Errno, error) {
	var buf [64]byte
	if node != nil {
		binary.LittleEndian.PutUint64(buf[8:], pathIno(node.Path()))
		binary.LittleEndian.PutUint64(buf[32:], uint64(node.Size()))
	}
	buf[16] = p.filetype(node)
	binary.LittleEndian.PutUint64(buf[24:], 1) // nlink
	if err := mem.Write(bufPtr, buf[:]); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) fdFilestatGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	bufPtr := uint32(stack[1])

	node, _, err := p.table.Get(fd)
	if err != nil {
		return ErrnoFor(err), nil
	}
	return p.writeFilestat(mem, bufPtr, node)
}

func (p *FS) fdPrestatGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	bufPtr := uint32(stack[1])

	if !p.table.IsPreopen(fd) {
		return EBADF, nil
	}
	node, _, err := p.table.Get(fd)
	if err != nil {
		return ErrnoFor(err), nil
	}

	// prestat: tag 0 (directory) then the name length.
	if err := mem.WriteByte(bufPtr, 0); err != nil {
		return EFAULT, err
	}
	if err := mem.WriteUint32(bufPtr+4, uint32(len(node.Path()))); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) fdPrestatDirName(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	pathPtr := uint32(stack[1])
	pathLen := uint32(stack[2])

	if !p.table.IsPreopen(fd) {
		return EBADF, nil
	}
	node, _, err := p.table.Get(fd)
	if err != nil {
		return ErrnoFor(err), nil
	}
	name := node.Path()
	if uint32(len(name)) > pathLen {
		return ENAMETOOLONG, nil
	}
	if err := mem.Write(pathPtr, []byte(name)); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) fdReaddir(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	fd := int32(stack[0])
	bufPtr := uint32(stack[1])
	bufLen := uint32(stack[2])
	cookie := stack[3]
	bufusedPtr := uint32(stack[4])

	node, _, err := p.table.Get(fd)
	if err != nil {
		return ErrnoFor(err), nil
	}
	if node == nil || !node.IsDir() {
		return ENOTDIR, nil
	}

	type dirent struct {
		name string
		ino  uint64
		typ  uint8
	}
	entries := []dirent{
		{name: ".", ino: pathIno(node.Path()), typ: FiletypeDirectory},
		{name: "..", ino: pathIno(path.Dir(node.Path())), typ: FiletypeDirectory},
	}
	for _, child := range p.table.FS().Children(node.Path()) {
		typ := FiletypeRegularFile
		if child.IsDir() {
			typ = FiletypeDirectory
		}
		entries = append(entries, dirent{name: path.Base(child.Path()), ino: pathIno(child.Path()), typ: typ})
	}

	// Serialize from the cookie position; a truncated final entry
	// signals the guest to come back with a bigger buffer.
	var out []byte
	for i := cookie; i < uint64(len(entries)); i++ {
		e := entries[i]
		var head [24]byte
		binary.LittleEndian.PutUint64(head[0:], i+1) // d_next
		binary.LittleEndian.PutUint64(head[8:], e.ino)
		binary.LittleEndian.PutUint32(head[16:], uint32(len(e.name)))
		head[20] = e.typ
		out = append(out, head[:]...)
		out = append(out, e.name...)
		if uint32(len(out)) >= bufLen {
			out = out[:bufLen]
			break
		}
	}

	if len(out) > 0 {
		if err := mem.Write(bufPtr, out); err != nil {
			return EFAULT, err
		}
	}
	if err := mem.WriteUint32(bufusedPtr, uint32(len(out))); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) pathOpen(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	dirfd := int32(stack[0])
	// stack[1] dirflags: symlink following, no symlinks exist here.
	pathPtr := uint32(stack[2])
	pathLen := uint32(stack[3])
	oflags := uint32(stack[4])
	rightsBase := stack[5]
	// stack[6] inheriting rights, ignored.
	fdflags := uint32(stack[7])
	openedPtr := uint32(stack[8])

	raw, err := readString(mem, pathPtr, pathLen)
	if err != nil {
		return EFAULT, err
	}
	full, errno := p.resolve(dirfd, raw)
	if errno != ESUCCESS {
		return errno, nil
	}

	var flags vfs.Flags
	if rightsBase&rightFdRead != 0 {
		flags |= vfs.FlagRead
	}
	if rightsBase&rightFdWrite != 0 {
		flags |= vfs.FlagWrite
	}
	if oflags&oflagCreat != 0 {
		flags |= vfs.FlagCreate
	}
	if oflags&oflagDirectory != 0 {
		flags |= vfs.FlagDirectory
	}
	if oflags&oflagExcl != 0 {
		flags |= vfs.FlagExcl
	}
	if oflags&oflagTrunc != 0 {
		flags |= vfs.FlagTrunc
	}
	if fdflags&fdflagAppend != 0 {
		flags |= vfs.FlagAppend
	}

	if flags&(vfs.FlagCreate|vfs.FlagExcl) == vfs.FlagCreate|vfs.FlagExcl {
		if _, exists := p.table.FS().Lookup(full); exists {
			return EEXIST, nil
		}
	}

	fd, oerr := p.table.Open(full, flags)
	if oerr != nil {
		return ErrnoFor(oerr), nil
	}
	if err := mem.WriteUint32(openedPtr, uint32(fd)); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (p *FS) pathFilestatGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	dirfd := int32(stack[0])
	// stack[1] lookup flags, ignored.
	pathPtr := uint32(stack[2])
	pathLen := uint32(stack[3])
	bufPtr := uint32(stack[4])

	raw, err := readString(mem, pathPtr, pathLen)
	if err != nil {
		return EFAULT, err
	}
	full, errno := p.resolve(dirfd, raw)
	if errno != ESUCCESS {
		return errno, nil
	}
	node, ok := p.table.FS().Lookup(full)
	if !ok {
		return ErrnoFor(errors.NotFound(errors.PhaseVFS, "path", full)), nil
	}
	return p.writeFilestat(mem, bufPtr, node)
}
