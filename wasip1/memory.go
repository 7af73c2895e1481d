package wasip1

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/metascan/wasihost/errors"
)

// Memory is a bounds-checked view of the guest's linear memory. Every
// failed access yields a memory_fault error, which is host-fatal; guest
// pointers are never dereferenced unchecked.
type Memory interface {
	// Size returns the linear memory size in bytes.
	Size() uint32
	// Read returns the byte range [offset, offset+length). The slice
	// aliases guest memory and is only valid until the guest runs again.
	Read(offset, length uint32) ([]byte, error)
	// Write copies b into guest memory at offset.
	Write(offset uint32, b []byte) error
	ReadUint32(offset uint32) (uint32, error)
	WriteUint32(offset uint32, v uint32) error
	WriteUint64(offset uint32, v uint64) error
	WriteByte(offset uint32, v byte) error
}

// wazeroMemory adapts wazero's api.Memory, converting its boolean
// out-of-range reports into structured faults.
type wazeroMemory struct {
	m api.Memory
}

// BindMemory wraps a module's linear memory. A nil memory (a module
// that exports none) faults on every access.
func BindMemory(m api.Memory) Memory {
	if m == nil {
		return nilMemory{}
	}
	return &wazeroMemory{m: m}
}

func (w *wazeroMemory) Size() uint32 {
	return w.m.Size()
}

func (w *wazeroMemory) Read(offset, length uint32) ([]byte, error) {
	b, ok := w.m.Read(offset, length)
	if !ok {
		return nil, errors.MemoryFault(offset, length, w.m.Size())
	}
	return b, nil
}

func (w *wazeroMemory) Write(offset uint32, b []byte) error {
	if !w.m.Write(offset, b) {
		return errors.MemoryFault(offset, uint32(len(b)), w.m.Size())
	}
	return nil
}

func (w *wazeroMemory) ReadUint32(offset uint32) (uint32, error) {
	v, ok := w.m.ReadUint32Le(offset)
	if !ok {
		return 0, errors.MemoryFault(offset, 4, w.m.Size())
	}
	return v, nil
}

func (w *wazeroMemory) WriteUint32(offset uint32, v uint32) error {
	if !w.m.WriteUint32Le(offset, v) {
		return errors.MemoryFault(offset, 4, w.m.Size())
	}
	return nil
}

func (w *wazeroMemory) WriteUint64(offset uint32, v uint64) error {
	if !w.m.WriteUint64Le(offset, v) {
		return errors.MemoryFault(offset, 8, w.m.Size())
	}
	return nil
}

func (w *wazeroMemory) WriteByte(offset uint32, v byte) error {
	if !w.m.WriteByte(offset, v) {
		return errors.MemoryFault(offset, 1, w.m.Size())
	}
	return nil
}

type nilMemory struct{}

func (nilMemory) Size() uint32 { return 0 }

func (nilMemory) Read(offset, length uint32) ([]byte, error) {
	return nil, errors.MemoryFault(offset, length, 0)
}

func (nilMemory) Write(offset uint32, b []byte) error {
	return errors.MemoryFault(offset, uint32(len(b)), 0)
}

func (nilMemory) ReadUint32(offset uint32) (uint32, error) {
	return 0, errors.MemoryFault(offset, 4, 0)
}

func (nilMemory) WriteUint32(offset uint32, v uint32) error {
	return errors.MemoryFault(offset, 4, 0)
}

func (nilMemory) WriteUint64(offset uint32, v uint64) error {
	return errors.MemoryFault(offset, 8, 0)
}

func (nilMemory) WriteByte(offset uint32, v byte) error {
	return errors.MemoryFault(offset, 1, 0)
}

// readString reads a guest-supplied path or name as text.
func readString(mem Memory, ptr, length uint32) (string, error) {
	b, err := mem.Read(ptr, length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
