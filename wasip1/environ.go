package wasip1

import (
	"context"
	"sort"
)

// Environ serves the environment pair of syscalls over a KEY=VALUE map.
// Entries are materialized in sorted key order so the guest sees a
// deterministic layout regardless of map iteration.
type Environ struct {
	entries []string
}

// NewEnviron creates the provider from an environment map.
func NewEnviron(env map[string]string) *Environ {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, k+"="+env[k])
	}
	return &Environ{entries: entries}
}

func (e *Environ) Name() string {
	return "environ"
}

func (e *Environ) Syscalls() []Syscall {
	return []Syscall{
		newSyscall("environ_sizes_get", e.sizesGet),
		newSyscall("environ_get", e.get),
	}
}

func (e *Environ) sizesGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	countPtr := uint32(stack[0])
	bufSizePtr := uint32(stack[1])

	var bufSize uint32
	for _, entry := range e.entries {
		bufSize += uint32(len(entry)) + 1
	}
	if err := mem.WriteUint32(countPtr, uint32(len(e.entries))); err != nil {
		return EFAULT, err
	}
	if err := mem.WriteUint32(bufSizePtr, bufSize); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (e *Environ) get(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	environPtr := uint32(stack[0])
	bufPtr := uint32(stack[1])

	for i, entry := range e.entries {
		if err := mem.WriteUint32(environPtr+uint32(i)*4, bufPtr); err != nil {
			return EFAULT, err
		}
		if err := mem.Write(bufPtr, append([]byte(entry), 0)); err != nil {
			return EFAULT, err
		}
		bufPtr += uint32(len(entry)) + 1
	}
	return ESUCCESS, nil
}
