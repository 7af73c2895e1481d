package wasip1

import "context"

// Args serves the argument-vector pair of syscalls. The guest asks for
// sizes first, allocates, then asks for the data; both calls see the
// same snapshot taken at construction.
type Args struct {
	argv []string
}

// NewArgs creates the provider. argv[0] is the program name by
// convention; an empty vector is valid.
func NewArgs(argv []string) *Args {
	snap := make([]string, len(argv))
	copy(snap, argv)
	return &Args{argv: snap}
}

func (a *Args) Name() string {
	return "args"
}

func (a *Args) Syscalls() []Syscall {
	return []Syscall{
		newSyscall("args_sizes_get", a.sizesGet),
		newSyscall("args_get", a.get),
	}
}

func (a *Args) sizesGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	argcPtr := uint32(stack[0])
	bufSizePtr := uint32(stack[1])

	var bufSize uint32
	for _, arg := range a.argv {
		bufSize += uint32(len(arg)) + 1
	}
	if err := mem.WriteUint32(argcPtr, uint32(len(a.argv))); err != nil {
		return EFAULT, err
	}
	if err := mem.WriteUint32(bufSizePtr, bufSize); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (a *Args) get(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	argvPtr := uint32(stack[0])
	bufPtr := uint32(stack[1])

	for i, arg := range a.argv {
		if err := mem.WriteUint32(argvPtr+uint32(i)*4, bufPtr); err != nil {
			return EFAULT, err
		}
		if err := mem.Write(bufPtr, append([]byte(arg), 0)); err != nil {
			return EFAULT, err
		}
		bufPtr += uint32(len(arg)) + 1
	}
	return ESUCCESS, nil
}
