package wasip1

import (
	"context"

	"github.com/tetratelabs/wazero/sys"
)

// Exit serves proc_exit and proc_raise. Both terminate the instance by
// panicking with a sys.ExitError, which wazero converts into the call
// error the bridge reads the exit code from; neither returns control to
// the guest.
type Exit struct{}

// NewExit creates the provider.
func NewExit() *Exit {
	return &Exit{}
}

func (e *Exit) Name() string {
	return "exit"
}

func (e *Exit) Syscalls() []Syscall {
	return []Syscall{
		newSyscall("proc_exit", e.procExit),
		newSyscall("proc_raise", e.procRaise),
	}
}

func (e *Exit) procExit(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	panic(sys.NewExitError(uint32(stack[0])))
}

// procRaise maps a signal to the conventional 128+signo exit code.
func (e *Exit) procRaise(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	panic(sys.NewExitError(128 + uint32(stack[0])))
}
