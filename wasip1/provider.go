package wasip1

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// Func services one syscall invocation. stack carries the raw ABI
// parameters in order. The returned Errno goes back to the guest; a
// non-nil error is host-fatal and aborts the invocation instead.
type Func func(ctx context.Context, mem Memory, stack []uint64) (Errno, error)

// Syscall is one contributed entry of the import table.
type Syscall struct {
	Func    Func
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Provider is a named contributor of syscall implementations. Providers
// are independent of each other; the dispatcher owns the merged table.
type Provider interface {
	Name() string
	Syscalls() []Syscall
}
