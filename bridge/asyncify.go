package bridge

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/metascan/wasihost/errors"
)

// Asyncify drives the Binaryen asyncify protocol (wasm-opt --asyncify)
// over a module's exports.
//
// States: 0=Normal, 1=Unwinding (saving stack), 2=Rewinding (restoring
// stack).
//
// Memory layout at dataAddr:
//   - [0:4] stack pointer (grows upward from dataAddr+8)
//   - [4:8] stack end
//   - [8:stackSize] stack data
type Asyncify struct {
	exports struct {
		getState    api.Function
		startUnwind api.Function
		stopUnwind  api.Function
		startRewind api.Function
		stopRewind  api.Function
	}
	memory    api.Memory
	dataAddr  uint32
	stackSize uint32
}

const (
	asyncifyDataAddr  uint32 = 16
	asyncifyStackSize uint32 = 4096
)

// DetectAsyncify returns an Asyncify bound to mod's instrumentation
// exports, or nil when the module was not built with asyncify. The
// stack region is initialized in the module's linear memory.
func DetectAsyncify(mod api.Module) (*Asyncify, error) {
	if mod.ExportedFunction("asyncify_get_state") == nil {
		return nil, nil
	}

	a := &Asyncify{
		dataAddr:  asyncifyDataAddr,
		stackSize: asyncifyStackSize,
	}
	a.memory = mod.Memory()
	if a.memory == nil {
		return nil, errors.Instantiation("asyncify module exports no memory", nil)
	}
	a.exports.getState = mod.ExportedFunction("asyncify_get_state")
	a.exports.startUnwind = mod.ExportedFunction("asyncify_start_unwind")
	a.exports.stopUnwind = mod.ExportedFunction("asyncify_stop_unwind")
	a.exports.startRewind = mod.ExportedFunction("asyncify_start_rewind")
	a.exports.stopRewind = mod.ExportedFunction("asyncify_stop_rewind")
	for name, fn := range map[string]api.Function{
		"asyncify_start_unwind": a.exports.startUnwind,
		"asyncify_stop_unwind":  a.exports.stopUnwind,
		"asyncify_start_rewind": a.exports.startRewind,
		"asyncify_stop_rewind":  a.exports.stopRewind,
	} {
		if fn == nil {
			return nil, errors.Instantiation("module missing "+name+" export", nil)
		}
	}

	if err := a.ResetStack(); err != nil {
		return nil, err
	}
	return a, nil
}

// ResetStack rewrites the stack pointer pair. Call before each fresh
// start invocation.
func (a *Asyncify) ResetStack() error {
	stackPtr := a.dataAddr + 8
	stackEnd := stackPtr + a.stackSize
	if !a.memory.WriteUint32Le(a.dataAddr, stackPtr) {
		return errors.Instantiation("write asyncify stack pointer", nil)
	}
	if !a.memory.WriteUint32Le(a.dataAddr+4, stackEnd) {
		return errors.Instantiation("write asyncify stack end", nil)
	}
	return nil
}

func (a *Asyncify) StartUnwind(ctx context.Context) error {
	if _, err := a.exports.startUnwind.Call(ctx, uint64(a.dataAddr)); err != nil {
		return errors.Internal(errors.PhaseRun, "asyncify_start_unwind", err)
	}
	return nil
}

func (a *Asyncify) StopUnwind(ctx context.Context) error {
	if _, err := a.exports.stopUnwind.Call(ctx); err != nil {
		return errors.Internal(errors.PhaseRun, "asyncify_stop_unwind", err)
	}
	return nil
}

func (a *Asyncify) StartRewind(ctx context.Context) error {
	if _, err := a.exports.startRewind.Call(ctx, uint64(a.dataAddr)); err != nil {
		return errors.Internal(errors.PhaseRun, "asyncify_start_rewind", err)
	}
	return nil
}

func (a *Asyncify) StopRewind(ctx context.Context) error {
	if _, err := a.exports.stopRewind.Call(ctx); err != nil {
		return errors.Internal(errors.PhaseRun, "asyncify_stop_rewind", err)
	}
	return nil
}
