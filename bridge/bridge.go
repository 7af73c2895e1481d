package bridge

import (
	"context"
	goerrors "errors"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/metascan/wasihost/errors"
	"github.com/metascan/wasihost/stdio"
	"github.com/metascan/wasihost/wasip1"
)

// FaultExitCode is reported when the invocation ends on a guest trap or
// a host-fatal fault rather than a clean exit. Nothing the guest
// produced after the fault is valid.
const FaultExitCode uint32 = 255

// Bridge owns one module invocation end to end: compilation,
// instantiation with the dispatcher's host module, and the start loop
// that services asyncify suspensions.
type Bridge struct {
	runtime    wazero.Runtime
	compiled   wazero.CompiledModule
	mod        api.Module
	dispatcher *wasip1.Dispatcher
	asyncify   *Asyncify
	stderr     *stdio.LineBuffer
}

// New creates a bridge. Fault diagnostics are written to stderr as
// single lines.
func New(stderr *stdio.LineBuffer) *Bridge {
	if stderr == nil {
		stderr = stdio.NewLineBuffer(nil)
	}
	return &Bridge{stderr: stderr}
}

// Compile reads the module binary from source and compiles it.
func (b *Bridge) Compile(ctx context.Context, source io.Reader) error {
	if source == nil {
		return errors.Instantiation("no module source", nil)
	}
	bin, err := io.ReadAll(source)
	if err != nil {
		return errors.Instantiation("read module source", err)
	}
	if b.runtime == nil {
		// A looping or hostile guest must stop when the caller's
		// context does; without this the engine never checks ctx.Done
		// inside guest code.
		b.runtime = wazero.NewRuntimeWithConfig(ctx,
			wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	}
	compiled, err := b.runtime.CompileModule(ctx, bin)
	if err != nil {
		return errors.Instantiation("compile module", err)
	}
	b.compiled = compiled
	Logger().Debug("module compiled", zap.Int("bytes", len(bin)))
	return nil
}

// Instantiate installs d's host module and instantiates the compiled
// module without invoking its start function. Asyncify instrumentation
// is detected here; when present the dispatcher's session is bound to
// it so providers can suspend.
func (b *Bridge) Instantiate(ctx context.Context, d *wasip1.Dispatcher) error {
	if b.compiled == nil {
		return errors.Instantiation("no compiled module", nil)
	}
	if _, err := d.InstantiateHost(ctx, b.runtime); err != nil {
		return err
	}

	mod, err := b.runtime.InstantiateModule(ctx, b.compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return errors.Instantiation("instantiate module", err)
	}
	b.mod = mod
	b.dispatcher = d

	asyncify, err := DetectAsyncify(mod)
	if err != nil {
		return err
	}
	b.asyncify = asyncify
	if asyncify != nil {
		d.Session().Bind(asyncify)
		Logger().Debug("asyncify instrumentation detected")
	}
	return nil
}

// Start invokes the module's entry point and services suspensions until
// the invocation completes. A clean return is exit code 0, proc_exit(n)
// is n, and a trap or host-fatal fault is FaultExitCode with a
// diagnostic line on stderr. Cancellation of ctx abandons the
// invocation and is returned as an error.
func (b *Bridge) Start(ctx context.Context) (uint32, error) {
	if b.mod == nil || b.dispatcher == nil {
		return FaultExitCode, errors.Instantiation("module not instantiated", nil)
	}
	start := b.mod.ExportedFunction(wasip1.FunctionStart)
	if start == nil {
		return FaultExitCode, errors.Instantiation("module exports no "+wasip1.FunctionStart, nil)
	}
	if b.asyncify != nil {
		if err := b.asyncify.ResetStack(); err != nil {
			return FaultExitCode, err
		}
	}

	session := b.dispatcher.Session()
	for {
		_, callErr := start.Call(ctx)

		// A suspension unwound the guest out of the entry point; settle
		// the pending operation and re-enter to rewind.
		if session.State() == wasip1.StateUnwinding {
			if err := session.Settle(ctx); err != nil {
				return b.fault(ctx, err), nil
			}
			Logger().Debug("suspension settled, rewinding")
			continue
		}

		if callErr != nil {
			var exitErr *sys.ExitError
			if goerrors.As(callErr, &exitErr) {
				switch exitErr.ExitCode() {
				case sys.ExitCodeContextCanceled, sys.ExitCodeDeadlineExceeded:
					// The caller abandoned the invocation; the engine
					// closed the module mid-flight. Nothing the guest
					// produced is valid.
					return FaultExitCode, errors.Wrap(errors.PhaseRun, errors.KindInternal,
						ctx.Err(), "invocation canceled")
				}
				return exitErr.ExitCode(), nil
			}
			if f := b.dispatcher.Fault(); f != nil {
				return b.fault(ctx, f), nil
			}
			return b.fault(ctx, errors.Internal(errors.PhaseRun, "module trapped", callErr)), nil
		}
		return 0, nil
	}
}

// fault reports a host-fatal end of the invocation: the diagnostic goes
// to the stderr sink and the sentinel exit code is returned.
func (b *Bridge) fault(ctx context.Context, err error) uint32 {
	Logger().Debug("invocation fault", zap.Error(err))
	b.stderr.WriteString("fatal: " + err.Error() + "\n")
	b.mod.CloseWithExitCode(ctx, FaultExitCode)
	return FaultExitCode
}

// Close releases the runtime and everything instantiated in it.
func (b *Bridge) Close(ctx context.Context) error {
	if b.runtime == nil {
		return nil
	}
	return b.runtime.Close(ctx)
}
