package wasip1

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/metascan/wasihost/errors"
)

// memoEntry is one completed syscall result, keyed by issuance index so
// a replay pass can be checked call for call.
type memoEntry struct {
	name  string
	value uint64
}

// Dispatcher merges the configured providers into the single import
// table the guest links against, and owns the per-invocation syscall
// bookkeeping: the issuance counter, the result memo served during
// asyncify rewind, and the fault slot for host-fatal aborts.
type Dispatcher struct {
	providers []Provider
	merged    map[string]Syscall
	session   *Session
	memo      map[uint64]memoEntry
	fault     error
	seq       uint64
	suspended uint64
	suspName  string
	replay    uint64
	rewinding bool
}

// NewDispatcher merges providers in registration order. Duplicate
// syscall names resolve last-registered-wins.
func NewDispatcher(providers ...Provider) *Dispatcher {
	d := &Dispatcher{
		providers: providers,
		merged:    make(map[string]Syscall),
		session:   NewSession(),
		memo:      make(map[uint64]memoEntry),
	}
	for _, p := range providers {
		for _, sc := range p.Syscalls() {
			if prev, ok := d.merged[sc.Name]; ok {
				Logger().Debug("syscall overridden",
					zap.String("name", prev.Name),
					zap.String("provider", p.Name()))
			}
			d.merged[sc.Name] = sc
		}
	}
	return d
}

// Session returns the suspension session the bridge binds its unwinder
// to.
func (d *Dispatcher) Session() *Session {
	return d.session
}

// Fault returns the host-fatal error that aborted the invocation, if
// any. Once set, nothing the guest produced afterwards is valid.
func (d *Dispatcher) Fault() error {
	return d.fault
}

// Supports reports whether a provider contributes name.
func (d *Dispatcher) Supports(name string) bool {
	_, ok := d.merged[name]
	return ok
}

// Reset clears all per-invocation state for a fresh start.
func (d *Dispatcher) Reset() {
	d.seq = 0
	d.suspended = 0
	d.suspName = ""
	d.replay = 0
	d.rewinding = false
	d.fault = nil
	d.memo = make(map[uint64]memoEntry)
	d.session.Reset()
}

// abort records a host-fatal fault and unwinds the guest call via
// panic; wazero converts the panic into the call error the bridge
// observes.
func (d *Dispatcher) abort(err error) {
	if d.fault == nil {
		d.fault = err
	}
	Logger().Debug("syscall fault", zap.Error(err))
	panic(err)
}

// Call services one syscall invocation against mem. Names no provider
// contributes abort with unsupported_syscall; host-fatal handler errors
// abort likewise. During asyncify rewind the replayed call is served
// the settled suspension result, or its memoized result, without
// re-executing the handler.
func (d *Dispatcher) Call(ctx context.Context, name string, mem Memory, stack []uint64) {
	sc, ok := d.merged[name]
	if !ok {
		d.abort(errors.UnsupportedSyscall(name))
	}
	ctx = WithSession(ctx, d.session)

	if d.session.State() == StateRewinding {
		if !d.rewinding {
			d.rewinding = true
			d.replay = 0
		}
		// A replay pass re-issues calls in the original order. The
		// suspended call consumes the settled result; it re-enters
		// either first (Binaryen fast-forwards straight to it) or at
		// its original issuance position (a full re-issuing replay).
		// Calls before it are served from the memo at the replay
		// cursor. Anything else is a coherence violation.
		resumed := d.session.HasResult() && sc.Name == d.suspName &&
			(d.replay == 0 || d.replay == d.suspended)
		if !resumed {
			if e, ok := d.memo[d.replay]; ok && e.name == sc.Name {
				d.setResult(sc, stack, e.value)
				d.replay++
				return
			}
			d.abort(errors.Internal(errors.PhaseRun,
				"rewound syscall "+sc.Name+" does not match the pending suspension", nil))
		}
		v, err := d.session.Resume(ctx)
		if err != nil {
			d.abort(err)
		}
		d.memo[d.suspended] = memoEntry{name: sc.Name, value: v}
		d.seq = d.suspended + 1
		d.rewinding = false
		d.setResult(sc, stack, v)
		return
	}

	idx := d.seq
	d.seq++
	errno, err := sc.Func(ctx, mem, stack)
	if err != nil {
		d.abort(err)
	}
	if d.session.State() == StateUnwinding {
		// The guest is unwinding; this result is discarded and the
		// replay after the rewind observes the settled value instead.
		d.suspended = idx
		d.suspName = sc.Name
		d.setResult(sc, stack, uint64(ESUCCESS))
		return
	}
	d.memo[idx] = memoEntry{name: sc.Name, value: uint64(errno)}
	d.setResult(sc, stack, uint64(errno))
}

func (d *Dispatcher) setResult(sc Syscall, stack []uint64, v uint64) {
	if len(sc.Results) > 0 {
		stack[0] = v
	}
}

// InstantiateHost builds and instantiates the wasi_snapshot_preview1
// host module in r. Every ABI name is exported: provider-backed names
// dispatch through Call, the rest are aborting stubs, so guest imports
// always resolve and unsupported calls fail loudly at call time.
func (d *Dispatcher) InstantiateHost(ctx context.Context, r wazero.Runtime) (api.Closer, error) {
	b := r.NewHostModuleBuilder(ModuleName)
	for _, name := range abiNames() {
		s := abiSignatures[name]
		fn := d.hostFunc(name)
		b.NewFunctionBuilder().
			WithGoModuleFunction(fn, s.params, s.results).
			Export(name)
	}
	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, errors.Instantiation("instantiate host module", err)
	}
	Logger().Debug("host module instantiated",
		zap.String("module", ModuleName),
		zap.Int("provided", len(d.merged)))
	return mod, nil
}

func (d *Dispatcher) hostFunc(name string) api.GoModuleFunction {
	return api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		d.Call(ctx, name, BindMemory(mod.Memory()), stack)
	})
}
