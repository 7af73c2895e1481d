package wasip1

import (
	"context"

	"github.com/metascan/wasihost/errors"
)

// State tracks where the invocation is in the suspend/resume protocol.
type State int32

const (
	StateNormal State = iota
	StateUnwinding
	StateRewinding
)

// PendingOp is the host-side asynchronous work a suspended syscall is
// waiting on. Execute runs once, between the unwind and the rewind, and
// its value becomes the syscall's result when the module replays.
type PendingOp interface {
	Execute(ctx context.Context) (uint64, error)
}

// Unwinder drives the module's stack unwind/rewind machinery. The
// bridge installs an implementation backed by the module's asyncify
// exports; without one, suspension is impossible and any attempt is
// host-fatal.
type Unwinder interface {
	StartUnwind(ctx context.Context) error
	StopUnwind(ctx context.Context) error
	StartRewind(ctx context.Context) error
	StopRewind(ctx context.Context) error
}

// Session owns the Pending Suspension slot for one start invocation.
// At most one suspension may be outstanding, since the module executes
// single-threaded.
type Session struct {
	unwinder  Unwinder
	pending   PendingOp
	result    uint64
	state     State
	hasResult bool
}

// NewSession creates a session with no unwinder bound.
func NewSession() *Session {
	return &Session{}
}

// Bind installs the stack unwind/rewind driver.
func (s *Session) Bind(u Unwinder) {
	s.unwinder = u
}

// State returns the current protocol state.
func (s *Session) State() State {
	return s.state
}

// Suspend records op as the pending suspension and starts unwinding the
// module's call stack. Called from inside a syscall handler; the
// handler must return immediately afterwards, its result is discarded.
func (s *Session) Suspend(ctx context.Context, op PendingOp) error {
	if s.unwinder == nil {
		return errors.Internal(errors.PhaseRun, "module is not instrumented for suspension", nil)
	}
	if s.pending != nil {
		return errors.Internal(errors.PhaseRun, "a suspension is already outstanding", nil)
	}
	if err := s.unwinder.StartUnwind(ctx); err != nil {
		return errors.Internal(errors.PhaseRun, "start unwind", err)
	}
	s.pending = op
	s.state = StateUnwinding
	return nil
}

// Settle finishes the unwind and executes the pending operation. Called
// by the bridge after the module's entry point returned mid-unwind. The
// result is held until the replay consumes it.
func (s *Session) Settle(ctx context.Context) error {
	if s.state != StateUnwinding || s.pending == nil {
		return errors.Internal(errors.PhaseRun, "no suspension to settle", nil)
	}
	if err := s.unwinder.StopUnwind(ctx); err != nil {
		return errors.Internal(errors.PhaseRun, "stop unwind", err)
	}

	op := s.pending
	s.pending = nil
	v, err := op.Execute(ctx)
	if err != nil {
		s.state = StateNormal
		return err
	}
	s.result = v
	s.hasResult = true

	if err := s.unwinder.StartRewind(ctx); err != nil {
		return errors.Internal(errors.PhaseRun, "start rewind", err)
	}
	s.state = StateRewinding
	return nil
}

// HasResult reports whether a settled suspension result is waiting for
// the replayed syscall.
func (s *Session) HasResult() bool {
	return s.hasResult
}

// Resume hands the settled result to the replayed syscall and stops the
// rewind, returning the module to normal execution.
func (s *Session) Resume(ctx context.Context) (uint64, error) {
	if s.state != StateRewinding || !s.hasResult {
		return 0, errors.Internal(errors.PhaseRun, "no settled suspension to resume", nil)
	}
	if err := s.unwinder.StopRewind(ctx); err != nil {
		return 0, errors.Internal(errors.PhaseRun, "stop rewind", err)
	}
	s.state = StateNormal
	s.hasResult = false
	return s.result, nil
}

// Reset clears all suspension state for a fresh start invocation.
func (s *Session) Reset() {
	s.pending = nil
	s.result = 0
	s.hasResult = false
	s.state = StateNormal
}

type ctxKeySession struct{}

// WithSession attaches the session to a context; the dispatcher does
// this for every syscall so handlers can suspend.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, s)
}

// SessionFromContext returns the session attached by the dispatcher, or
// nil outside a dispatch.
func SessionFromContext(ctx context.Context) *Session {
	if v := ctx.Value(ctxKeySession{}); v != nil {
		return v.(*Session)
	}
	return nil
}

// Suspend is the handler-facing entry point: it records op as the
// pending suspension for the dispatching session and begins the unwind.
func Suspend(ctx context.Context, op PendingOp) error {
	s := SessionFromContext(ctx)
	if s == nil {
		return errors.Internal(errors.PhaseRun, "no session in context", nil)
	}
	return s.Suspend(ctx, op)
}
