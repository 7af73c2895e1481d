package wasip1

import (
	"context"
	"testing"
)

// fakeUnwinder records protocol transitions in order.
type fakeUnwinder struct {
	calls []string
}

func (u *fakeUnwinder) StartUnwind(ctx context.Context) error {
	u.calls = append(u.calls, "start_unwind")
	return nil
}

func (u *fakeUnwinder) StopUnwind(ctx context.Context) error {
	u.calls = append(u.calls, "stop_unwind")
	return nil
}

func (u *fakeUnwinder) StartRewind(ctx context.Context) error {
	u.calls = append(u.calls, "start_rewind")
	return nil
}

func (u *fakeUnwinder) StopRewind(ctx context.Context) error {
	u.calls = append(u.calls, "stop_rewind")
	return nil
}

type opFunc func(ctx context.Context) (uint64, error)

func (f opFunc) Execute(ctx context.Context) (uint64, error) {
	return f(ctx)
}

func TestSessionSuspendSettleResume(t *testing.T) {
	s := NewSession()
	u := &fakeUnwinder{}
	s.Bind(u)
	ctx := context.Background()

	executed := false
	op := opFunc(func(ctx context.Context) (uint64, error) {
		executed = true
		return 42, nil
	})

	if err := s.Suspend(ctx, op); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if s.State() != StateUnwinding {
		t.Fatalf("state = %v, want unwinding", s.State())
	}
	if executed {
		t.Fatal("op executed before Settle")
	}

	if err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !executed {
		t.Fatal("op not executed by Settle")
	}
	if s.State() != StateRewinding {
		t.Fatalf("state = %v, want rewinding", s.State())
	}
	if !s.HasResult() {
		t.Fatal("no settled result after Settle")
	}

	v, err := s.Resume(ctx)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if v != 42 {
		t.Errorf("resumed value = %d, want 42", v)
	}
	if s.State() != StateNormal {
		t.Errorf("state = %v, want normal", s.State())
	}

	want := []string{"start_unwind", "stop_unwind", "start_rewind", "stop_rewind"}
	if len(u.calls) != len(want) {
		t.Fatalf("transitions = %v, want %v", u.calls, want)
	}
	for i := range want {
		if u.calls[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", u.calls, want)
		}
	}
}

func TestSessionSuspendWithoutUnwinder(t *testing.T) {
	s := NewSession()
	op := opFunc(func(ctx context.Context) (uint64, error) { return 0, nil })

	if err := s.Suspend(context.Background(), op); err == nil {
		t.Fatal("expected error suspending without an unwinder")
	}
}

func TestSessionDoubleSuspend(t *testing.T) {
	s := NewSession()
	s.Bind(&fakeUnwinder{})
	ctx := context.Background()
	op := opFunc(func(ctx context.Context) (uint64, error) { return 0, nil })

	if err := s.Suspend(ctx, op); err != nil {
		t.Fatalf("first Suspend: %v", err)
	}
	if err := s.Suspend(ctx, op); err == nil {
		t.Fatal("expected error on second outstanding suspension")
	}
}

func TestSessionSettleWithoutSuspension(t *testing.T) {
	s := NewSession()
	s.Bind(&fakeUnwinder{})

	if err := s.Settle(context.Background()); err == nil {
		t.Fatal("expected error settling with nothing pending")
	}
}

func TestSessionContextPlumbing(t *testing.T) {
	s := NewSession()
	ctx := WithSession(context.Background(), s)

	if got := SessionFromContext(ctx); got != s {
		t.Error("session lost through context")
	}
	if got := SessionFromContext(context.Background()); got != nil {
		t.Error("bare context should have no session")
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession()
	s.Bind(&fakeUnwinder{})
	ctx := context.Background()

	op := opFunc(func(ctx context.Context) (uint64, error) { return 1, nil })
	if err := s.Suspend(ctx, op); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if s.State() != StateNormal {
		t.Errorf("state after Reset = %v, want normal", s.State())
	}
	if s.HasResult() {
		t.Error("result survived Reset")
	}
}
