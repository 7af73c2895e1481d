package wasip1

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/tetratelabs/wazero/sys"
)

func exitCodeOf(t *testing.T, fn func()) uint32 {
	t.Helper()
	var code uint32
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected exit panic")
			}
			err, ok := r.(error)
			if !ok {
				t.Fatalf("panic value %v is not an error", r)
			}
			var exitErr *sys.ExitError
			if !goerrors.As(err, &exitErr) {
				t.Fatalf("panic error %v is not an ExitError", err)
			}
			code = exitErr.ExitCode()
		}()
		fn()
	}()
	return code
}

func TestProcExitCarriesCode(t *testing.T) {
	p := NewExit()
	mem := newFakeMemory(8)

	code := exitCodeOf(t, func() {
		p.procExit(context.Background(), mem, []uint64{7})
	})
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
}

func TestProcRaiseMapsSignal(t *testing.T) {
	p := NewExit()
	mem := newFakeMemory(8)

	code := exitCodeOf(t, func() {
		p.procRaise(context.Background(), mem, []uint64{9})
	})
	if code != 137 {
		t.Errorf("exit code = %d, want 137", code)
	}
}
