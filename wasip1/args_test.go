package wasip1

import (
	"bytes"
	"context"
	"testing"
)

func TestArgsTwoCallProtocol(t *testing.T) {
	p := NewArgs([]string{"prog", "/input.bin"})
	mem := newFakeMemory(256)
	ctx := context.Background()

	errno, err := p.sizesGet(ctx, mem, []uint64{0, 4})
	if err != nil || errno != ESUCCESS {
		t.Fatalf("args_sizes_get = %v, %v", errno, err)
	}
	if got := mem.uint32At(t, 0); got != 2 {
		t.Errorf("argc = %d, want 2", got)
	}
	// "prog\0" + "/input.bin\0"
	if got := mem.uint32At(t, 4); got != 16 {
		t.Errorf("argv_buf_size = %d, want 16", got)
	}

	errno, err = p.get(ctx, mem, []uint64{8, 32})
	if err != nil || errno != ESUCCESS {
		t.Fatalf("args_get = %v, %v", errno, err)
	}
	if got := mem.uint32At(t, 8); got != 32 {
		t.Errorf("argv[0] ptr = %d, want 32", got)
	}
	if got := mem.uint32At(t, 12); got != 37 {
		t.Errorf("argv[1] ptr = %d, want 37", got)
	}
	if got := mem.data[32:48]; !bytes.Equal(got, []byte("prog\x00/input.bin\x00")) {
		t.Errorf("argv buffer = %q", got)
	}
}

func TestArgsEmpty(t *testing.T) {
	p := NewArgs(nil)
	mem := newFakeMemory(16)

	errno, err := p.sizesGet(context.Background(), mem, []uint64{0, 4})
	if err != nil || errno != ESUCCESS {
		t.Fatalf("args_sizes_get = %v, %v", errno, err)
	}
	if got := mem.uint32At(t, 0); got != 0 {
		t.Errorf("argc = %d, want 0", got)
	}
	if got := mem.uint32At(t, 4); got != 0 {
		t.Errorf("argv_buf_size = %d, want 0", got)
	}
}

func TestArgsSnapshotIsolated(t *testing.T) {
	argv := []string{"prog"}
	p := NewArgs(argv)
	argv[0] = "mutated"

	mem := newFakeMemory(64)
	if errno, err := p.get(context.Background(), mem, []uint64{0, 8}); err != nil || errno != ESUCCESS {
		t.Fatalf("args_get = %v, %v", errno, err)
	}
	if got := mem.data[8:13]; !bytes.Equal(got, []byte("prog\x00")) {
		t.Errorf("argv buffer = %q, want prog", got)
	}
}

func TestArgsFaultOnBadPointer(t *testing.T) {
	p := NewArgs([]string{"prog"})
	mem := newFakeMemory(8)

	if _, err := p.sizesGet(context.Background(), mem, []uint64{1000, 0}); err == nil {
		t.Fatal("expected memory fault for out-of-range argc pointer")
	}
}
