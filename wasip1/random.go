package wasip1

import (
	"context"
	"crypto/rand"
)

// Random serves random_get from the host's CSPRNG. It never blocks on
// an entropy pool; a read failure surfaces as EIO.
type Random struct{}

// NewRandom creates the provider.
func NewRandom() *Random {
	return &Random{}
}

func (r *Random) Name() string {
	return "random"
}

func (r *Random) Syscalls() []Syscall {
	return []Syscall{
		newSyscall("random_get", r.get),
	}
}

func (r *Random) get(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	bufPtr := uint32(stack[0])
	bufLen := uint32(stack[1])

	b := make([]byte, bufLen)
	if _, err := rand.Read(b); err != nil {
		return EIO, nil
	}
	if err := mem.Write(bufPtr, b); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}
