package wasip1

import (
	"context"
	"time"
)

// Clock ids per the Preview1 clockid enum.
const (
	clockRealtime  = 0
	clockMonotonic = 1
)

// Clock serves clock_time_get and clock_res_get. The monotonic clock is
// anchored at provider construction so readings start near zero; the
// wall clock never goes backwards within one invocation.
type Clock struct {
	anchor   time.Time
	lastWall int64
}

// NewClock creates the provider anchored at the current instant.
func NewClock() *Clock {
	return &Clock{anchor: time.Now()}
}

func (c *Clock) Name() string {
	return "clock"
}

func (c *Clock) Syscalls() []Syscall {
	return []Syscall{
		newSyscall("clock_time_get", c.timeGet),
		newSyscall("clock_res_get", c.resGet),
	}
}

// now returns the clock reading in nanoseconds, or false for an
// unsupported clock id.
func (c *Clock) now(id uint32) (int64, bool) {
	switch id {
	case clockRealtime:
		t := time.Now().UnixNano()
		if t < c.lastWall {
			t = c.lastWall
		}
		c.lastWall = t
		return t, true
	case clockMonotonic:
		return int64(time.Since(c.anchor)), true
	}
	return 0, false
}

func (c *Clock) timeGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	id := uint32(stack[0])
	// stack[1] is the precision hint, ignored.
	resultPtr := uint32(stack[2])

	t, ok := c.now(id)
	if !ok {
		return EINVAL, nil
	}
	if err := mem.WriteUint64(resultPtr, uint64(t)); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}

func (c *Clock) resGet(ctx context.Context, mem Memory, stack []uint64) (Errno, error) {
	id := uint32(stack[0])
	resultPtr := uint32(stack[1])

	var res uint64
	switch id {
	case clockRealtime:
		res = 1000 // 1µs
	case clockMonotonic:
		res = 1
	default:
		return EINVAL, nil
	}
	if err := mem.WriteUint64(resultPtr, res); err != nil {
		return EFAULT, err
	}
	return ESUCCESS, nil
}
