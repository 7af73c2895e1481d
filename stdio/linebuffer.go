package stdio

import (
	"strings"
)

// Sink receives one flushed line, without its terminator. multiline is
// true when the chunk that completed the line carried more than one
// terminator itself, so the consumer can tell batched output from
// line-at-a-time output.
type Sink func(line string, multiline bool)

// LineBuffer accumulates raw chunks written to a standard stream and
// flushes completed lines to a sink as they form. A chunk without a
// terminator is retained as the pending partial line; a chunk with
// terminators flushes each completed line immediately and retains the
// trailing fragment. One instance serves one stream for one invocation.
type LineBuffer struct {
	sink    Sink
	partial strings.Builder
}

// NewLineBuffer creates a line buffer flushing to sink. A nil sink
// discards output.
func NewLineBuffer(sink Sink) *LineBuffer {
	if sink == nil {
		sink = func(string, bool) {}
	}
	return &LineBuffer{sink: sink}
}

// Write accepts a raw chunk of stream bytes.
func (b *LineBuffer) Write(chunk []byte) {
	b.WriteString(Decode(chunk))
}

// WriteString accepts a raw chunk of already-decoded text.
func (b *LineBuffer) WriteString(chunk string) {
	if chunk == "" {
		return
	}

	multiline := strings.Count(chunk, "\n") > 1

	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			b.partial.WriteString(chunk)
			return
		}

		line := chunk[:i]
		if b.partial.Len() > 0 {
			line = b.partial.String() + line
			b.partial.Reset()
		}
		b.sink(line, multiline)
		chunk = chunk[i+1:]
	}
}

// Flush emits any retained partial line. Called once when the module
// terminates; a buffer with no pending text flushes nothing.
func (b *LineBuffer) Flush() {
	if b.partial.Len() == 0 {
		return
	}
	b.sink(b.partial.String(), false)
	b.partial.Reset()
}

// Pending returns the retained partial line without flushing it.
func (b *LineBuffer) Pending() string {
	return b.partial.String()
}
