package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in an invocation the error occurred
type Phase string

const (
	PhaseVFS     Phase = "vfs"     // virtual filesystem operations
	PhaseStdio   Phase = "stdio"   // standard-stream capture
	PhaseSyscall Phase = "syscall" // syscall dispatch
	PhaseCompile Phase = "compile" // module compilation
	PhaseRun     Phase = "run"     // module execution
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidPath        Kind = "invalid_path"
	KindNotFound           Kind = "not_found"
	KindIsADirectory       Kind = "is_a_directory"
	KindBadDescriptor      Kind = "bad_descriptor"
	KindMemoryFault        Kind = "memory_fault"
	KindUnsupportedSyscall Kind = "unsupported_syscall"
	KindInstantiation      Kind = "instantiation"
	KindInvalidInput       Kind = "invalid_input"
	KindInternal           Kind = "internal"
)

// Error is the structured error type used throughout the host
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error aborts the invocation instead of being
// translated to an errno for the guest. Fatal kinds mean the host and the
// module disagree on the ABI contract.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindMemoryFault, KindUnsupportedSyscall, KindInstantiation:
		return true
	}
	return false
}

// KindOf returns the Kind of err if it is a structured Error.
func KindOf(err error) (Kind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return "", false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidPath creates an invalid virtual path error
func InvalidPath(path, detail string) *Error {
	return &Error{
		Phase:  PhaseVFS,
		Kind:   KindInvalidPath,
		Path:   []string{path},
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// IsADirectory creates an error for file operations aimed at a directory
func IsADirectory(path string) *Error {
	return &Error{
		Phase:  PhaseVFS,
		Kind:   KindIsADirectory,
		Path:   []string{path},
		Detail: "target is a directory",
	}
}

// BadDescriptor creates an error for a closed or unknown file descriptor
func BadDescriptor(fd int32) *Error {
	return &Error{
		Phase:  PhaseVFS,
		Kind:   KindBadDescriptor,
		Detail: fmt.Sprintf("descriptor %d is not open", fd),
	}
}

// MemoryFault creates an error for guest memory access outside linear
// memory bounds
func MemoryFault(offset, length, size uint32) *Error {
	return &Error{
		Phase:  PhaseSyscall,
		Kind:   KindMemoryFault,
		Detail: fmt.Sprintf("access [%d,%d) outside linear memory of %d bytes", offset, uint64(offset)+uint64(length), size),
	}
}

// UnsupportedSyscall creates an error for a syscall no provider contributes
func UnsupportedSyscall(name string) *Error {
	return &Error{
		Phase:  PhaseSyscall,
		Kind:   KindUnsupportedSyscall,
		Detail: fmt.Sprintf("no provider registered for %q", name),
	}
}

// Instantiation creates a module compile/instantiate error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Internal creates an internal host error
func Internal(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
