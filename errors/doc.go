// Package errors provides structured error types for the WASI host.
//
// Every error carries a Phase (where in the invocation it occurred) and a
// Kind (what went wrong). Kinds split into two classes: recoverable kinds
// are translated into WASI errnos at the dispatcher boundary and returned
// to the guest, while fatal kinds (memory_fault, unsupported_syscall,
// instantiation) abort the invocation with a diagnostic, since they mean
// the guest and the host disagree on the ABI contract.
package errors
