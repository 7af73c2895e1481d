// Package wasip1 implements the WASI Preview1 syscall surface as a set
// of composable capability providers merged by a dispatcher.
//
// Each Provider contributes one or more syscall implementations; the
// host configuration supplies an ordered provider list and the
// Dispatcher merges their contributions into the import module
// "wasi_snapshot_preview1". When two providers contribute the same
// syscall name, the later-registered one wins; this mirrors the
// observed composition-order behavior and is covered by tests rather
// than left implicit.
//
// Every ABI name no provider contributes is bound to a stub that aborts
// the invocation with unsupported_syscall: a guest calling into a
// disabled capability class is an ABI disagreement, not a recoverable
// errno. Guest pointers are only dereferenced through the bounds-checked
// Memory view; out-of-range access aborts with memory_fault the same
// way.
package wasip1
