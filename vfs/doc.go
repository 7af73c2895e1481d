// Package vfs implements the in-memory virtual filesystem backing one
// module invocation.
//
// The tree holds file and directory nodes keyed by absolute
// slash-separated paths; the root directory always exists. A Table maps
// small integer descriptors onto nodes with per-descriptor cursors, in
// the arena-with-free-list style, so reused descriptors never alias
// stale state. Descriptors 0, 1 and 2 are pre-bound to the standard
// streams and descriptor 3 to the preopened root; the guest cannot
// close any of them.
//
// Nothing here persists across invocations and no instance is ever
// shared between concurrent invocations, so the package is free of
// locking.
package vfs
