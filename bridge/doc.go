// Package bridge runs a compiled WASI command module against a syscall
// dispatcher, driving the Binaryen asyncify protocol so syscall
// handlers can suspend over host-side asynchronous work: the module's
// call stack is unwound, the pending operation executes, and the stack
// is rewound with the replayed syscall observing the settled result.
package bridge
