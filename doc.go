// Package wasihost runs WASI Preview1 command modules entirely
// in-process: syscalls are dispatched to Go providers, files live in an
// in-memory virtual filesystem, and the standard streams are captured
// as lines. No OS file descriptors are handed to the guest.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	wasihost/            Root package: Config, Feature, Result, Run
//	├── wasip1/          Syscall providers and the import-table dispatcher
//	├── vfs/             Virtual filesystem tree and descriptor table
//	├── stdio/           Standard-stream line buffering
//	├── bridge/          Compilation, instantiation, asyncify suspend/resume
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Run a module against an in-memory file:
//
//	result, err := wasihost.Run(ctx, wasihost.NewConfig(fetchModule).
//	    WithArgs("prog", "/input.bin").
//	    WithFile("/input.bin", data).
//	    WithStdout(func(line string, multiline bool) {
//	        fmt.Println(line)
//	    }))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.ExitCode)
//
// Output files are read back from result.FS after the module exits.
//
// # Capability Model
//
// Each capability class the guest may use is a Feature: omit a feature
// from the configuration and every syscall it would provide becomes a
// loud host-fatal abort rather than a silent stub. DefaultFeatures
// enables all of them.
//
// # Thread Safety
//
// Every Run builds a fresh filesystem, descriptor table, and module
// instance; nothing is shared between concurrent invocations. A single
// invocation executes on one logical thread.
package wasihost
