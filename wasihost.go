package wasihost

import (
	"context"
	"io"
	"sort"

	"github.com/metascan/wasihost/bridge"
	"github.com/metascan/wasihost/errors"
	"github.com/metascan/wasihost/stdio"
	"github.com/metascan/wasihost/vfs"
	"github.com/metascan/wasihost/wasip1"
)

// Feature names one capability class exposed to the guest. The
// configured feature list is ordered; later features win syscall name
// collisions.
type Feature string

const (
	FeatureArgs    Feature = "args"
	FeatureEnviron Feature = "environ"
	FeatureClock   Feature = "clock"
	FeatureRandom  Feature = "random"
	FeatureExit    Feature = "exit"
	FeatureFS      Feature = "fs"
)

// DefaultFeatures enables every capability class.
var DefaultFeatures = []Feature{
	FeatureArgs,
	FeatureEnviron,
	FeatureClock,
	FeatureRandom,
	FeatureExit,
	FeatureFS,
}

// Fetcher returns the module binary stream. It is the only hook through
// which the binary reaches the host; retrieval itself is the caller's
// concern.
type Fetcher func(ctx context.Context) (io.Reader, error)

// Config describes one invocation.
type Config struct {
	// Args is the argument vector; element 0 is the program name.
	Args []string
	// Env is the environment, presented to the guest in sorted key order.
	Env map[string]string
	// Features is the ordered capability list. Nil means DefaultFeatures;
	// an empty non-nil slice disables everything.
	Features []Feature
	// Files seeds the virtual filesystem before the module starts.
	Files map[string][]byte
	// Stdout and Stderr receive the guest's captured stream lines.
	Stdout stdio.Sink
	Stderr stdio.Sink
	// Fetch supplies the module binary.
	Fetch Fetcher
}

// NewConfig creates a configuration with default features and no
// arguments beyond the conventional program name.
func NewConfig(fetch Fetcher) *Config {
	return &Config{
		Args:  []string{"module"},
		Fetch: fetch,
	}
}

// WithArgs sets the argument vector.
func (c *Config) WithArgs(args ...string) *Config {
	c.Args = args
	return c
}

// WithEnv sets one environment variable.
func (c *Config) WithEnv(key, value string) *Config {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	c.Env[key] = value
	return c
}

// WithFeatures replaces the capability list.
func (c *Config) WithFeatures(features ...Feature) *Config {
	c.Features = features
	return c
}

// WithFile seeds one file into the virtual filesystem.
func (c *Config) WithFile(path string, content []byte) *Config {
	if c.Files == nil {
		c.Files = make(map[string][]byte)
	}
	c.Files[path] = content
	return c
}

// WithStdout sets the stdout line sink.
func (c *Config) WithStdout(sink stdio.Sink) *Config {
	c.Stdout = sink
	return c
}

// WithStderr sets the stderr line sink.
func (c *Config) WithStderr(sink stdio.Sink) *Config {
	c.Stderr = sink
	return c
}

// Result is what an invocation leaves behind.
type Result struct {
	// FS is the virtual filesystem after the module exited; output
	// files are read back from it.
	FS *vfs.FS
	// ExitCode is the guest's exit code: proc_exit's argument, 0 for a
	// clean return, or 255 after a trap or host-fatal fault.
	ExitCode uint32
}

// providers materializes the feature list over the invocation's table.
func providers(cfg *Config, table *vfs.Table) ([]wasip1.Provider, error) {
	features := cfg.Features
	if features == nil {
		features = DefaultFeatures
	}
	ps := make([]wasip1.Provider, 0, len(features))
	for _, f := range features {
		switch f {
		case FeatureArgs:
			ps = append(ps, wasip1.NewArgs(cfg.Args))
		case FeatureEnviron:
			ps = append(ps, wasip1.NewEnviron(cfg.Env))
		case FeatureClock:
			ps = append(ps, wasip1.NewClock())
		case FeatureRandom:
			ps = append(ps, wasip1.NewRandom())
		case FeatureExit:
			ps = append(ps, wasip1.NewExit())
		case FeatureFS:
			ps = append(ps, wasip1.NewFS(table))
		default:
			return nil, errors.InvalidInput(errors.PhaseRun, "unknown feature "+string(f))
		}
	}
	return ps, nil
}

// Run executes one module invocation: fetch, compile, instantiate,
// start, harvest. Everything the invocation touches is built fresh and
// torn down before Run returns; only the Result survives.
//
// Setup failures (bad configuration, fetch, compile, instantiation)
// return an error. Failures during guest execution do not: they end
// the invocation with exit code 255 and a diagnostic on the stderr
// sink.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	if cfg == nil || cfg.Fetch == nil {
		return nil, errors.InvalidInput(errors.PhaseRun, "no module fetcher configured")
	}

	stdout := stdio.NewLineBuffer(cfg.Stdout)
	stderr := stdio.NewLineBuffer(cfg.Stderr)

	fs := vfs.NewFS()
	seeds := make([]string, 0, len(cfg.Files))
	for path := range cfg.Files {
		seeds = append(seeds, path)
	}
	sort.Strings(seeds)
	for _, path := range seeds {
		if err := fs.AddFile(path, cfg.Files[path]); err != nil {
			return nil, err
		}
	}
	table := vfs.NewTable(fs, stdout, stderr)

	ps, err := providers(cfg, table)
	if err != nil {
		return nil, err
	}
	dispatcher := wasip1.NewDispatcher(ps...)

	b := bridge.New(stderr)
	defer b.Close(ctx)

	source, err := cfg.Fetch(ctx)
	if err != nil {
		return nil, errors.Instantiation("fetch module", err)
	}
	if err := b.Compile(ctx, source); err != nil {
		return nil, err
	}
	if err := b.Instantiate(ctx, dispatcher); err != nil {
		return nil, err
	}

	code, err := b.Start(ctx)
	if err != nil {
		return nil, err
	}
	stdout.Flush()
	stderr.Flush()

	return &Result{FS: fs, ExitCode: code}, nil
}
