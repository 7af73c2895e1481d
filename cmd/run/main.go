package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/metascan/wasihost"
	"github.com/metascan/wasihost/bridge"
	"github.com/metascan/wasihost/wasip1"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to WASI Preview1 module")
		cliArgs     = flag.String("argv", "", "Guest arguments (comma-separated, argv[0] included)")
		envVars     = flag.String("env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
		files       = flag.String("file", "", "Seed files (/guest/path=hostfile,...)")
		readBack    = flag.String("read", "", "Guest paths to dump after exit (comma-separated)")
		features    = flag.String("features", "", "Capability list (args,environ,clock,random,exit,fs); empty = all")
		verbose     = flag.Bool("v", false, "Verbose host logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI inspector")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-argv prog,/in.bin] [-env K=V,...] [-file /in.bin=host.bin] [-read /out.bin]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			wasip1.SetLogger(logger)
			bridge.SetLogger(logger)
		}
	}

	cfg, err := buildConfig(*wasmFile, *cliArgs, *envVars, *files, *features)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := run(cfg, *readBack)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func buildConfig(wasmFile, argvStr, envStr, filesStr, featuresStr string) (*wasihost.Config, error) {
	cfg := wasihost.NewConfig(func(ctx context.Context) (io.Reader, error) {
		f, err := os.Open(wasmFile)
		if err != nil {
			return nil, err
		}
		return f, nil
	})

	if argvStr != "" {
		cfg.WithArgs(strings.Split(argvStr, ",")...)
	}

	if envStr != "" {
		for _, kv := range strings.Split(envStr, ",") {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				cfg.WithEnv(parts[0], parts[1])
			}
		}
	}

	if filesStr != "" {
		for _, mapping := range strings.Split(filesStr, ",") {
			parts := strings.SplitN(mapping, "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("bad -file mapping %q, want /guest/path=hostfile", mapping)
			}
			content, err := os.ReadFile(parts[1])
			if err != nil {
				return nil, fmt.Errorf("read seed file: %w", err)
			}
			cfg.WithFile(parts[0], content)
		}
	}

	if featuresStr != "" {
		var fs []wasihost.Feature
		for _, f := range strings.Split(featuresStr, ",") {
			fs = append(fs, wasihost.Feature(f))
		}
		cfg.WithFeatures(fs...)
	}
	return cfg, nil
}

func run(cfg *wasihost.Config, readBack string) (int, error) {
	cfg.WithStdout(func(line string, multiline bool) {
		fmt.Fprintln(os.Stdout, line)
	})
	cfg.WithStderr(func(line string, multiline bool) {
		fmt.Fprintln(os.Stderr, line)
	})

	result, err := wasihost.Run(context.Background(), cfg)
	if err != nil {
		return 1, err
	}

	if readBack != "" {
		for _, path := range strings.Split(readBack, ",") {
			node, ok := result.FS.Lookup(path)
			if !ok {
				fmt.Fprintf(os.Stderr, "read back: %s not found\n", path)
				continue
			}
			os.Stdout.Write(node.Content())
		}
	}
	return int(result.ExitCode), nil
}
