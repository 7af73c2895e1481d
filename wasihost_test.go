package wasihost

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

// Hand-assembled Preview1 command modules; see the bridge package tests
// for the annotated encodings.

var exit7Module = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x08, 0x02, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00,
	0x02, 0x24, 0x01,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x09, 'p', 'r', 'o', 'c', '_', 'e', 'x', 'i', 't', 0x00, 0x00,
	0x03, 0x02, 0x01, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
	0x0a, 0x08, 0x01, 0x06, 0x00, 0x41, 0x07, 0x10, 0x00, 0x0b,
}

var returnModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x00,
	0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
}

var randomModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x0a, 0x02, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, 0x60, 0x00, 0x00,
	0x02, 0x25, 0x01,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x0a, 'r', 'a', 'n', 'd', 'o', 'm', '_', 'g', 'e', 't', 0x00, 0x00,
	0x03, 0x02, 0x01, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
	0x0a, 0x0b, 0x01, 0x09, 0x00, 0x41, 0x00, 0x41, 0x08, 0x10, 0x00, 0x1a, 0x0b,
}

var helloModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x0c, 0x02, 0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f, 0x60, 0x00, 0x00,
	0x02, 0x23, 0x01,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x08, 'f', 'd', '_', 'w', 'r', 'i', 't', 'e', 0x00, 0x00,
	0x03, 0x02, 0x01, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
	0x0a, 0x0f, 0x01, 0x0d, 0x00, 0x41, 0x01, 0x41, 0x00, 0x41, 0x01, 0x41, 0x14, 0x10, 0x00, 0x1a, 0x0b,
	0x0b, 0x14, 0x01, 0x00, 0x41, 0x00, 0x0b, 0x0e,
	0x08, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o', 0x0a,
}

var loopModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x0b,
}

func fetchBytes(bin []byte) Fetcher {
	return func(ctx context.Context) (io.Reader, error) {
		return bytes.NewReader(bin), nil
	}
}

func TestRunExitCode(t *testing.T) {
	result, err := Run(context.Background(), NewConfig(fetchBytes(exit7Module)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", result.ExitCode)
	}
}

func TestRunCleanReturn(t *testing.T) {
	result, err := Run(context.Background(), NewConfig(fetchBytes(returnModule)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
}

func TestRunCapturesStdout(t *testing.T) {
	var lines []string
	cfg := NewConfig(fetchBytes(helloModule)).
		WithStdout(func(line string, multiline bool) {
			lines = append(lines, line)
		})

	result, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if len(lines) != 1 || lines[0] != "hello" {
		t.Errorf("stdout lines = %v, want [hello]", lines)
	}
}

func TestRunSeededFilesSurvive(t *testing.T) {
	cfg := NewConfig(fetchBytes(returnModule)).
		WithFile("/input.bin", []byte("data"))

	result, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	node, ok := result.FS.Lookup("/input.bin")
	if !ok {
		t.Fatal("/input.bin missing from result filesystem")
	}
	if !bytes.Equal(node.Content(), []byte("data")) {
		t.Errorf("content = %q, want data", node.Content())
	}
}

func TestRunOmittedFeatureFaults(t *testing.T) {
	var errLines []string
	cfg := NewConfig(fetchBytes(randomModule)).
		WithFeatures(FeatureExit).
		WithStderr(func(line string, multiline bool) {
			errLines = append(errLines, line)
		})

	result, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 255 {
		t.Errorf("exit code = %d, want 255", result.ExitCode)
	}
	if len(errLines) == 0 || !strings.Contains(errLines[0], "random_get") {
		t.Errorf("stderr should name the unsupported syscall: %v", errLines)
	}
}

func TestRunFeaturePresentSucceeds(t *testing.T) {
	cfg := NewConfig(fetchBytes(randomModule)).
		WithFeatures(FeatureRandom)

	result, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
}

// A looping guest must not outlive the caller's deadline; the
// invocation is abandoned, its result discarded.
func TestRunCanceledOnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := Run(ctx, NewConfig(fetchBytes(loopModule)))
	if err == nil {
		t.Fatalf("Run returned %+v, want an error after the deadline", result)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Run took %v to honor a 200ms deadline", elapsed)
	}
}

func TestRunNoFetcher(t *testing.T) {
	if _, err := Run(context.Background(), &Config{}); err == nil {
		t.Fatal("expected error without a fetcher")
	}
	if _, err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunUnknownFeature(t *testing.T) {
	cfg := NewConfig(fetchBytes(returnModule)).WithFeatures("teleport")
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown feature")
	}
}

func TestRunConcurrentInvocationsIsolated(t *testing.T) {
	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			cfg := NewConfig(fetchBytes(helloModule)).
				WithFile("/seed", []byte("x"))
			result, err := Run(context.Background(), cfg)
			if err == nil && result.ExitCode != 0 {
				err = &exitCodeError{code: result.ExitCode}
			}
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent run: %v", err)
		}
	}
}

type exitCodeError struct {
	code uint32
}

func (e *exitCodeError) Error() string {
	return "unexpected exit code"
}
