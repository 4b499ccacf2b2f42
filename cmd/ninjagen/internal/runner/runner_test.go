package runner_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/albertocavalcante/ninjagen/cmd/ninjagen/internal/runner"
)

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestFindExecutor_SiblingBinary(t *testing.T) {
	tmpDir := t.TempDir()
	self := filepath.Join(tmpDir, "ninjagen")
	ninja := filepath.Join(tmpDir, "ninja")
	writeScript(t, self, "exit 0\n")
	writeScript(t, ninja, "exit 0\n")

	r := runner.New(runner.WithExecutablePath(self))
	got, err := r.FindExecutor()
	if err != nil {
		t.Fatalf("FindExecutor() error = %v", err)
	}
	if got != ninja {
		t.Errorf("FindExecutor() = %q, want %q", got, ninja)
	}
}

func TestFindExecutor_PathLookup(t *testing.T) {
	binDir := t.TempDir()
	ninja := filepath.Join(binDir, "ninja")
	writeScript(t, ninja, "exit 0\n")
	t.Setenv("PATH", binDir)

	r := runner.New(runner.WithExecutablePath(filepath.Join(t.TempDir(), "ninjagen")))
	got, err := r.FindExecutor()
	if err != nil {
		t.Fatalf("FindExecutor() error = %v", err)
	}
	if got != ninja {
		t.Errorf("FindExecutor() = %q, want %q", got, ninja)
	}
}

func TestFindExecutor_ExplicitPath(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "samu")
	writeScript(t, custom, "exit 0\n")

	got, err := runner.New(runner.WithExecutor(custom)).FindExecutor()
	if err != nil {
		t.Fatalf("FindExecutor() error = %v", err)
	}
	if got != custom {
		t.Errorf("FindExecutor() = %q, want %q", got, custom)
	}
}

func TestFindExecutor_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	tests := []struct {
		name string
		opts []runner.Option
	}{
		{"path lookup", []runner.Option{runner.WithExecutablePath(filepath.Join(t.TempDir(), "ninjagen"))}},
		{"explicit path", []runner.Option{runner.WithExecutor(filepath.Join(t.TempDir(), "ninja"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.New(tt.opts...).FindExecutor()
			if !errors.Is(err, runner.ErrExecutorNotFound) {
				t.Fatalf("expected ErrExecutorNotFound, got %v", err)
			}
			var nf *runner.ExecutorNotFoundError
			if !errors.As(err, &nf) || nf.Name == "" {
				t.Errorf("expected *ExecutorNotFoundError with a name, got %#v", err)
			}
		})
	}
}

func TestRun_UsesWorkingDirectory(t *testing.T) {
	ninja := filepath.Join(t.TempDir(), "ninja")
	writeScript(t, ninja, "pwd\necho \"$@\"\n")
	buildDir := t.TempDir()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	r := runner.New(runner.WithExecutor(ninja), runner.WithOutput(&stdout, &stdout))
	if err := r.Run(context.Background(), buildDir, []string{"-j4", "learn-vulkan"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	gotDir, _ := filepath.EvalSymlinks(lines[0])
	wantDir, _ := filepath.EvalSymlinks(buildDir)
	if gotDir != wantDir {
		t.Errorf("child ran in %q, want %q", gotDir, wantDir)
	}
	if lines[1] != "-j4 learn-vulkan" {
		t.Errorf("args = %q", lines[1])
	}

	after, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if after != wd {
		t.Errorf("process working directory changed from %q to %q", wd, after)
	}
}

func TestRun_ForwardsExitCode(t *testing.T) {
	ninja := filepath.Join(t.TempDir(), "ninja")
	writeScript(t, ninja, "echo 'ninja: build stopped' >&2\nexit 3\n")

	var stderr bytes.Buffer
	r := runner.New(runner.WithExecutor(ninja), runner.WithOutput(&bytes.Buffer{}, &stderr))
	err := r.Run(context.Background(), t.TempDir(), nil)
	if err == nil {
		t.Fatal("Run() expected error")
	}

	code, ok := runner.ExitCode(err)
	if !ok || code != 3 {
		t.Errorf("ExitCode() = %d, %v; want 3, true", code, ok)
	}
	if !strings.Contains(stderr.String(), "build stopped") {
		t.Errorf("stderr not forwarded: %q", stderr.String())
	}
}

func TestRunWithOutput(t *testing.T) {
	ninja := filepath.Join(t.TempDir(), "ninja")
	writeScript(t, ninja, "echo out\necho err >&2\n")

	out, err := runner.New(runner.WithExecutor(ninja)).RunWithOutput(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("RunWithOutput() error = %v", err)
	}
	if !strings.Contains(string(out), "out") || !strings.Contains(string(out), "err") {
		t.Errorf("output = %q", out)
	}
}

func TestExitCode(t *testing.T) {
	if code, ok := runner.ExitCode(nil); !ok || code != 0 {
		t.Errorf("ExitCode(nil) = %d, %v", code, ok)
	}
	if _, ok := runner.ExitCode(errors.New("boom")); ok {
		t.Error("ExitCode should not report a status for unrelated errors")
	}
}
