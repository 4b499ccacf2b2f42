// Package runner locates the ninja executor and runs it as a supervised
// child process.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultExecutor is the executor name looked up when none is configured.
const DefaultExecutor = "ninja"

// ErrExecutorNotFound is returned when the executor cannot be located.
var ErrExecutorNotFound = errors.New("build executor not found")

// ExecutorNotFoundError names the executor that could not be located.
type ExecutorNotFoundError struct {
	Name string
	Err  error
}

func (e *ExecutorNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build executor %q not found: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("build executor %q not found", e.Name)
}

func (e *ExecutorNotFoundError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExecutorNotFound) hold.
func (e *ExecutorNotFoundError) Is(target error) bool {
	return target == ErrExecutorNotFound
}

// Runner handles finding and executing the build executor.
type Runner struct {
	executor       string
	executablePath string // path to the ninjagen binary, for the sibling lookup
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer
	waitDelay      time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor sets the executor name or path.
func WithExecutor(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.executor = name
		}
	}
}

// WithExecutablePath sets the path to the ninjagen executable.
// Used primarily for testing.
func WithExecutablePath(path string) Option {
	return func(r *Runner) {
		r.executablePath = path
	}
}

// WithOutput redirects the child's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a new Runner. The child inherits this process's standard
// streams unless WithOutput is given.
func New(opts ...Option) *Runner {
	r := &Runner{
		executor:  DefaultExecutor,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		waitDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindExecutor locates the executor using the following search order:
// 1. An explicit path (the configured name contains a separator)
// 2. Sibling binary (ninja next to ninjagen)
// 3. PATH lookup
func (r *Runner) FindExecutor() (string, error) {
	if strings.ContainsRune(r.executor, filepath.Separator) || strings.ContainsRune(r.executor, '/') {
		if isExecutableFile(r.executor) {
			return r.executor, nil
		}
		return "", &ExecutorNotFoundError{Name: r.executor}
	}

	if path := r.findSibling(); path != "" {
		return path, nil
	}

	path, err := exec.LookPath(r.executor)
	if err != nil {
		return "", &ExecutorNotFoundError{Name: r.executor, Err: err}
	}
	return path, nil
}

// findSibling looks for the executor next to the ninjagen binary.
func (r *Runner) findSibling() string {
	exe := r.executablePath
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return ""
		}
	}
	sibling := filepath.Join(filepath.Dir(exe), r.executor)
	if isExecutableFile(sibling) {
		return sibling
	}
	return ""
}

// Run starts the executor in dir with args and waits for it. The working
// directory is set on the child only. A non-zero exit is returned as an
// *exec.ExitError; use ExitCode to recover the status. Cancelling ctx
// interrupts the child and gives it time to clean up before it is killed.
func (r *Runner) Run(ctx context.Context, dir string, args []string) error {
	cmd, err := r.command(ctx, dir, args)
	if err != nil {
		return err
	}
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	return cmd.Run()
}

// RunWithOutput runs the executor and captures its combined output.
func (r *Runner) RunWithOutput(ctx context.Context, dir string, args []string) ([]byte, error) {
	cmd, err := r.command(ctx, dir, args)
	if err != nil {
		return nil, err
	}
	return cmd.CombinedOutput()
}

func (r *Runner) command(ctx context.Context, dir string, args []string) (*exec.Cmd, error) {
	path, err := r.FindExecutor()
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.waitDelay
	return cmd, nil
}

// ExitCode extracts the child's exit status from an error returned by Run.
// ok is false when err does not come from a process that ran to exit.
func ExitCode(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if c := exitErr.ExitCode(); c >= 0 {
			return c, true
		}
	}
	return 0, false
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
