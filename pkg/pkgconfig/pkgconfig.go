// Package pkgconfig resolves compiler and linker flags for system libraries
// by querying pkg-config.
package pkgconfig

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/albertocavalcante/ninjagen/internal/log"
)

// DefaultBinary is the resolver looked up on PATH when none is configured.
const DefaultBinary = "pkg-config"

// Flags holds the tokens needed to compile against and link with a set of
// packages. Order follows the order packages were requested in.
type Flags struct {
	CFlags []string
	Libs   []string
}

// Executor runs an external command and returns its captured output.
type Executor interface {
	Output(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecExecutor runs commands with os/exec. Stdin is /dev/null.
type ExecExecutor struct{}

// Output implements Executor.
func (ExecExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Resolver queries pkg-config for package flags.
type Resolver struct {
	binary string
	exec   Executor
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBinary overrides the pkg-config binary.
func WithBinary(path string) Option {
	return func(r *Resolver) {
		if path != "" {
			r.binary = path
		}
	}
}

// WithExecutor replaces the command executor. Used by tests.
func WithExecutor(e Executor) Option {
	return func(r *Resolver) {
		r.exec = e
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		binary: DefaultBinary,
		exec:   ExecExecutor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the concatenated compile and link flags of every package
// in names, in order. Duplicates are kept. The first failing query aborts
// the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, names []string) (Flags, error) {
	var flags Flags
	for _, name := range names {
		cflags, err := r.CFlags(ctx, name)
		if err != nil {
			return Flags{}, err
		}
		libs, err := r.Libs(ctx, name)
		if err != nil {
			return Flags{}, err
		}
		flags.CFlags = append(flags.CFlags, cflags...)
		flags.Libs = append(flags.Libs, libs...)
	}
	return flags, nil
}

// CFlags returns the compile flags for a single package.
func (r *Resolver) CFlags(ctx context.Context, name string) ([]string, error) {
	return r.query(ctx, name, "--cflags")
}

// Libs returns the link flags for a single package.
func (r *Resolver) Libs(ctx context.Context, name string) ([]string, error) {
	return r.query(ctx, name, "--libs")
}

func (r *Resolver) query(ctx context.Context, name, mode string) ([]string, error) {
	args := []string{mode, name}
	log.Component("pkgconfig").Debug("querying", "binary", r.binary, "args", args)

	stdout, stderr, err := r.exec.Output(ctx, r.binary, args...)
	if err != nil {
		return nil, &ResolutionError{
			Package: name,
			Args:    append([]string{r.binary}, args...),
			Stderr:  strings.TrimSpace(string(stderr)),
			Err:     err,
		}
	}
	log.Trace("resolver output", "package", name, "mode", mode, "stdout", string(stdout))

	tokens, err := Split(string(stdout))
	if err != nil {
		return nil, &ResolutionError{
			Package: name,
			Args:    append([]string{r.binary}, args...),
			Err:     fmt.Errorf("failed to tokenize output: %w", err),
		}
	}
	return tokens, nil
}

// Split breaks resolver output into flag tokens on whitespace. pkg-config
// escapes spaces inside a flag with a backslash; only then is the output
// run through a shell-word lexer, with quote and comment characters
// escaped so that they stay literal.
func Split(output string) ([]string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}
	if !strings.ContainsRune(output, '\\') {
		return strings.Fields(output), nil
	}
	return shlex.Split(literalQuotes.Replace(output))
}

var literalQuotes = strings.NewReplacer(`'`, `\'`, `"`, `\"`, `#`, `\#`)
