package pkgconfig

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ResolutionError reports a failed pkg-config query. Stderr carries the
// resolver's own diagnostic so a missing package can be diagnosed directly.
type ResolutionError struct {
	Package string
	Args    []string
	Stderr  string
	Err     error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to resolve package %q", e.Package)
	if len(e.Args) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Args, " "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the resolver binary itself could not be found.
func (e *ResolutionError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound)
}
