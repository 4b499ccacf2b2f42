package buildgen

import "fmt"

// EnvironmentError reports a failed filesystem operation on the output
// directory.
type EnvironmentError struct {
	Op   string // "check", "remove" or "create"
	Path string
	Err  error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("failed to %s output directory %s: %v", e.Op, e.Path, e.Err)
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// GenerationError reports a malformed discovered path or an unwritable
// graph file.
type GenerationError struct {
	Path string
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("graph generation failed: %v", e.Err)
	}
	return fmt.Sprintf("graph generation failed for %s: %v", e.Path, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
