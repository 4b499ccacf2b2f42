package buildgen

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GraphFileName is the name of the generated manifest inside the build
// directory.
const GraphFileName = "build.ninja"

// PrepareOutput makes sure dir exists. With clean set, an existing dir is
// removed first. A dir that does not exist is not an error when cleaning.
func PrepareOutput(dir string, clean bool) error {
	if clean {
		if err := os.RemoveAll(dir); err != nil {
			if _, statErr := os.Lstat(dir); !errors.Is(statErr, fs.ErrNotExist) {
				return &EnvironmentError{Op: "remove", Path: dir, Err: err}
			}
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &EnvironmentError{Op: "create", Path: dir, Err: err}
	}
	return nil
}

// CheckBuildDir rejects an output directory that equals or contains root
// or any of the input directories, since cleaning it would delete them.
func CheckBuildDir(buildDir, root string, inputs ...string) error {
	for _, protected := range append([]string{root}, inputs...) {
		if within(buildDir, protected) {
			return &EnvironmentError{
				Op:   "check",
				Path: buildDir,
				Err:  fmt.Errorf("build directory would contain %s", protected),
			}
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Fingerprint returns the xxHash64 of graph text. It identifies a graph in
// logs and results without carrying the text around.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// WriteGraph writes data to path atomically: the text goes to a temporary
// file in the same directory which is then renamed over path, so readers
// see either the old graph or the new one. If path already holds the same
// bytes it is left untouched and changed is false.
func WriteGraph(path string, data []byte) (changed bool, err error) {
	if existing, err := os.ReadFile(path); err == nil {
		if bytes.Equal(existing, data) {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, &GenerationError{Path: path, Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, &GenerationError{Path: path, Err: fmt.Errorf("failed to write temp file: %w", err)}
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return false, &GenerationError{Path: path, Err: fmt.Errorf("failed to chmod temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return false, &GenerationError{Path: path, Err: fmt.Errorf("failed to close temp file: %w", err)}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return false, &GenerationError{Path: path, Err: fmt.Errorf("failed to rename temp file: %w", err)}
	}
	return true, nil
}
