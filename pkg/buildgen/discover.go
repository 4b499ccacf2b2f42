package buildgen

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover returns the files directly under root/dir whose names match
// pattern, as slash-separated paths relative to root, sorted
// lexicographically. Subdirectories are not descended into and hidden
// files are skipped. A missing dir yields no files.
func Discover(root, dir, pattern string) ([]string, error) {
	if strings.Contains(pattern, "/") {
		return nil, &GenerationError{Path: pattern, Err: errors.New("pattern must not contain a path separator")}
	}
	if strings.Contains(pattern, "**") {
		return nil, &GenerationError{Path: pattern, Err: errors.New(`pattern must not use "**"`)}
	}

	base := filepath.Join(root, filepath.FromSlash(dir))
	info, err := os.Stat(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &GenerationError{Path: base, Err: err}
	}
	if !info.IsDir() {
		return nil, &GenerationError{Path: base, Err: errors.New("not a directory")}
	}

	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &GenerationError{Path: base, Err: err}
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(m, ".") {
			continue
		}
		rel := path.Join(filepath.ToSlash(dir), m)
		if err := checkPath(rel); err != nil {
			return nil, err
		}
		files = append(files, rel)
	}
	slices.Sort(files)
	return files, nil
}

// checkPath rejects names that can not be represented in a Ninja manifest.
func checkPath(p string) error {
	if p == "" {
		return &GenerationError{Err: errors.New("empty path")}
	}
	if strings.ContainsAny(p, "\n\r\x00") {
		return &GenerationError{Path: p, Err: errors.New("path contains a line break or NUL")}
	}
	return nil
}
