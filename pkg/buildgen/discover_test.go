package buildgen

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("// "+rel+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover_SortedAndNonRecursive(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"src/zeta.cc",
		"src/alpha.cc",
		"src/main.cc",
		"src/util.h",
		"src/nested/skip.cc",
		"src/.hidden.cc",
		"other/elsewhere.cc",
	)

	got, err := Discover(root, "src", "*.cc")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{"src/alpha.cc", "src/main.cc", "src/zeta.cc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_ShadersAnySuffix(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "shaders/s.vert", "shaders/s.frag", "shaders/common.glsl", "shaders/README")

	got, err := Discover(root, "shaders", "*.*")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{"shaders/common.glsl", "shaders/s.frag", "shaders/s.vert"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_DirectoriesAreNotFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "shaders/a.vert")
	if err := os.MkdirAll(filepath.Join(root, "shaders", "dir.d"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Discover(root, "shaders", "*.*")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if diff := cmp.Diff([]string{"shaders/a.vert"}, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_Empty(t *testing.T) {
	root := t.TempDir()

	got, err := Discover(root, "missing", "*.cc")
	if err != nil {
		t.Fatalf("missing dir should not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no files, got %v", got)
	}

	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err = Discover(root, "src", "*.cc")
	if err != nil {
		t.Fatalf("empty dir should not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no files, got %v", got)
	}
}

func TestDiscover_NotADirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src")

	_, err := Discover(root, "src", "*.cc")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestDiscover_RejectsPathPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), "src", "**/*.cc")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestDiscover_RejectsDoubleStar(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "shaders/nested/deep.vert")
	touch(t, root, "shaders/top.frag")

	for _, pattern := range []string{"**", "**.vert", "a**"} {
		files, err := Discover(root, "shaders", pattern)
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Errorf("Discover(%q) = %v, %v; want *GenerationError", pattern, files, err)
		}
	}
}

func TestDiscover_RejectsLineBreaks(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "bad\nname.cc"), nil, 0o644); err != nil {
		t.Skipf("filesystem does not allow newlines in names: %v", err)
	}

	_, err := Discover(root, "src", "*.cc")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}
