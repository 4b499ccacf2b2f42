package buildgen

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestPrepareOutput_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build", "nested")

	if err := PrepareOutput(dir, false); err != nil {
		t.Fatalf("PrepareOutput() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
	// Idempotent.
	if err := PrepareOutput(dir, false); err != nil {
		t.Fatalf("second PrepareOutput() error = %v", err)
	}
}

func TestPrepareOutput_KeepsContentsWithoutClean(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.o")
	if err := os.WriteFile(stale, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := PrepareOutput(dir, false); err != nil {
		t.Fatalf("PrepareOutput() error = %v", err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Errorf("existing files should survive without clean: %v", err)
	}
}

func TestPrepareOutput_Clean(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")
	touch(t, dir, "src/a.o", "build.ninja")

	if err := PrepareOutput(dir, true); err != nil {
		t.Fatalf("PrepareOutput() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory after clean, got %d entries", len(entries))
	}
}

func TestPrepareOutput_CleanMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	if err := PrepareOutput(dir, true); err != nil {
		t.Fatalf("cleaning a missing directory should succeed: %v", err)
	}
}

func TestPrepareOutput_CreateFails(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := PrepareOutput(filepath.Join(blocker, "build"), false)
	var envErr *EnvironmentError
	if !errors.As(err, &envErr) {
		t.Fatalf("expected *EnvironmentError, got %v", err)
	}
	if envErr.Op != "create" {
		t.Errorf("Op = %q, want create", envErr.Op)
	}
}

func TestPrepareOutput_RemoveFails(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	parent := t.TempDir()
	dir := filepath.Join(parent, "build")
	touch(t, dir, "sub/a.o")
	sub := filepath.Join(dir, "sub")
	if err := os.Chmod(sub, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(sub, 0o755) })

	err := PrepareOutput(dir, true)
	var envErr *EnvironmentError
	if !errors.As(err, &envErr) {
		t.Fatalf("expected *EnvironmentError, got %v", err)
	}
	if envErr.Op != "remove" {
		t.Errorf("Op = %q, want remove", envErr.Op)
	}
}

func TestWriteGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, GraphFileName)

	changed, err := WriteGraph(path, []byte("default app\n"))
	if err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	if !changed {
		t.Error("first write should report a change")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "default app\n" {
		t.Errorf("content = %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriteGraph_UnchangedKeepsModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), GraphFileName)
	data := []byte("default app\n")
	if _, err := WriteGraph(path, data); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	changed, err := WriteGraph(path, data)
	if err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	if changed {
		t.Error("identical content should not be rewritten")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("ModTime = %v, want %v", info.ModTime(), old)
	}

	changed, err = WriteGraph(path, []byte("default other\n"))
	if err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	if !changed {
		t.Error("different content should be written")
	}
}

func TestWriteGraph_SameLengthDifferentContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), GraphFileName)
	if _, err := WriteGraph(path, []byte("default aaa\n")); err != nil {
		t.Fatal(err)
	}

	changed, err := WriteGraph(path, []byte("default bbb\n"))
	if err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	if !changed {
		t.Error("content of equal length but different bytes should be written")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "default bbb\n" {
		t.Errorf("content = %q", got)
	}
}

func TestCheckBuildDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	src := filepath.Join(root, "src")
	shaders := filepath.Join(root, "shaders")

	tests := []struct {
		name     string
		buildDir string
		wantErr  bool
	}{
		{"inside root", filepath.Join(root, "build"), false},
		{"nested inside source dir", filepath.Join(src, "build"), false},
		{"sibling of root", filepath.Join(filepath.Dir(root), "proj-build"), false},
		{"sibling with shared prefix", filepath.Join(root, "src-out"), false},
		{"root itself", root, true},
		{"parent of root", filepath.Dir(root), true},
		{"filesystem root", string(filepath.Separator), true},
		{"source dir", src, true},
		{"shader dir", shaders + string(filepath.Separator), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBuildDir(tt.buildDir, root, src, shaders)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("CheckBuildDir() error = %v", err)
				}
				return
			}
			var envErr *EnvironmentError
			if !errors.As(err, &envErr) {
				t.Fatalf("expected *EnvironmentError, got %v", err)
			}
			if envErr.Op != "check" {
				t.Errorf("Op = %q, want check", envErr.Op)
			}
		})
	}
}

func TestWriteGraph_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", GraphFileName)

	_, err := WriteGraph(path, []byte("x"))
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint([]byte("a")) == Fingerprint([]byte("b")) {
		t.Error("different inputs should hash differently")
	}
	if Fingerprint([]byte("build")) != Fingerprint([]byte("build")) {
		t.Error("hash must be deterministic")
	}
}
