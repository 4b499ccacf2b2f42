package ninja

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Variable("srcdir", "/home/me/learn vulkan")
	w.Rule("cxx", "clang++ $cxxflags -c $in -o $out")
	w.Build(Edge{Outputs: []string{"src/a.o"}, Rule: "cxx", Inputs: []string{"$srcdir/src/a.cc"}})
	w.Build(Edge{
		Outputs:   []string{"app"},
		Rule:      "link",
		Inputs:    []string{"src/a.o", "src/b.o"},
		Implicit:  []string{"shaders/s.vert.spv"},
		OrderOnly: []string{"gen"},
	})
	w.Default("app")

	if err := w.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	want := `srcdir = /home/me/learn vulkan
rule cxx
    command = clang++ $cxxflags -c $in -o $out
build src/a.o: cxx $srcdir/src/a.cc
build app: link src/a.o src/b.o | shaders/s.vert.spv || gen
default app
`
	if got := buf.String(); got != want {
		t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuild_NoImplicit(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Build(Edge{Outputs: []string{"app"}, Rule: "link", Inputs: []string{"a.o"}})

	if got, want := buf.String(), "build app: link a.o\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComment(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Comment("generated\ndo not edit")

	if got, want := buf.String(), "# generated\n# do not edit\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, path, value string
	}{
		{"src/a.cc", "src/a.cc", "src/a.cc"},
		{"my dir/a.cc", "my$ dir/a.cc", "my dir/a.cc"},
		{"C:/a.cc", "C$:/a.cc", "C:/a.cc"},
		{"$HOME/a", "$$HOME/a", "$$HOME/a"},
	}
	for _, tt := range tests {
		if got := EscapePath(tt.in); got != tt.path {
			t.Errorf("EscapePath(%q) = %q, want %q", tt.in, got, tt.path)
		}
		if got := Escape(tt.in); got != tt.value {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.value)
		}
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errors.New("disk full")
}

func TestWriter_StickyError(t *testing.T) {
	fw := &failingWriter{}
	w := NewWriter(fw)
	w.Variable("a", "b")
	w.Rule("r", "true")
	w.Default("x")

	if w.Err() == nil {
		t.Fatal("expected error")
	}
	if fw.n != 1 {
		t.Errorf("writes after first failure = %d, want 1 total", fw.n)
	}
}
