// Package ninja writes files in the Ninja build manifest syntax.
//
// Only the subset needed by ninjagen is supported: top-level variables,
// rules with a single command, build edges with explicit, implicit and
// order-only inputs, and default targets.
package ninja

import (
	"fmt"
	"io"
	"strings"
)

// Writer emits Ninja statements to an underlying io.Writer. The first
// write error is retained and every later call becomes a no-op.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered while writing.
func (n *Writer) Err() error {
	return n.err
}

func (n *Writer) line(s string) {
	if n.err != nil {
		return
	}
	_, n.err = io.WriteString(n.w, s+"\n")
}

// Comment writes a "# text" line.
func (n *Writer) Comment(text string) {
	for _, l := range strings.Split(text, "\n") {
		n.line("# " + l)
	}
}

// Newline writes an empty line.
func (n *Writer) Newline() {
	n.line("")
}

// Variable writes "name = value". The value is escaped for '$' only, so
// callers can not inject variable references.
func (n *Writer) Variable(name, value string) {
	n.line(fmt.Sprintf("%s = %s", name, Escape(value)))
}

// Rule writes a rule block with an indented command line. The command is
// written verbatim so that it can reference $in, $out and variables.
func (n *Writer) Rule(name, command string) {
	n.line("rule " + name)
	n.line("    command = " + command)
}

// Edge describes one build statement.
type Edge struct {
	Outputs   []string
	Rule      string
	Inputs    []string
	Implicit  []string
	OrderOnly []string
}

// Build writes a build statement. Paths are written as given; use
// EscapePath on values that do not intentionally reference variables.
func (n *Writer) Build(e Edge) {
	var b strings.Builder
	b.WriteString("build ")
	b.WriteString(strings.Join(e.Outputs, " "))
	b.WriteString(": ")
	b.WriteString(e.Rule)
	for _, in := range e.Inputs {
		b.WriteString(" " + in)
	}
	if len(e.Implicit) > 0 {
		b.WriteString(" | " + strings.Join(e.Implicit, " "))
	}
	if len(e.OrderOnly) > 0 {
		b.WriteString(" || " + strings.Join(e.OrderOnly, " "))
	}
	n.line(b.String())
}

// Default writes a "default" statement.
func (n *Writer) Default(targets ...string) {
	n.line("default " + strings.Join(targets, " "))
}

// Escape escapes '$' so the value is taken literally.
func Escape(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

var pathEscaper = strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:")

// EscapePath escapes a path for use in a build statement.
func EscapePath(p string) string {
	return pathEscaper.Replace(p)
}
