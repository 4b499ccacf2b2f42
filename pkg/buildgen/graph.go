package buildgen

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/albertocavalcante/ninjagen/pkg/ninja"
)

// Rule names used in the generated graph.
const (
	RuleCompile = "cxx"
	RuleShader  = "glsl"
	RuleLink    = "link"
)

// Artifact suffixes.
const (
	ObjectSuffix = ".o"
	ShaderSuffix = ".spv"
)

// Variables are written once at the top of the graph and referenced by
// rules and build statements.
type Variables struct {
	SrcDir   string
	CXXFlags []string
	LDFlags  []string
}

// Rule is a named command template.
type Rule struct {
	Name    string
	Command string
}

// Step is one build statement.
type Step struct {
	Output string
	Rule   string
	// Inputs are passed to the command as $in.
	Inputs []string
	// OrderOnly inputs must exist before the step runs but are not passed
	// to the command. They are written after '|' on the build line.
	OrderOnly []string
}

// Graph is a complete build description.
type Graph struct {
	Vars    Variables
	Rules   []Rule
	Steps   []Step
	Default string
}

// Toolchain names the commands bound into the rules.
type Toolchain struct {
	CXX   string
	GLSLC string
}

// Input is everything needed to build a Graph. Sources and Shaders are
// root-relative, slash-separated paths.
type Input struct {
	SrcDir     string
	CXXFlags   []string
	LDFlags    []string
	Toolchain  Toolchain
	Sources    []string
	Shaders    []string
	Executable string
}

// ObjectPath returns the object produced from a native source: the last
// suffix is replaced with ".o".
func ObjectPath(src string) string {
	return strings.TrimSuffix(src, path.Ext(src)) + ObjectSuffix
}

// ShaderPath returns the SPIR-V artifact for a shader: ".spv" is appended
// and the original extension kept.
func ShaderPath(shader string) string {
	return shader + ShaderSuffix
}

// Build turns the input into a Graph. One compile step is created per
// source and one shader step per shader, in the order given, followed by
// the link step.
func Build(in Input) (*Graph, error) {
	if in.Executable == "" {
		return nil, &GenerationError{Err: fmt.Errorf("executable name is empty")}
	}
	if err := checkPath(in.Executable); err != nil {
		return nil, err
	}

	g := &Graph{
		Vars: Variables{
			SrcDir:   in.SrcDir,
			CXXFlags: in.CXXFlags,
			LDFlags:  in.LDFlags,
		},
		Rules: []Rule{
			{Name: RuleCompile, Command: tool(in.Toolchain.CXX) + " $cxxflags -c $in -o $out"},
			{Name: RuleLink, Command: tool(in.Toolchain.CXX) + " $in -o $out $ldflags"},
			{Name: RuleShader, Command: tool(in.Toolchain.GLSLC) + " $in -o $out"},
		},
		Default: in.Executable,
	}

	objs := make([]string, 0, len(in.Sources))
	for _, src := range in.Sources {
		if err := checkPath(src); err != nil {
			return nil, err
		}
		obj := ObjectPath(src)
		g.Steps = append(g.Steps, Step{Output: obj, Rule: RuleCompile, Inputs: []string{src}})
		objs = append(objs, obj)
	}

	spvs := make([]string, 0, len(in.Shaders))
	for _, sh := range in.Shaders {
		if err := checkPath(sh); err != nil {
			return nil, err
		}
		spv := ShaderPath(sh)
		g.Steps = append(g.Steps, Step{Output: spv, Rule: RuleShader, Inputs: []string{sh}})
		spvs = append(spvs, spv)
	}

	g.Steps = append(g.Steps, Step{
		Output:    in.Executable,
		Rule:      RuleLink,
		Inputs:    objs,
		OrderOnly: spvs,
	})
	return g, nil
}

// StepsByRule returns the steps that use the named rule.
func (g *Graph) StepsByRule(rule string) []Step {
	var out []Step
	for _, s := range g.Steps {
		if s.Rule == rule {
			out = append(out, s)
		}
	}
	return out
}

// Render writes the graph in Ninja syntax. Inputs of compile and shader
// steps are source files and are referenced through $srcdir; link inputs
// are build outputs and stay relative to the build directory.
func (g *Graph) Render() ([]byte, error) {
	var buf bytes.Buffer
	w := ninja.NewWriter(&buf)

	w.Comment("Generated by ninjagen. Do not edit.")
	w.Variable("srcdir", g.Vars.SrcDir)
	w.Variable("cxxflags", joinArgs(g.Vars.CXXFlags))
	w.Variable("ldflags", joinArgs(g.Vars.LDFlags))

	for _, r := range g.Rules {
		w.Rule(r.Name, r.Command)
	}

	for _, s := range g.Steps {
		e := ninja.Edge{
			Outputs:  []string{ninja.EscapePath(s.Output)},
			Rule:     s.Rule,
			Implicit: escapeAll(s.OrderOnly),
		}
		if s.Rule == RuleLink {
			e.Inputs = escapeAll(s.Inputs)
		} else {
			for _, in := range s.Inputs {
				e.Inputs = append(e.Inputs, "$srcdir/"+ninja.EscapePath(in))
			}
		}
		w.Build(e)
	}

	w.Default(ninja.EscapePath(g.Default))

	if err := w.Err(); err != nil {
		return nil, &GenerationError{Err: err}
	}
	return buf.Bytes(), nil
}

func escapeAll(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ninja.EscapePath(p)
	}
	return out
}

// joinArgs joins flags with single spaces, quoting any token the shell
// would otherwise split or expand. Duplicates are kept.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

// tool renders a command name for use inside a rule command.
func tool(name string) string {
	return ninja.Escape(quoteArg(name))
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=+,:@%", r):
		return false
	}
	return true
}
