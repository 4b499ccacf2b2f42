// Package buildgen turns a project's source layout and resolved dependency
// flags into a Ninja build graph.
//
// The graph has one compile step per native source, one shader step per
// shader, and a single link step that takes every object as input and
// requires every compiled shader to exist first. Discovery is sorted so
// that the same tree always produces byte-identical output.
package buildgen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/albertocavalcante/ninjagen/internal/log"
	"github.com/albertocavalcante/ninjagen/pkg/config"
	"github.com/albertocavalcante/ninjagen/pkg/pkgconfig"
)

// DependencyResolver resolves pkg-config packages into flags.
type DependencyResolver interface {
	Resolve(ctx context.Context, names []string) (pkgconfig.Flags, error)
}

// Generator runs the generation pipeline for one project.
type Generator struct {
	cfg      *config.Config
	resolver DependencyResolver
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithResolver replaces the pkg-config resolver.
func WithResolver(r DependencyResolver) Option {
	return func(g *Generator) {
		g.resolver = r
	}
}

// NewGenerator creates a Generator for cfg. Without WithResolver, the
// configured pkg-config binary is used.
func NewGenerator(cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg,
		logger: log.Component("buildgen"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.resolver == nil {
		g.resolver = pkgconfig.New(pkgconfig.WithBinary(cfg.Toolchain.PkgConfig))
	}
	return g
}

// Options control a single Generate call.
type Options struct {
	// Clean removes the build directory before generating.
	Clean bool
}

// Result describes a finished generation.
type Result struct {
	BuildDir  string
	GraphPath string
	Graph     *Graph
	// Changed is false when an identical graph was already on disk.
	Changed bool
	// Fingerprint is the xxHash64 of the graph text.
	Fingerprint uint64
}

// BuildDir returns the absolute output directory.
func (g *Generator) BuildDir() string {
	if filepath.IsAbs(g.cfg.Project.BuildDir) {
		return filepath.Clean(g.cfg.Project.BuildDir)
	}
	return filepath.Join(g.cfg.Root, g.cfg.Project.BuildDir)
}

// Generate runs clean, ensure-dir, resolve, discover and emit in order.
// Any failure aborts the run; the graph file is only written once the
// complete text exists in memory.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, &GenerationError{Err: err}
	}

	buildDir := g.BuildDir()
	if err := CheckBuildDir(buildDir, g.cfg.Root,
		filepath.Join(g.cfg.Root, filepath.FromSlash(g.cfg.Project.SourceDir)),
		filepath.Join(g.cfg.Root, filepath.FromSlash(g.cfg.Project.ShaderDir)),
	); err != nil {
		return nil, err
	}
	if opts.Clean {
		g.logger.Info("cleaning output directory", "dir", buildDir)
	}
	if err := PrepareOutput(buildDir, opts.Clean); err != nil {
		return nil, err
	}

	pkgs := g.cfg.Deps.Packages
	g.logger.Debug("resolving dependencies", "packages", pkgs)
	flags, err := g.resolver.Resolve(ctx, pkgs)
	if err != nil {
		return nil, err
	}

	sources, err := Discover(g.cfg.Root, g.cfg.Project.SourceDir, g.cfg.Project.SourcePattern)
	if err != nil {
		return nil, err
	}
	shaders, err := Discover(g.cfg.Root, g.cfg.Project.ShaderDir, g.cfg.Project.ShaderPattern)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("discovered files", "sources", len(sources), "shaders", len(shaders))
	if len(sources) == 0 {
		g.logger.Warn("no native sources found", "dir", filepath.Join(g.cfg.Root, g.cfg.Project.SourceDir), "pattern", g.cfg.Project.SourcePattern)
	}

	graph, err := Build(Input{
		SrcDir:   g.cfg.Root,
		CXXFlags: slices.Concat(g.cfg.Toolchain.CXXFlags, flags.CFlags),
		LDFlags:  slices.Concat(g.cfg.Toolchain.LDFlags, flags.Libs),
		Toolchain: Toolchain{
			CXX:   g.cfg.Toolchain.CXX,
			GLSLC: g.cfg.Toolchain.GLSLC,
		},
		Sources:    sources,
		Shaders:    shaders,
		Executable: g.cfg.Project.Executable,
	})
	if err != nil {
		return nil, err
	}

	data, err := graph.Render()
	if err != nil {
		return nil, err
	}
	log.Trace("rendered graph", "text", string(data))

	graphPath := filepath.Join(buildDir, GraphFileName)
	changed, err := WriteGraph(graphPath, data)
	if err != nil {
		return nil, err
	}
	sum := Fingerprint(data)
	g.logger.Info("graph written", "path", graphPath, "changed", changed, "steps", len(graph.Steps),
		"fingerprint", fmt.Sprintf("%016x", sum))

	return &Result{
		BuildDir:    buildDir,
		GraphPath:   graphPath,
		Graph:       graph,
		Changed:     changed,
		Fingerprint: sum,
	}, nil
}
