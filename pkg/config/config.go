// Package config provides configuration management for ninjagen.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/ninjagen/config.toml)
//  3. Project config (.ninjagen/config.toml or ninjagen.toml)
//  4. Environment variables (NINJAGEN_*)
//  5. CLI flags (highest priority)
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Config is the main configuration struct for ninjagen.
type Config struct {
	// Project describes the source layout and the produced executable.
	Project ProjectConfig `toml:"project"`

	// Deps lists the pkg-config packages the project links against.
	Deps DepsConfig `toml:"deps"`

	// Toolchain names the external tools invoked by the generated graph.
	Toolchain ToolchainConfig `toml:"toolchain"`

	// Root is the project root all relative paths are resolved against.
	// It is the directory holding the project config file, or the
	// directory Load was started from when no file was found.
	Root string `toml:"-"`

	// Sources lists the config files that were merged, lowest priority first.
	Sources []string `toml:"-"`
}

// ProjectConfig holds layout settings.
type ProjectConfig struct {
	// Executable is the name of the linked binary and the default target.
	Executable string `toml:"executable"`

	// BuildDir is the output directory, relative to Root.
	BuildDir string `toml:"build_dir"`

	// SourceDir holds native sources, scanned non-recursively.
	SourceDir string `toml:"source_dir"`

	// SourcePattern selects native sources inside SourceDir.
	SourcePattern string `toml:"source_pattern"`

	// ShaderDir holds shader sources, scanned non-recursively.
	ShaderDir string `toml:"shader_dir"`

	// ShaderPattern selects shader sources inside ShaderDir.
	ShaderPattern string `toml:"shader_pattern"`
}

// DepsConfig holds the native dependency list.
type DepsConfig struct {
	// Packages are pkg-config module names, resolved in order.
	Packages []string `toml:"packages"`
}

// ToolchainConfig holds tool names and base flags.
type ToolchainConfig struct {
	// CXX compiles and links native code.
	CXX string `toml:"cxx"`

	// CXXFlags precede the resolved package compile flags.
	CXXFlags []string `toml:"cxxflags"`

	// LDFlags precede the resolved package link flags.
	LDFlags []string `toml:"ldflags"`

	// GLSLC compiles shaders to SPIR-V.
	GLSLC string `toml:"glslc"`

	// PkgConfig is the metadata resolver.
	PkgConfig string `toml:"pkg_config"`

	// Ninja is the build-graph executor.
	Ninja string `toml:"ninja"`
}

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Executable:    "learn-vulkan",
			BuildDir:      "build",
			SourceDir:     "src",
			SourcePattern: "*.cc",
			ShaderDir:     "shaders",
			ShaderPattern: "*.*",
		},
		Deps: DepsConfig{
			Packages: []string{"glfw3", "vulkan"},
		},
		Toolchain: ToolchainConfig{
			CXX:       "clang++",
			CXXFlags:  []string{"-std=c++17", "-Wall"},
			GLSLC:     "glslc",
			PkgConfig: "pkg-config",
			Ninja:     "ninja",
		},
	}
}

// Merge merges another config into this one (other takes precedence).
// Slices replace rather than append so a project can drop a default
// package or flag.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	mergeString(&c.Project.Executable, other.Project.Executable)
	mergeString(&c.Project.BuildDir, other.Project.BuildDir)
	mergeString(&c.Project.SourceDir, other.Project.SourceDir)
	mergeString(&c.Project.SourcePattern, other.Project.SourcePattern)
	mergeString(&c.Project.ShaderDir, other.Project.ShaderDir)
	mergeString(&c.Project.ShaderPattern, other.Project.ShaderPattern)

	if other.Deps.Packages != nil {
		c.Deps.Packages = other.Deps.Packages
	}

	mergeString(&c.Toolchain.CXX, other.Toolchain.CXX)
	mergeString(&c.Toolchain.GLSLC, other.Toolchain.GLSLC)
	mergeString(&c.Toolchain.PkgConfig, other.Toolchain.PkgConfig)
	mergeString(&c.Toolchain.Ninja, other.Toolchain.Ninja)
	if other.Toolchain.CXXFlags != nil {
		c.Toolchain.CXXFlags = other.Toolchain.CXXFlags
	}
	if other.Toolchain.LDFlags != nil {
		c.Toolchain.LDFlags = other.Toolchain.LDFlags
	}

	c.Sources = append(c.Sources, other.Sources...)
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks that the layout can be turned into a graph.
func (c *Config) Validate() error {
	var errs []error
	if c.Project.Executable == "" {
		errs = append(errs, errors.New("project.executable must not be empty"))
	}
	if strings.ContainsAny(c.Project.Executable, "/\\\n") {
		errs = append(errs, fmt.Errorf("project.executable %q must be a plain file name", c.Project.Executable))
	}
	if c.Project.BuildDir == "" {
		errs = append(errs, errors.New("project.build_dir must not be empty"))
	} else if isAncestorDir(c.Project.BuildDir) {
		errs = append(errs, fmt.Errorf("project.build_dir %q must not be the project root or one of its parents", c.Project.BuildDir))
	}
	for _, p := range []struct{ key, val string }{
		{"project.source_pattern", c.Project.SourcePattern},
		{"project.shader_pattern", c.Project.ShaderPattern},
	} {
		if strings.Contains(p.val, "/") {
			errs = append(errs, fmt.Errorf("%s %q must not contain a path separator", p.key, p.val))
			continue
		}
		if strings.Contains(p.val, "**") {
			errs = append(errs, fmt.Errorf("%s %q must not use \"**\"; discovery is not recursive", p.key, p.val))
			continue
		}
		if !doublestar.ValidatePattern(p.val) {
			errs = append(errs, fmt.Errorf("%s %q is not a valid glob", p.key, p.val))
		}
	}
	for _, tool := range []struct{ key, val string }{
		{"toolchain.cxx", c.Toolchain.CXX},
		{"toolchain.glslc", c.Toolchain.GLSLC},
		{"toolchain.pkg_config", c.Toolchain.PkgConfig},
		{"toolchain.ninja", c.Toolchain.Ninja},
	} {
		if tool.val == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", tool.key))
		}
	}
	return errors.Join(errs...)
}

// isAncestorDir reports whether a build dir names the directory it is
// resolved against or one of its parents: ".", "..", "../.." or a
// filesystem root.
func isAncestorDir(dir string) bool {
	clean := filepath.ToSlash(filepath.Clean(dir))
	if clean == "/" || filepath.VolumeName(dir)+"/" == clean {
		return true
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg != "." && seg != ".." {
			return false
		}
	}
	return true
}
