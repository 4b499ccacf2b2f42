package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "ninjagen.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".ninjagen"

// GlobalConfigDir is the name of the global config directory inside the
// user's config dir.
const GlobalConfigDir = "ninjagen"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NINJAGEN_"

// Load loads configuration starting from the current directory.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/ninjagen/config.toml)
//  3. Project config found in dir or its parents
//  4. Environment variables (NINJAGEN_*)
//
// A config file that exists but does not parse is an error; a missing one
// is not. CLI flags are applied by the caller.
func LoadFrom(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	cfg := NewConfig()
	cfg.Root = abs

	if p := GetGlobalConfigPath(); p != "" {
		globalCfg, err := loadConfigFile(p)
		if err != nil {
			return nil, err
		}
		cfg.Merge(globalCfg)
	}

	projectCfg, root, err := findProjectConfig(abs)
	if err != nil {
		return nil, err
	}
	if projectCfg != nil {
		cfg.Merge(projectCfg)
		cfg.Root = root
	}

	applyEnvironmentVariables(cfg)
	return cfg, nil
}

// LoadFile loads defaults, then the given file, then environment
// variables. The project root is the file's directory.
func LoadFile(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fileCfg, err := loadConfigFile(abs)
	if err != nil {
		return nil, err
	}
	if fileCfg == nil {
		return nil, fmt.Errorf("config file not found: %s", abs)
	}

	cfg := NewConfig()
	cfg.Root = filepath.Dir(abs)
	cfg.Merge(fileCfg)
	applyEnvironmentVariables(cfg)
	return cfg, nil
}

// findProjectConfig searches dir and its parents for a project config,
// stopping at a repository root. It returns the config and the directory
// that holds the project (for .ninjagen/config.toml, the parent of .ninjagen).
func findProjectConfig(dir string) (*Config, string, error) {
	current := dir
	for {
		for _, candidate := range GetProjectConfigPaths(current) {
			cfg, err := loadConfigFile(candidate)
			if err != nil {
				return nil, "", err
			}
			if cfg != nil {
				return cfg, current, nil
			}
		}

		if isRepositoryRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return nil, "", nil
}

// isRepositoryRoot checks if the directory is a VCS checkout root.
func isRepositoryRoot(dir string) bool {
	for _, marker := range []string{".git", ".hg", ".jj"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile decodes a TOML file. A missing file yields (nil, nil).
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.Sources = []string{path}
	return &cfg, nil
}

// applyEnvironmentVariables applies NINJAGEN_* (and PKG_CONFIG) overrides.
func applyEnvironmentVariables(cfg *Config) {
	// NINJAGEN_PACKAGES: comma-separated list of pkg-config packages
	if v, ok := os.LookupEnv(EnvPrefix + "PACKAGES"); ok {
		cfg.Deps.Packages = splitAndTrim(v)
	}

	applyStringEnv(EnvPrefix+"EXECUTABLE", &cfg.Project.Executable)
	applyStringEnv(EnvPrefix+"BUILD_DIR", &cfg.Project.BuildDir)
	applyStringEnv(EnvPrefix+"SOURCE_DIR", &cfg.Project.SourceDir)
	applyStringEnv(EnvPrefix+"SHADER_DIR", &cfg.Project.ShaderDir)

	applyStringEnv(EnvPrefix+"CXX", &cfg.Toolchain.CXX)
	applyStringEnv(EnvPrefix+"GLSLC", &cfg.Toolchain.GLSLC)
	// PKG_CONFIG is the variable autotools and meson honor.
	applyStringEnv("PKG_CONFIG", &cfg.Toolchain.PkgConfig)
	applyStringEnv(EnvPrefix+"PKG_CONFIG", &cfg.Toolchain.PkgConfig)
	applyStringEnv(EnvPrefix+"NINJA", &cfg.Toolchain.Ninja)

	// NINJAGEN_CXXFLAGS / NINJAGEN_LDFLAGS: whitespace-separated
	if v, ok := os.LookupEnv(EnvPrefix + "CXXFLAGS"); ok {
		cfg.Toolchain.CXXFlags = strings.Fields(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LDFLAGS"); ok {
		cfg.Toolchain.LDFlags = strings.Fields(v)
	}
}

func applyStringEnv(envVar string, target *string) {
	if v := os.Getenv(envVar); v != "" {
		*target = v
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a
// directory, in lookup order.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
