// Package cli implements the ninjagen command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/albertocavalcante/ninjagen/cmd/ninjagen/internal/runner"
	"github.com/albertocavalcante/ninjagen/internal/log"
	"github.com/albertocavalcante/ninjagen/pkg/buildgen"
	"github.com/albertocavalcante/ninjagen/pkg/config"
	"github.com/spf13/cobra"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	config    string
	directory string
}

var buildFlags struct {
	clean   bool
	noBuild bool
}

// rootCmd generates the graph and hands off to ninja when called without
// a subcommand.
var rootCmd = &cobra.Command{
	Use:   "ninjagen [flags] [-- ninja args]",
	Short: "Generate a Ninja build graph and run ninja",
	Long: `ninjagen resolves compiler and linker flags with pkg-config, writes
<build_dir>/build.ninja for the project's C++ sources and shaders, and then
runs ninja inside the build directory.

Arguments after "--" are passed to ninja unchanged:

  ninjagen --clean -- -j4 -v

The exit status is ninja's exit status. Generation failures exit with 1.`,
	Args:          noPositionalArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

func init() {
	rootCmd.Flags().BoolVarP(&buildFlags.clean, "clean", "c", false,
		"Remove the build directory before generating")
	rootCmd.Flags().BoolVar(&buildFlags.noBuild, "no-build", false,
		"Write build.ninja but do not run ninja")

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.config, "config", "",
		"Use this config file instead of searching for ninjagen.toml")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.directory, "directory", "C", "",
		"Run as if started in this directory")

	// Hook to apply flags before command runs
	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger.
// This runs after flags are parsed but before command execution.
func initLogging() {
	log.Init(globalFlags.verbosity, globalFlags.logFormat)
}

// noPositionalArgs only allows arguments after "--", which belong to ninja.
func noPositionalArgs(cmd *cobra.Command, args []string) error {
	n := cmd.ArgsLenAtDash()
	if n < 0 {
		n = len(args)
	}
	if n > 0 {
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	res, err := generate(cmd.Context(), cfg, buildFlags.clean)
	if err != nil {
		return err
	}
	if buildFlags.noBuild {
		return nil
	}

	return runNinja(cmd.Context(), cmd, cfg, res.BuildDir, args)
}

// loadConfig loads the layered configuration, honouring --config and -C.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case globalFlags.config != "":
		cfg, err = config.LoadFile(globalFlags.config)
	case globalFlags.directory != "":
		cfg, err = config.LoadFrom(globalFlags.directory)
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Debug("config loaded", "root", cfg.Root, "files", cfg.Sources)
	return cfg, nil
}

func generate(ctx context.Context, cfg *config.Config, clean bool) (*buildgen.Result, error) {
	res, err := buildgen.NewGenerator(cfg).Generate(ctx, buildgen.Options{Clean: clean})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	return res, nil
}

func newRunner(cmd *cobra.Command, cfg *config.Config) *runner.Runner {
	return runner.New(
		runner.WithExecutor(cfg.Toolchain.Ninja),
		runner.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	)
}

// runNinja runs ninja in dir. A non-zero exit becomes an *exitError so
// Execute can forward the status without printing a second diagnostic.
func runNinja(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dir string, args []string) error {
	err := newRunner(cmd, cfg).Run(ctx, dir, args)
	if code, ok := runner.ExitCode(err); ok && code != 0 {
		return &exitError{code: code}
	}
	return err
}

// exitError carries the exit status of the build executor.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("ninja exited with status %d", e.code)
}

// Execute runs the root command and exits the process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps a command error to a process exit status, printing a
// diagnostic for everything except a forwarded ninja status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "ninjagen: %v\n", err)
	return 1
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
