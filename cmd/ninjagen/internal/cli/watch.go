package cli

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/albertocavalcante/ninjagen/cmd/ninjagen/internal/watch"
	"github.com/albertocavalcante/ninjagen/internal/log"
	"github.com/albertocavalcante/ninjagen/pkg/buildgen"
	"github.com/albertocavalcante/ninjagen/pkg/config"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	debounce int
	clean    bool
	noBuild  bool
	verbose  bool
	json     bool
	noColor  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [-- ninja args]",
	Short: "Regenerate and rebuild when sources change",
	Long: `Generates and builds once, then watches the source and shader
directories. Adding, removing or renaming a file regenerates build.ninja;
any change re-runs ninja.

Example output:

  $ ninjagen watch

  ninjagen: watching src, shaders in /path/to/project
  ninjagen: ready

  [14:32:15] + src/renderer.cc
  [14:32:15] regenerating and building...
  [14:32:16] ✓ build finished (0.8s)

Press Ctrl+C to stop watching.`,
	Args: noPositionalArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", int(watch.DefaultDebounce/time.Millisecond),
		"Debounce window in milliseconds")
	watchCmd.Flags().BoolVarP(&watchFlags.clean, "clean", "c", false,
		"Remove the build directory before the first build")
	watchCmd.Flags().BoolVar(&watchFlags.noBuild, "no-build", false,
		"Only regenerate build.ninja, never run ninja")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show file-level changes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	logger := watch.NewLogger(watch.LoggerConfig{
		Writer:  cmd.ErrOrStderr(),
		Verbose: watchFlags.verbose,
		NoColor: watchFlags.noColor,
		JSON:    watchFlags.json,
	})

	s := &watchSession{cmd: cmd, cfg: cfg, args: args}

	// The first build runs before watching starts. Its failure is reported
	// but the session continues so that the next edit can fix it.
	if err := s.build(ctx, true, watchFlags.clean); err != nil {
		logger.Error(err)
	}

	w, err := watch.New(watch.Config{
		Root:     cfg.Root,
		Dirs:     watchDirs(cfg),
		Files:    []string{config.ConfigFileName},
		Debounce: time.Duration(watchFlags.debounce) * time.Millisecond,
		Handler:  s.handle,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	// Run watch loop
	return w.Run(ctx)
}

// watchSession holds the state shared by successive handler runs. The
// watcher serialises handler calls, so no locking is needed.
type watchSession struct {
	cmd  *cobra.Command
	cfg  *config.Config
	args []string
}

func (s *watchSession) handle(ctx context.Context, batch watch.Batch) error {
	regenerate := batch.Structural()
	if regenerate && slices.ContainsFunc(batch, func(c watch.Change) bool {
		return c.Path == config.ConfigFileName
	}) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s.cfg = cfg
	}
	return s.build(ctx, regenerate, false)
}

func (s *watchSession) build(ctx context.Context, regenerate, clean bool) error {
	var buildDir string
	if regenerate {
		res, err := generate(ctx, s.cfg, clean)
		if err != nil {
			return err
		}
		buildDir = res.BuildDir
	} else {
		buildDir = buildgen.NewGenerator(s.cfg).BuildDir()
	}

	if watchFlags.noBuild {
		return nil
	}
	log.Debug("running ninja", "dir", buildDir, "args", s.args)
	return runNinja(ctx, s.cmd, s.cfg, buildDir, s.args)
}

// watchDirs returns the distinct source and shader directories.
func watchDirs(cfg *config.Config) []string {
	dirs := []string{cfg.Project.SourceDir}
	if cfg.Project.ShaderDir != cfg.Project.SourceDir {
		dirs = append(dirs, cfg.Project.ShaderDir)
	}
	return dirs
}
