package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/albertocavalcante/ninjagen/pkg/config"
	"github.com/spf13/cobra"
)

var initFlags struct {
	force      bool
	dryRun     bool
	executable string
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a ninjagen.toml with the default settings",
	Long: `Writes ninjagen.toml into the given directory (default: the current
directory) with every setting at its built-in default, ready to edit.

Use --dry-run to print the file instead of writing it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false,
		"Overwrite an existing ninjagen.toml")
	initCmd.Flags().BoolVar(&initFlags.dryRun, "dry-run", false,
		"Print the file instead of writing it")
	initCmd.Flags().StringVar(&initFlags.executable, "executable", "",
		"Executable name (defaults to learn-vulkan)")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	cfg := config.NewConfig()
	if initFlags.executable != "" {
		cfg.Project.Executable = initFlags.executable
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	content, err := initContent(cfg)
	if err != nil {
		return err
	}

	if initFlags.dryRun {
		_, err := cmd.OutOrStdout().Write(content)
		return err
	}

	target := filepath.Join(absPath, config.ConfigFileName)
	if !initFlags.force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", target)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
	return nil
}

func initContent(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# ninjagen project configuration.\n")
	buf.WriteString("# Paths are relative to the directory holding this file.\n\n")
	if err := config.Encode(&buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
