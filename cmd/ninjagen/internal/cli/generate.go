package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var generateFlags struct {
	clean bool
}

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Write build.ninja without running ninja",
	Long: `Resolves dependency flags, discovers sources and shaders, and writes
<build_dir>/build.ninja. The file is left untouched when its content would
not change.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVarP(&generateFlags.clean, "clean", "c", false,
		"Remove the build directory before generating")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	res, err := generate(cmd.Context(), cfg, generateFlags.clean)
	if err != nil {
		return err
	}

	path := res.GraphPath
	if rel, err := filepath.Rel(cfg.Root, path); err == nil {
		path = rel
	}
	out := cmd.OutOrStdout()
	if res.Changed {
		fmt.Fprintf(out, "wrote %s (%d steps)\n", path, len(res.Graph.Steps))
	} else {
		fmt.Fprintf(out, "%s is up to date\n", path)
	}
	return nil
}
