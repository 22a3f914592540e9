package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/report"
	"github.com/spf13/cobra"
)

var (
	flagFormat        string
	flagRevealPrivate bool
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Generate a leaderboard from stored results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			runDir := filepath.Join(cfg.Results.Dir, "latest")
			if len(args) > 0 {
				runDir = args[0]
			}
			resolved, err := filepath.EvalSymlinks(runDir)
			if err != nil {
				return fmt.Errorf("resolving run dir: %w", err)
			}
			return report.Generate(resolved, report.Options{
				Format:        flagFormat,
				RevealPrivate: flagRevealPrivate,
			}, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().BoolVar(&flagRevealPrivate, "reveal-private", false, "include private scores (after competition close)")
	return cmd
}
