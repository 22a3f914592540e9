package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/result"
	"github.com/sightlab/visionbench/internal/runner"
	"github.com/spf13/cobra"
)

var (
	flagCompetition string
	flagSubmission  string
	flagParallel    int
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [prediction.csv ...]",
		Short: "Score prediction files against a competition",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScore,
	}
	cmd.Flags().StringVar(&flagCompetition, "competition", "", "competition id (required)")
	cmd.Flags().StringVar(&flagSubmission, "submission", "", "submission id (defaults to the prediction file name)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max concurrent scoring runs")
	cmd.MarkFlagRequired("competition")
	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	comp, err := cfg.Find(flagCompetition)
	if err != nil {
		return err
	}
	if flagSubmission != "" && len(args) > 1 {
		return fmt.Errorf("--submission cannot be combined with multiple prediction files")
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	ctx := context.Background()

	var attempts []*runner.SubmissionOpts
	for _, predictionPath := range args {
		submissionID := flagSubmission
		if submissionID == "" {
			submissionID = submissionName(predictionPath)
		}
		fmt.Printf("Scoring %s as %s/%s...\n", predictionPath, comp.ID, submissionID)
		attempts = append(attempts, &runner.SubmissionOpts{
			Competition:    comp,
			Limits:         cfg.Limits,
			Sandbox:        cfg.Sandbox,
			SubmissionID:   submissionID,
			PredictionPath: predictionPath,
			RunDir:         runDir,
		})
	}
	runner.ScoreAll(ctx, flagParallel, attempts, func(opts *runner.SubmissionOpts, res *result.ScoreResult) {
		if res.Status == result.StatusSuccess {
			fmt.Printf("  %s: %.6f (attempt %s)\n", opts.SubmissionID, res.PublicScore, res.AttemptID)
		} else {
			fmt.Printf("  %s: FAILED: %s\n", opts.SubmissionID, res.Error.Message)
		}
	})
	return nil
}

func submissionName(predictionPath string) string {
	base := filepath.Base(predictionPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
