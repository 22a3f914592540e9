package cmd

import (
	"fmt"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/dataset"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [prediction.csv]",
		Short: "Check a prediction file against a competition's schema",
		Long:  "Parse and validate a prediction file without computing any metrics, reporting the same row and column errors a scoring run would.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			comp, err := cfg.Find(flagValidateCompetition)
			if err != nil {
				return err
			}

			path := args[0]
			opts := dataset.Options{MaxRows: cfg.Limits.MaxRows, Strict: cfg.Limits.StrictColumns}

			switch comp.TaskType {
			case config.TaskClassification:
				records, err := dataset.ParseClassification(path, opts)
				if err != nil {
					return fmt.Errorf("invalid prediction file: %w", err)
				}
				fmt.Printf("OK: %d classification rows\n", len(records))
			case config.TaskDetection:
				opts.RequireConfidence = true
				records, err := dataset.ParseDetection(path, opts)
				if err != nil {
					return fmt.Errorf("invalid prediction file: %w", err)
				}
				fmt.Printf("OK: %d detection rows\n", len(records))
			case config.TaskSegmentation:
				records, dups, err := dataset.ParseSegmentation(path, opts)
				if err != nil {
					return fmt.Errorf("invalid prediction file: %w", err)
				}
				fmt.Printf("OK: %d segmentation rows", len(records))
				if len(dups) > 0 {
					fmt.Printf(" (%d duplicate rows will be ignored)", len(dups))
				}
				fmt.Println()
			case config.TaskCustom:
				return fmt.Errorf("competition %q uses a custom scoring script; schema validation is up to the script", comp.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagValidateCompetition, "competition", "", "competition id (required)")
	cmd.MarkFlagRequired("competition")
	return cmd
}

var flagValidateCompetition string
