package cmd

import (
	"fmt"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured competitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Println("Competitions:")
			for _, c := range cfg.Competitions {
				fmt.Printf("  - %s: %s [%s/%s]\n", c.ID, c.Name, c.TaskType, c.MetricType)
				if c.PrivateGroundTruth != "" {
					fmt.Printf("      private split: %s\n", c.PrivateGroundTruth)
				}
			}
			return nil
		},
	}
}
