package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "visionbench",
		Short: "Scoring engine for computer-vision benchmark competitions",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "visionbench.yaml", "config file path")
	root.AddCommand(newScoreCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	return root
}
