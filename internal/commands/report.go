package groundedgeo

import (
	"github.com/mwiater/groundedgeo/internal/harness"
	"github.com/mwiater/groundedgeo/internal/report"
	"github.com/spf13/cobra"
)

// reportCmd renders stored snapshots and history files side by side.
var reportCmd = &cobra.Command{
	Use:   "report FILE...",
	Short: "Render saved metrics snapshots (.json) or history files (.jsonl)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var snapshots []*harness.EvalMetrics
		for _, path := range args {
			loaded, err := report.ReadSnapshots(path)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, loaded...)
		}

		out := cmd.OutOrStdout()
		if err := report.Render(out, snapshots...); err != nil {
			return err
		}
		if compliance, _ := cmd.Flags().GetBool("compliance"); compliance {
			for _, m := range snapshots {
				if err := report.RenderCompliance(out, m); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("compliance", false, "also print the compliance counters of every snapshot")
}
