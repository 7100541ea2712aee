package groundedgeo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/report"
	"github.com/spf13/cobra"
)

// validateCmd checks a dataset file and summarizes it.
var validateCmd = &cobra.Command{
	Use:   "validate [DATASET]",
	Short: "Validate a dataset and print query counts per split and bucket",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if cfg := GetConfig(); cfg != nil {
			path = cfg.Dataset
		}
		if len(args) == 1 {
			path = args[0]
		}
		if strings.TrimSpace(path) == "" {
			return errors.New("no dataset given (pass a path or set dataset in the config)")
		}

		ds, err := dataset.Load(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d queries, splits: %s\n\n", path, len(ds.Queries), strings.Join(ds.Splits(), ", "))
		return report.RenderCounts(out, ds)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
