package groundedgeo

import (
	"fmt"
	"strings"

	"github.com/mwiater/groundedgeo/internal/baselines"
	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
	"github.com/spf13/cobra"
)

// listCmd represents the 'list' command group.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Group commands for listing resources",
}

var listSystemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "List the systems that can be evaluated",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, name := range baselines.Names() {
			fmt.Fprintf(out, "  %-10s %s\n", name, baselines.Describe(name))
		}
	},
}

var listBucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List the hard-case buckets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, b := range dataset.KnownBuckets() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", b)
		}
	},
}

var listPredicatesCmd = &cobra.Command{
	Use:   "predicates",
	Short: "List the correctness predicates",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range harness.PredicateNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
		}
	},
}

// listCommandsCmd prints the available commands and subcommands in a
// hierarchical, indented, two-column format.
var listCommandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List all commands and subcommands in two columns",
	Run: func(cmd *cobra.Command, args []string) {
		commandData := collectCommandData(rootCmd, "", "")
		filtered := make([]CommandInfo, 0, len(commandData))
		for _, data := range commandData {
			if strings.Contains(data.Path, "completion") || strings.Contains(data.Path, "help") {
				continue
			}
			filtered = append(filtered, data)
		}
		ListCommands(cmd.OutOrStdout(), filtered)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.AddCommand(listSystemsCmd, listBucketsCmd, listPredicatesCmd, listCommandsCmd)
}
