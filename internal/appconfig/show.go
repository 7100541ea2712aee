package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Dataset:         %s\n", cfg.Dataset)
	fmt.Fprintf(out, "  Split:           %s\n", cfg.Split)
	fmt.Fprintf(out, "  Systems:         %s\n", strings.Join(cfg.Systems, ", "))
	fmt.Fprintf(out, "  Predicate:       %s\n", cfg.Predicate)
	fmt.Fprintf(out, "  Output Dir:      %s\n", cfg.OutputDir)
	fmt.Fprintf(out, "  History File:    %s\n", cfg.HistoryPath())
	fmt.Fprintf(out, "  Metrics File:    %s\n", cfg.MetricsFile)
	fmt.Fprintf(out, "  Log File:        %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Debug:           %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Verbose:         %v\n", cfg.Verbose)
	fmt.Fprintf(out, "  Fault Isolation: %v\n", cfg.FaultIsolation)
	fmt.Fprintf(out, "  Parallel:        %v\n", cfg.Parallel)
	if containsSystem(cfg.Systems, "llm") {
		fmt.Fprintf(out, "  LLM Base URL:    %s\n", cfg.LLM.BaseURL)
		fmt.Fprintf(out, "  LLM Model:       %s\n", cfg.LLM.ModelName())
		fmt.Fprintf(out, "  LLM Profile:     %s\n", cfg.LLM.Profile)
		fmt.Fprintf(out, "  LLM Timeout:     %s\n", cfg.LLM.RequestTimeout())
		fmt.Fprintf(out, "  LLM Retries:     %d\n", cfg.LLM.RetryAttempts())
		fmt.Fprintf(out, "  LLM Closed Book: %v\n", cfg.LLM.ClosedBook)
		fmt.Fprintf(out, "  LLM API Key Set: %v\n", cfg.LLM.ResolvedAPIKey() != "")
	}
}

func containsSystem(systems []string, name string) bool {
	for _, s := range systems {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}
