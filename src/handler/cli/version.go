package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"redundancy-analyzer/src/service/detector"
)

var detectorDescriptions = map[string]string{
	"similarity":       "Exact and near duplicate modules, consolidated per group",
	"unused_code":      "Modules no other module references",
	"abandoned_tables": "Schema tables without repository, CRUD or usage",
}

func (h *Handler) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", h.cfg.Agent.Name, h.cfg.Agent.Version)
		},
	}
}

func (h *Handler) detectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detectors",
		Short: "List available detectors",
		Run: func(cmd *cobra.Command, args []string) {
			runner := detector.NewRunner(h.cfg)
			fmt.Println("Available detectors:")
			for _, name := range runner.ListDetectors() {
				status := "enabled"
				if d := runner.GetDetector(name); d == nil || !d.IsEnabled() {
					status = "disabled"
				}
				fmt.Printf("  - %-17s: %s (%s)\n", name, detectorDescriptions[name], status)
			}
		},
	}
}
