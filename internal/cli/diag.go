package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"doc-recognizer/internal/diagnostics"
)

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Check that recognition can run on this machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := diagnostics.NewChecker().Run(application.settings, application.registry, application.engine)
		for _, item := range report.Items {
			cmd.Printf("[%s] %s: %s\n", item.Status, item.Name, item.Message)
			if item.Hint != "" {
				cmd.Printf("       hint: %s\n", item.Hint)
			}
		}
		if report.HasFailures {
			return fmt.Errorf("diagnostics failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagCmd)
}
