package cmd

import (
	"github.com/spf13/cobra"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/api"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Run one reconciliation pass, writing schedule.json unless dry-run is configured",
	RunE:  runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	o, _, err := loadOrchestrator()
	if err != nil {
		return err
	}

	result := api.BuildApplyResult(o.Apply())
	return printJSON(result)
}
