package cmd

import (
	"github.com/spf13/cobra"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/api"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore schedule.json to the previous manifest snapshot",
	RunE:  runRollback,
}

func runRollback(cmd *cobra.Command, args []string) error {
	o, _, err := loadOrchestrator()
	if err != nil {
		return err
	}

	result := api.BuildRollbackResult(o.Rollback())
	return printJSON(result)
}
