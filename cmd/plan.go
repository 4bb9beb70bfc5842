package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/api"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the create/update/delete set without touching schedule.json",
	RunE:  runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	o, _, err := loadOrchestrator()
	if err != nil {
		return err
	}

	status := api.BuildPlanStatus(o.Plan())
	return printJSON(status)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}
