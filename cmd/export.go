package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/envfile"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/export"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/schedfile"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the host's unmanaged schedule entries as an ICS feed",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadOrchestrator()
	if err != nil {
		return err
	}

	entries, err := schedfile.ReadStrict(cfg.Paths.ScheduleFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cfg.Paths.ScheduleFile, err)
	}

	var unmanaged []model.Entry
	for _, e := range entries {
		if !schedfile.IsManaged(e) {
			unmanaged = append(unmanaged, e)
		}
	}

	tz := "UTC"
	var locale export.Locale
	if env, err := envfile.Read(cfg.Paths.EnvFile); err == nil {
		if env.HasTimezone() {
			tz = env.Timezone
		}
		if env.HasLocation() {
			locale = export.Locale{Latitude: env.Latitude, Longitude: env.Longitude}
		}
	}

	body, err := export.Build(unmanaged, tz, locale, time.Now())
	if err != nil {
		return fmt.Errorf("failed to build ICS export: %w", err)
	}

	_, err = fmt.Fprint(os.Stdout, body)
	return err
}
