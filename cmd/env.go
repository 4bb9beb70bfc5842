package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/envfile"
)

var (
	envTimezone string
	envLat      float64
	envLon      float64
	envSource   string
)

// envCmd only knows how to re-serialize and validate an already-discovered
// environment. The actual latitude/longitude/timezone discovery is an
// external helper; this command's flags are that helper's handoff point.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Write fpp-env.json from an already-discovered locale",
	RunE:  runEnv,
}

func init() {
	envCmd.Flags().StringVar(&envTimezone, "timezone", "", "IANA timezone name")
	envCmd.Flags().Float64Var(&envLat, "latitude", 0, "Latitude in decimal degrees")
	envCmd.Flags().Float64Var(&envLon, "longitude", 0, "Longitude in decimal degrees")
	envCmd.Flags().StringVar(&envSource, "source", "manual", "How the locale was discovered")
}

func runEnv(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadOrchestrator()
	if err != nil {
		return err
	}

	env := envfile.Env{
		SchemaVersion: 1,
		Source:        envSource,
		Timezone:      envTimezone,
		Latitude:      envLat,
		Longitude:     envLon,
	}

	ok, warnings := envfile.Validate(env)
	env.OK = ok
	if !ok {
		env.Error = warnings[0]
	}

	if err := envfile.Write(cfg.Paths.EnvFile, env); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if !ok {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, w)
		}
		os.Exit(1)
	}

	return nil
}
