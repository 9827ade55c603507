package root

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/habit-tracker/internal/ui"
)

const Version = "0.9.0"

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	dbPath     string
	store      string
	logMode    string

	now func() time.Time
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "habitctl",
		Short:         "Habit tracker: log habits and check your progress",
		Long:          "habitctl logs daily and weekly habits against the local stats store and shows health, level, coins and badges.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	f := rootCmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "YAML config file (optional)")
	f.StringVar(&o.dbPath, "db", "", "SQLite database path (overrides config)")
	f.StringVar(&o.store, "store", "", "State store: sqlite, redis or memory (overrides config)")
	f.StringVar(&o.logMode, "log-mode", "quiet", "Log mode: dev, prod or quiet")

	rootCmd.AddCommand(
		newStatusCmd(o),
		newLogCmd(o),
		newWeeklyCmd(o),
		newBadgeCmd(o),
		newSpendCmd(o),
		newSleepCmd(o),
		newResetCmd(o),
		newEventsCmd(o),
		newBoardCmd(o),
	)
	return rootCmd
}

func Execute() {
	o := &options{now: time.Now}
	if err := newRootCmd(o).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
