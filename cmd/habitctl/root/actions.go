package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/ui"
)

// dispatchAction opens the store, applies a and prints the outcome.
func dispatchAction(cmd *cobra.Command, o *options, a stats.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	ctx := context.Background()
	svc, cleanup, err := openService(ctx, o)
	if err != nil {
		return err
	}
	defer cleanup()

	printOutcome(cmd.OutOrStdout(), svc.disp.Dispatch(ctx, a, o.now()))
	return nil
}

func exactlyOne(what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func newLogCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <activity>",
		Short: "Log a habit by activity name (morning_prayer, scripture, kindness, church, ...)",
		Args:  exactlyOne("activity"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ok := stats.ParseActivity(args[0])
			if !ok {
				return fmt.Errorf("unknown activity %q", args[0])
			}
			return dispatchAction(cmd, o, a)
		},
	}

	return cmd
}

func newWeeklyCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weekly <church|mutual|temple>",
		Short: "Log weekly attendance",
		Args:  exactlyOne("kind"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchAction(cmd, o, stats.LogWeekly(stats.WeeklyKind(strings.ToLower(args[0]))))
		},
	}

	return cmd
}

func newBadgeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badge <id>",
		Short: "Grant a badge",
		Args:  exactlyOne("badge id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchAction(cmd, o, stats.GrantBadge(args[0]))
		},
	}

	return cmd
}

func newSpendCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spend <coins>",
		Short: "Spend coins",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("amount is required")
			}
			if _, err := strconv.Atoi(args[0]); err != nil {
				return errors.New("amount must be an integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := strconv.Atoi(args[0])
			return dispatchAction(cmd, o, stats.SpendCoins(n))
		},
	}

	return cmd
}

func newSleepCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Start or end a sleep session",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Go to sleep",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return dispatchAction(cmd, o, stats.Action{Type: stats.ActionStartSleep})
			},
		},
		&cobra.Command{
			Use:   "end",
			Short: "Wake up",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return dispatchAction(cmd, o, stats.Action{Type: stats.ActionEndSleep})
			},
		},
	)

	return cmd
}

func newResetCmd(o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all progress and start over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			if err := dispatchAction(cmd, o, stats.Action{Type: stats.ActionResetAll}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconWarn+" all progress erased"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	return cmd
}
