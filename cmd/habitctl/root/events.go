package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweeney/habit-tracker/internal/ui"
)

func newEventsCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent badge and level-up notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, o)
			if err != nil {
				return err
			}
			defer cleanup()

			events, err := svc.store.RecentEvents(ctx, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconScroll, "Recent events"))
			if len(events) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("nothing yet"))
				return nil
			}
			loc := svc.cfg.Engine.Location
			for _, ev := range events {
				fmt.Fprintf(w, "- %s %s %s\n",
					ui.Muted.Render(ev.At.In(loc).Format("2006-01-02 15:04")),
					ev.Message(),
					ui.Muted.Render(fmt.Sprintf("(level %d)", ev.SkillLevel)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "How many events to show")

	return cmd
}
