package root

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sweeney/habit-tracker/internal/tui"
)

func newBoardCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the TUI board",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, o)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.RunBoard(ctx, svc.disp, cmd.OutOrStdout())
		},
	}

	return cmd
}
