package root

import (
	"fmt"
	"io"

	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/ui"
)

func printOutcome(w io.Writer, out dispatch.Outcome) {
	fmt.Fprintf(w, "%s %s\n", ui.Applied(out.Applied), out.Action)
	for _, ev := range out.Events {
		fmt.Fprintln(w, ui.Gold.Render(ui.IconTrophy+" "+ev.Message()))
	}
	s := out.State
	fmt.Fprintf(w, "%s %s  %s %d  %s %d\n",
		ui.Key.Render("Health:"), fmt.Sprintf("%.1f", s.Health),
		ui.Key.Render("Level:"), s.SkillLevel,
		ui.Key.Render("Coins:"), s.Coins)
}
