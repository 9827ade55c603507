package root

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/ui"
)

func newStatusCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health, level, coins and this period's habits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, o)
			if err != nil {
				return err
			}
			defer cleanup()

			now := o.now()
			s := svc.disp.Advance(ctx, now).State
			trigger := svc.cfg.Engine.LevelTrigger
			w := cmd.OutOrStdout()

			fmt.Fprintln(w, ui.Heading(ui.IconSparkle, "Habit Stats"))
			fmt.Fprintln(w, ui.LabelValue("Level", s.SkillLevel))
			fmt.Fprintln(w, ui.LabelValue("Health", fmt.Sprintf("%s / %.0f %s",
				ui.HealthText(s.Health, trigger), trigger, ui.ProgressBar(s.Health, trigger, 20))))
			fmt.Fprintln(w, ui.LabelValue("Coins", s.Coins))
			if len(s.Badges) == 0 {
				fmt.Fprintln(w, ui.LabelValue("Badges", ui.Muted.Render("none yet")))
			} else {
				fmt.Fprintln(w, ui.LabelValue("Badges", strings.Join(s.Badges, ", ")))
			}
			fmt.Fprintln(w, "")

			dayKey := stats.DayKeyFor(now)
			day := s.Day(dayKey)
			fmt.Fprintln(w, ui.H2.Render(fmt.Sprintf("%s Today (%s)", ui.IconSun, dayKey)))
			fmt.Fprintf(w, "- %s %s\n", ui.Key.Render("Morning prayer:"), ui.Check(day.MorningPrayer))
			fmt.Fprintf(w, "- %s %s\n", ui.Key.Render("Evening prayer:"), ui.Check(day.EveningPrayer))
			fmt.Fprintf(w, "- %s %s\n", ui.Key.Render("Scripture:"), ui.Check(day.Scripture))
			fmt.Fprintf(w, "- %s %d\n", ui.Key.Render("Kindness:"), day.KindnessCount)
			fmt.Fprintln(w, "")

			weekKey := stats.WeekKeyFor(now)
			week := s.Week(weekKey)
			fmt.Fprintln(w, ui.H2.Render(fmt.Sprintf("%s This week (%s)", ui.IconBook, weekKey)))
			fmt.Fprintf(w, "- %s %s\n", ui.Key.Render("Church:"), ui.Check(week.Church))
			fmt.Fprintf(w, "- %s %s\n", ui.Key.Render("Mutual:"), ui.Check(week.Mutual))
			fmt.Fprintf(w, "- %s %s\n", ui.Key.Render("Temple:"), ui.Check(week.Temple))
			fmt.Fprintln(w, "")

			fmt.Fprintln(w, ui.H2.Render(ui.IconMoon+" Sleep"))
			switch {
			case s.Sleep.Open():
				fmt.Fprintf(w, "- asleep since %s\n", s.Sleep.CurrentStart.In(svc.cfg.Engine.Location).Format("Mon 15:04"))
			case s.Sleep.LastSessionDuration > 0:
				fmt.Fprintf(w, "- last session %s %s\n", s.Sleep.LastSessionDuration.Round(time.Second),
					ui.Muted.Render("("+string(s.Sleep.LastSessionDayKey)+")"))
			default:
				fmt.Fprintln(w, "- "+ui.Muted.Render("no sessions yet"))
			}
			fmt.Fprintln(w, "")

			fmt.Fprintln(w, ui.H2.Render("🔥 Streaks"))
			fmt.Fprintf(w, "- morning prayer %d, evening prayer %d, scripture %d\n",
				s.Streaks.MorningPrayer, s.Streaks.EveningPrayer, s.Streaks.Scripture)
			return nil
		},
	}

	return cmd
}
