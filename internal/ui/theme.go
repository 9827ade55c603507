package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Habit tracker theme (CLI + TUI).

const (
	IconSparkle = "✨"
	IconDone    = "✅"
	IconTodo    = "▫️"
	IconTrophy  = "🏆"
	IconCoin    = "🪙"
	IconHeart   = "❤️"
	IconMoon    = "🌙"
	IconSun     = "☀️"
	IconBook    = "📖"
	IconInfo    = "ℹ️"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconScroll  = "📜"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// Check renders a once-per-period flag.
func Check(done bool) string {
	if done {
		return Good.Render("done")
	}
	return Muted.Render("-")
}

// Applied renders the outcome of a dispatch.
func Applied(ok bool) string {
	if ok {
		return Good.Render("applied")
	}
	return Warn.Render("no change")
}

// HealthText colours health by how close it is to burnout or level-up.
func HealthText(health, trigger float64) string {
	s := fmt.Sprintf("%.1f", health)
	switch {
	case health <= 0:
		return Bad.Render(s)
	case trigger > 0 && health/trigger >= 0.8:
		return Gold.Render(s)
	case health < 20:
		return Warn.Render(s)
	default:
		return s
	}
}

// ProgressBar draws value/total as a fixed-width ASCII bar.
func ProgressBar(value, total float64, width int) string {
	if total <= 0 {
		total = 1
	}
	if width <= 3 {
		width = 3
	}
	if value < 0 {
		value = 0
	}
	if value > total {
		value = total
	}
	filled := int(value / total * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
