// Package tui is the interactive terminal board for logging habits.
package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunBoard runs the board until the user quits.
func RunBoard(ctx context.Context, b Backend, out io.Writer) error {
	m := newBoardModel(ctx, b, time.Now)
	p := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
