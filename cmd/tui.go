package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tidaldj/internal/player"
	"github.com/desertthunder/tidaldj/internal/shared"
	"github.com/desertthunder/tidaldj/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive deck interface.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/tdj-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	mixer := player.NewMixer(nil)
	model := ui.NewModel(ctx, r.tidal, mixer)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
