package cli

import (
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/exprtrail/pkg/player"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// playCommand creates the play command, an interactive terminal viewer
// that reconciles each selected step against the one on screen.
func (c *CLI) playCommand() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Step through a rewrite trace interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("debounce") {
				delay = c.Config.Play.Debounce.Duration
			}
			doc, err := typez.ReadFile(args[0])
			if err != nil {
				return err
			}

			// The alternate screen owns the terminal, so the player stays silent.
			updates := make(chan player.Update, 1)
			p, err := player.New(doc, latestSink(updates), player.Debounced(delay))
			if err != nil {
				return err
			}

			model := NewPlayModel(filepath.Base(args[0]), p, updates)
			prog := tea.NewProgram(model, tea.WithContext(cmd.Context()), tea.WithAltScreen())
			if _, err := prog.Run(); err != nil {
				return fmt.Errorf("player: %w", err)
			}
			return nil
		},
	}
	cmd.ValidArgsFunction = completeDocument

	cmd.Flags().DurationVar(&delay, "debounce", 150*time.Millisecond, "wait this long after the last key before reconciling (0 disables)")
	return cmd
}
