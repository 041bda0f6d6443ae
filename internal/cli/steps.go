package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/exprtrail/pkg/observability"
	"github.com/matzehuels/exprtrail/pkg/pipeline"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// stepSummary is the machine-readable row printed by steps --json.
type stepSummary struct {
	typez.Step
	Stats   observability.StepStats `json:"stats"`
	Added   []string                `json:"added"`
	Removed []string                `json:"removed"`
}

// stepsCommand creates the steps command, which reconciles every step and
// prints a summary of what each rewrite changed.
func (c *CLI) stepsCommand() *cobra.Command {
	var asJSON bool
	var stepsStr string

	cmd := &cobra.Command{
		Use:   "steps [file]",
		Short: "Summarize every rewrite step of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := pipeline.ParseSteps(stepsStr)
			if err != nil {
				return err
			}
			frames, err := c.reconcileFile(cmd.Context(), args[0], steps)
			if err != nil {
				return err
			}
			if asJSON {
				return writeStepsJSON(cmd.OutOrStdout(), frames)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stepsTable(frames))
			return nil
		},
	}
	cmd.ValidArgsFunction = completeDocument

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().StringVar(&stepsStr, "steps", "", "steps to reconcile, e.g. 0,2,5 or 1-4 (default all)")
	return cmd
}

// reconcileFile loads path and reconciles the selected steps in order.
func (c *CLI) reconcileFile(ctx context.Context, path string, steps []int) ([]pipeline.Frame, error) {
	doc, err := typez.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	opts := pipeline.Options{Steps: steps}
	selection, err := opts.Selection(len(doc.Steps()))
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(nil, nil, loggerFromContext(ctx))
	return runner.Reconcile(ctx, doc, selection)
}

func writeStepsJSON(w io.Writer, frames []pipeline.Frame) error {
	rows := make([]stepSummary, len(frames))
	for i, f := range frames {
		rows[i] = stepSummary{
			Step:    f.Step,
			Stats:   f.Stats,
			Added:   orEmpty(f.Diff.AddedNodes),
			Removed: orEmpty(f.Diff.RemovedNodes),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// stepsTable renders frames as a bordered table, one row per step.
func stepsTable(frames []pipeline.Frame) string {
	rows := make([][]string, len(frames))
	for i, f := range frames {
		label := f.Step.Label
		if label == "" {
			label = "—"
		}
		rows[i] = []string{
			strconv.Itoa(f.Step.Index),
			f.Step.Rule,
			label,
			f.Step.Node,
			strconv.Itoa(f.Stats.Nodes),
			strconv.Itoa(f.Stats.Edges),
			"+" + strconv.Itoa(len(f.Diff.AddedNodes)),
			"-" + strconv.Itoa(len(f.Diff.RemovedNodes)),
			strconv.Itoa(f.Stats.Minted),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Rule", "Label", "Root", "Nodes", "Edges", "Added", "Removed", "Minted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle.Padding(0, 1)
			case col == 6:
				return cell.Foreground(colorGreen)
			case col == 7:
				return cell.Foreground(colorRed)
			case col == 0 || col >= 4:
				return cell.Foreground(colorCyan)
			}
			return cell
		})
	return t.Render()
}
