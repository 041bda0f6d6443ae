package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

// validateCommand creates the validate command. Besides checking the
// document structure it reconciles every step, so identifier collisions
// surface before a render is attempted.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "validate [file]",
		Short:             "Check a document and reconcile every step",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocument,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := c.reconcileFile(cmd.Context(), args[0], nil)
			if err != nil {
				printError("%s is not valid", filepath.Base(args[0]))
				return err
			}

			nodes := 0
			for _, f := range frames {
				nodes = max(nodes, f.Stats.Nodes)
			}
			printSuccess("%s is valid", filepath.Base(args[0]))
			printKeyValue("Steps", strconv.Itoa(len(frames)))
			printKeyValue("Largest", fmt.Sprintf("%d nodes", nodes))
			printNewline()
			printNextStep("Render it", "exprtrail render "+args[0])
			return nil
		},
	}
}
