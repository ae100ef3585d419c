package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qmx/sterna/internal/exportimport"
)

var restoreInput string

// restoreCmd replays an export document's records verbatim, bypassing
// merge/reconcile. It exists for restoring into a freshly purged (empty)
// repository, where there is no local state to reconcile against and the
// exported lamport/timestamps should be kept exactly as recorded.
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replay a TOML export document's issues and edges as-is",
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if restoreInput == "" || restoreInput == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(restoreInput)
		}
		if err != nil {
			return err
		}

		doc, err := exportimport.Decode(data)
		if err != nil {
			return err
		}

		for _, issue := range doc.Issues {
			if err := engine.SaveIssue(rootCtx, issue, "sterna: restore issue "+issue.ID); err != nil {
				return err
			}
		}
		for _, edge := range doc.Edges {
			if err := engine.SaveEdge(rootCtx, edge, "sterna: restore edge "+edge.Key()); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "restored %d issue(s), %d edge(s)\n", len(doc.Issues), len(doc.Edges))
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "read from file instead of stdin")
}
