package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qmx/sterna/internal/exportimport"
)

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the snapshot as a TOML export document",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := exportimport.Export(rootCtx, engine, now())
		if err != nil {
			return err
		}
		data, err := exportimport.Encode(doc)
		if err != nil {
			return err
		}
		if exportPath == "" || exportPath == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		return os.WriteFile(exportPath, data, 0o644)
	},
}

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Reconcile a TOML export document into the snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if importPath == "" || importPath == "-" {
			data, err = readAllStdin()
		} else {
			data, err = os.ReadFile(importPath)
		}
		if err != nil {
			return err
		}

		summary, err := exportimport.Import(rootCtx, engine, data, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "issues: %d inserted, %d replaced, %d kept\n",
			summary.IssuesInserted, summary.IssuesReplaced, summary.IssuesKept)
		fmt.Fprintf(cmd.OutOrStdout(), "edges: %d inserted, %d already known, %d skipped (would create a cycle)\n",
			summary.EdgesInserted, summary.EdgesAlreadyKnown, len(summary.EdgesSkippedCycle))
		return nil
	},
}

var pullRemote string

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the remote snapshot and merge it into the local one",
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := pullRemote
		if remote == "" {
			remote = cfg.Remote
		}
		outcome, err := engine.Pull(rootCtx, remote)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "issues: %d inserted, %d replaced, %d kept\n",
			outcome.IssuesInserted, outcome.IssuesReplaced, outcome.IssuesKept)
		fmt.Fprintf(cmd.OutOrStdout(), "edges: %d inserted, %d already known, %d skipped (would create a cycle)\n",
			outcome.EdgesInserted, outcome.EdgesAlreadyKnown, len(outcome.EdgesSkippedCycle))
		return nil
	},
}

var pushRemote string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the local snapshot reference to a remote",
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := pushRemote
		if remote == "" {
			remote = cfg.Remote
		}
		if err := engine.Push(rootCtx, remote); err != nil {
			return err
		}
		cmd.Println("pushed refs/sterna/snapshot")
		return nil
	},
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "write to file instead of stdout")
	importCmd.Flags().StringVarP(&importPath, "input", "i", "", "read from file instead of stdin")
	pullCmd.Flags().StringVar(&pullRemote, "remote", "", "remote name (default: config remote, else origin)")
	pushCmd.Flags().StringVar(&pushRemote, "remote", "", "remote name (default: config remote, else origin)")
}
