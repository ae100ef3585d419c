package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qmx/sterna/internal/exportimport"
)

var (
	purgeYes      bool
	purgeNoBackup bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete refs/sterna/snapshot, after writing a backup export",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeNoBackup {
			doc, err := exportimport.Export(rootCtx, engine, now())
			if err != nil {
				return err
			}
			data, err := exportimport.Encode(doc)
			if err != nil {
				return err
			}
			backupPath := fmt.Sprintf("sterna-backup-%d.toml", now().Unix())
			if err := os.WriteFile(backupPath, data, 0o644); err != nil {
				return fmt.Errorf("sterna: write backup: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported backup to %s\n", backupPath)
		}

		if !purgeYes {
			fmt.Fprint(cmd.ErrOrStderr(), "This will remove all sterna data. Continue? [y/N] ")
			reader := bufio.NewReader(cmd.InOrStdin())
			line, _ := reader.ReadString('\n')
			if !strings.EqualFold(strings.TrimSpace(line), "y") {
				cmd.PrintErrln("aborted")
				return nil
			}
		}

		if err := engine.DeleteSnapshot(rootCtx); err != nil {
			return err
		}
		cmd.PrintErrln("removed refs/sterna/snapshot")
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "skip the confirmation prompt")
	purgeCmd.Flags().BoolVar(&purgeNoBackup, "no-backup", false, "skip writing a backup export before deleting")
}
