package main

import "github.com/spf13/cobra"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the snapshot reference in the current repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.Initialize(rootCtx); err != nil {
			return err
		}
		cmd.Println("initialized refs/sterna/snapshot")
		return nil
	},
}
