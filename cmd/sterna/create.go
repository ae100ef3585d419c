package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qmx/sterna/internal/types"
	"github.com/qmx/sterna/internal/validation"
)

var (
	createDescription string
	createPriority    string
	createType        string
	createLabels      []string
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := args[0]

		priority, err := validation.ParsePriority(createPriority)
		if err != nil {
			return err
		}
		issueType, err := validation.ParseIssueType(createType)
		if err != nil {
			return err
		}

		if validation.IsTestIssueTitle(title) {
			cmd.PrintErrln("warning: creating an issue with a test-looking title")
		}
		if strings.TrimSpace(createDescription) == "" {
			cmd.PrintErrln("warning: creating an issue without a description")
		}

		issue, err := engine.CreateIssue(rootCtx, title, createDescription, editorIdentity, issueType, priority, createLabels, now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", issue.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createDescription, "description", "", "issue description")
	createCmd.Flags().StringVar(&createPriority, "priority", "2", "priority: 0-4 or P0-P4 (default medium)")
	createCmd.Flags().StringVar(&createType, "type", string(types.TypeTask), "issue type: epic, task, bug, feature, chore")
	createCmd.Flags().StringSliceVar(&createLabels, "label", nil, "label (repeatable)")
}
