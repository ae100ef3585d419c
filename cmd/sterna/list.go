package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmx/sterna/internal/query"
	"github.com/qmx/sterna/internal/types"
	"github.com/qmx/sterna/internal/validation"
)

func printIssues(cmd *cobra.Command, issues []types.Issue) {
	for _, issue := range issues {
		claimed := ""
		if issue.Claimed {
			claimed = " claimed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tP%d%s\t%s\n",
			issue.ID, issue.Status, issue.Type, issue.Priority, claimed, issue.Title)
	}
}

var (
	listStatus string
	listType   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues, optionally filtered by status and type",
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := engine.LoadIssues(rootCtx)
		if err != nil {
			return err
		}

		var filter query.Filter
		if listStatus != "" {
			status := types.Status(listStatus)
			if !status.Valid() {
				return fmt.Errorf("sterna: invalid status %q", listStatus)
			}
			filter.Status = &status
		}
		if listType != "" {
			issueType, err := validation.ParseIssueType(listType)
			if err != nil {
				return err
			}
			filter.Type = &issueType
		}

		printIssues(cmd, query.List(issues, filter))
		return nil
	},
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List issues that are open, unclaimed, and unblocked",
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := engine.LoadIssues(rootCtx)
		if err != nil {
			return err
		}
		edges, err := engine.LoadEdges(rootCtx)
		if err != nil {
			return err
		}
		printIssues(cmd, query.Ready(issues, edges))
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id-prefix>",
	Short: "Show a single issue resolved by identifier prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := engine.LoadIssues(rootCtx)
		if err != nil {
			return err
		}
		issue, err := query.Get(issues, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "id: %s\ntitle: %s\nstatus: %s\npriority: P%d\ntype: %s\nlabels: %v\neditor: %s\nlamport: %d\n",
			issue.ID, issue.Title, issue.Status, issue.Priority, issue.Type, issue.Labels, issue.Editor, issue.Lamport)
		if issue.Description != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "description: %s\n", issue.Description)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status: open, in_progress, closed")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by type: epic, task, bug, feature, chore")
}
