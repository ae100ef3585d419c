package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmx/sterna/internal/snapshot"
	"github.com/qmx/sterna/internal/validation"
)

var claimContext string

var claimCmd = &cobra.Command{
	Use:   "claim <id>",
	Short: "Claim an issue (status -> in_progress)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := engine.Claim(rootCtx, args[0], claimContext, editorIdentity, now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s claimed\n", issue.ID)
		return nil
	},
}

var releaseReason string

var releaseCmd = &cobra.Command{
	Use:   "release <id>",
	Short: "Release a claimed issue (status -> open)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := engine.Release(rootCtx, args[0], releaseReason, editorIdentity, now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s released\n", issue.ID)
		return nil
	},
}

var closeReason string

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := engine.Close(rootCtx, args[0], closeReason, editorIdentity, now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s closed\n", issue.ID)
		return nil
	},
}

var reopenReason string

var reopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a closed issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := engine.Reopen(rootCtx, args[0], reopenReason, editorIdentity, now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s reopened\n", issue.ID)
		return nil
	},
}

var (
	updateTitle       string
	updateDescription string
	updatePriority    string
	updateType        string
	updateLabels      []string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update title, description, priority, type, or labels on an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fields snapshot.UpdateFields
		if cmd.Flags().Changed("title") {
			fields.Title = &updateTitle
		}
		if cmd.Flags().Changed("description") {
			fields.Description = &updateDescription
		}
		if cmd.Flags().Changed("priority") {
			priority, err := validation.ParsePriority(updatePriority)
			if err != nil {
				return err
			}
			fields.Priority = &priority
		}
		if cmd.Flags().Changed("type") {
			issueType, err := validation.ParseIssueType(updateType)
			if err != nil {
				return err
			}
			fields.Type = &issueType
		}
		if cmd.Flags().Changed("label") {
			fields.Labels = &updateLabels
		}

		issue, err := engine.Update(rootCtx, args[0], fields, editorIdentity, now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", issue.ID)
		return nil
	},
}

func init() {
	claimCmd.Flags().StringVar(&claimContext, "context", "", "free-text claim context, e.g. a branch name")
	releaseCmd.Flags().StringVar(&releaseReason, "reason", "", "reason recorded on release")
	closeCmd.Flags().StringVar(&closeReason, "reason", "", "reason recorded on close")
	reopenCmd.Flags().StringVar(&reopenReason, "reason", "", "reason recorded on reopen")

	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVar(&updateDescription, "description", "", "new description")
	updateCmd.Flags().StringVar(&updatePriority, "priority", "", "new priority: 0-4 or P0-P4")
	updateCmd.Flags().StringVar(&updateType, "type", "", "new issue type")
	updateCmd.Flags().StringSliceVar(&updateLabels, "label", nil, "replace labels (repeatable)")
}
