package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmx/sterna/internal/validation"
)

var addEdgeCmd = &cobra.Command{
	Use:   "add <source> <type> <target>",
	Short: "Add a directed edge between two issues",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		edgeType, err := validation.ParseEdgeType(args[1])
		if err != nil {
			return err
		}
		edge, err := engine.AddEdge(rootCtx, args[0], args[2], edgeType, now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -%s-> %s\n", edge.Source, edge.Type, edge.Target)
		return nil
	},
}

var removeEdgeCmd = &cobra.Command{
	Use:   "remove <source> <type> <target>",
	Short: "Remove a directed edge between two issues",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		edgeType, err := validation.ParseEdgeType(args[1])
		if err != nil {
			return err
		}
		removed, err := engine.RemoveEdge(rootCtx, args[0], args[2], edgeType)
		if err != nil {
			return err
		}
		if removed {
			cmd.Println("removed")
		} else {
			cmd.Println("no matching edge")
		}
		return nil
	},
}
