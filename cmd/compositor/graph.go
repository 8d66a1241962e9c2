package main

import (
	"fmt"

	"github.com/aretw0/compositor/internal/cli"
	"github.com/aretw0/compositor/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [dir]",
	Short: "Export the node graph visualization",
	Long:  `Reads the project and outputs a Mermaid diagram (graph LR) of its nodes and edges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := cli.LoadDocument(cmd.Context(), projectOptions(cmd, args))
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if target, _ := cmd.Flags().GetString("node"); target != "" {
			overlay = &graph.GraphOverlay{Target: target}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("node", "", "Highlight this node")
}
