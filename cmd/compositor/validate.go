package main

import (
	"fmt"

	"github.com/aretw0/compositor/internal/cli"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the project for consistency",
	Long: `Checks every node kind, config and parameter against the registered kinds, then
builds the graph to catch type mismatches, occupied inputs and cycles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runValidate(cmd, args); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, err := cli.LoadDocument(cmd.Context(), projectOptions(cmd, args))
	if err != nil {
		return err
	}

	reg := nodes.NewRegistry()
	if err := schema.Validate(doc, reg); err != nil {
		w := cmd.ErrOrStderr()
		for _, e := range schema.ValidationErrors(err) {
			fmt.Fprintf(w, "  - %v\n", e)
		}
		return err
	}

	// Structural checks need a real graph.
	if _, err := schema.Build(doc, reg); err != nil {
		return err
	}
	return nil
}
