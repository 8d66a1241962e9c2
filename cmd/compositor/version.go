package main

import (
	"fmt"

	"github.com/aretw0/compositor"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of compositor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "compositor version %s\n", compositor.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
