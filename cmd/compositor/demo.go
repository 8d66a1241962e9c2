package main

import (
	"os"
	"path/filepath"

	"github.com/aretw0/compositor/internal/cli"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/aretw0/compositor/pkg/session"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write the demo project",
	Long: `Writes the demo project (a solid generator feeding a viewer, plus an unwired image
input) as a document to stdout, to --out, or into the project store with --project.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := cli.DemoDocument()
		opts := projectOptions(cmd, args)

		if opts.Project != "" {
			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}
			store, locker, closeStore, err := cli.OpenStore(opts)
			if err != nil {
				return err
			}
			defer closeStore()

			mgrOpts := []session.Option{session.WithLogger(logger)}
			if locker != nil {
				mgrOpts = append(mgrOpts, session.WithLocker(locker))
			}
			if err := session.NewManager(store, mgrOpts...).Save(cmd.Context(), opts.Project, doc); err != nil {
				return err
			}
			cli.PrintSystemMessage(cmd.OutOrStdout(), "Saved demo as project '%s'", opts.Project)
			return nil
		}

		out, _ := cmd.Flags().GetString("out")
		data, err := schema.Marshal(doc, schema.FormatFromPath(out))
		if err != nil {
			return err
		}
		if out == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		cli.PrintSystemMessage(cmd.OutOrStdout(), "Wrote %s", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().String("out", "", "Document file to write (.yaml or .json)")
}

