package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/compositor"
	"github.com/aretw0/compositor/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "compositor",
	Short: "Compositor is a node-graph image compositing engine",
	Long: `Compositor evaluates directed acyclic graphs of typed nodes (generators, math,
switches and viewers) at rational points in time, caching results per node.

Projects are read from a directory with one Markdown/YAML/JSON file per node,
from a single YAML/JSON document, or from a project store (files or Redis).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("dir", ".", "Project directory (one file per node) or a .yaml/.json document")
	pf.Bool("demo", false, "Use the built-in demo project")
	pf.String("project", "", "Project ID to open from the project store")
	pf.String("store-dir", "", "File project store location (default .compositor/projects)")
	pf.String("redis-addr", "", "Redis address for the project store and distributed locks")
	pf.String("log-level", "", "Log level: debug, info, warn or error (default off)")
	pf.Int("parallel", 0, "Evaluate independent nodes with up to N goroutines")
}

// projectOptions reads the persistent flags. A positional argument overrides --dir when
// --dir was not given explicitly.
func projectOptions(cmd *cobra.Command, args []string) cli.Options {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	if !flags.Changed("dir") && len(args) > 0 {
		dir = args[0]
	}
	demo, _ := flags.GetBool("demo")
	project, _ := flags.GetString("project")
	storeDir, _ := flags.GetString("store-dir")
	redisAddr, _ := flags.GetString("redis-addr")
	parallel, _ := flags.GetInt("parallel")
	return cli.Options{
		Dir:       dir,
		Demo:      demo,
		Project:   project,
		StoreDir:  storeDir,
		RedisAddr: redisAddr,
		Parallel:  parallel,
	}
}

func commandLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return cli.NewLogger(level)
}

// openWorkspace opens the project selected by the flags.
func openWorkspace(ctx context.Context, cmd *cobra.Command, args []string, extra ...compositor.Option) (*cli.Workspace, *slog.Logger, error) {
	logger, err := commandLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	ws, err := cli.OpenWorkspace(ctx, projectOptions(cmd, args), logger, extra...)
	if err != nil {
		return nil, nil, err
	}
	return ws, logger, nil
}
