package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/compositor"
	"github.com/aretw0/compositor/internal/cli"
	"github.com/aretw0/compositor/internal/presentation/tui"
	httpAdapter "github.com/aretw0/compositor/pkg/adapters/http"
	"github.com/aretw0/compositor/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start the HTTP server",
	Long: `Starts the compositor HTTP API. Renders, parameter edits and graph introspection are
served as JSON, frames as PNG, viewer output as server-sent events and evaluation
counters at /metrics. Loam projects are reloaded when their files change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		watch, _ := cmd.Flags().GetBool("watch")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		logger, err := commandLogger(cmd)
		if err != nil {
			return err
		}
		metrics := observability.NewMetrics()
		hooks := observability.Chain(metrics.Hooks(), observability.LoggingHooks(logger))

		ws, _, err := openWorkspace(sc, cmd, args, compositor.WithLifecycleHooks(hooks))
		if err != nil {
			return err
		}
		defer ws.Close()

		srv, err := httpAdapter.NewServer(ws.Engine,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(metrics.Handler()),
		)
		if err != nil {
			return err
		}
		viewers := cli.AttachAll(ws.Engine, srv.Streams)

		if watch {
			if err := watchProject(sc, ws, srv, logger); err != nil {
				logger.Warn("hot reload disabled", "error", err)
			}
		}

		httpServer := &http.Server{
			Addr:    ":" + port,
			Handler: srv.Handler(),
		}

		stderr := cmd.ErrOrStderr()
		if cli.IsTerminal(stderr) {
			tui.PrintBanner(stderr, compositor.Version)
		}

		serverErrors := make(chan error, 1)
		go func() {
			cli.PrintSystemMessage(stderr, "Serving %s on %s (%d viewers)", ws.Source, httpServer.Addr, len(viewers))
			serverErrors <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sc.Done():
			cli.PrintSystemMessage(stderr, "Start shutdown... Signal: %v", sc.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := httpServer.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			cli.PrintSystemMessage(stderr, "Compositor Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("watch", true, "Reload the project when its files change")
}

// watchProject reloads the engine on source changes, re-binding the event stream and
// footage each time, and announces every reload to SSE subscribers.
func watchProject(ctx context.Context, ws *cli.Workspace, srv *httpAdapter.Server, logger *slog.Logger) error {
	reloads, err := ws.Engine.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for err := range reloads {
			evt := httpAdapter.Event{Type: "reload"}
			if err != nil {
				evt.Data = map[string]any{"error": err.Error()}
				srv.Streams.Broadcast(evt)
				continue
			}
			cli.AttachAll(ws.Engine, srv.Streams)
			if err := ws.LoadFootage(logger); err != nil {
				logger.Warn("footage reload failed", "error", err)
			}
			srv.Streams.Broadcast(evt)
		}
	}()
	return nil
}
