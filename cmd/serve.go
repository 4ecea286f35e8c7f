package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/pikfront/app"
	"github.com/s0up4200/pikfront/metrics"
	"github.com/s0up4200/pikfront/session"
	"github.com/s0up4200/pikfront/web"
)

var listenAddr string

// serveCmd runs the web UI
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI",
	Long: `Serve the browser UI on server.listen. The UI holds a single shared
session; sign in from the browser. Task status refreshes every poll.interval.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (overrides server.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Listen
	if listenAddr != "" {
		addr = listenAddr
	}

	page := web.NewPage()
	controller := app.NewController(client, session.New(), page, logger,
		app.WithPollInterval(cfg.Poll.Interval),
		app.WithPollHook(metrics.RecordPollTick),
		app.WithTasksHook(metrics.SetTaskCounts),
	)

	server := web.NewServer(controller, page, logger,
		web.WithFilters(filters),
		web.WithMetrics(metrics.Handler()),
		web.WithRefreshInterval(max(cfg.Poll.Interval, time.Second)),
	)

	logger.Info().
		Str("backend", client.BaseURL()).
		Dur("poll_interval", cfg.Poll.Interval).
		Msg("Starting web UI")

	if err := server.Run(cmd.Context(), addr, cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("serve failed: %w", err)
	}
	return nil
}
