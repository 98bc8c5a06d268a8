package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/harbor-ctl/internal/audit"
	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/metrics"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll runtime status until interrupted",
	Long: `Detects runtimes, then probes each one every poll interval. Runtimes that
keep failing are probed less often.

Status changes are shown in a live table, or logged when --plain is set or
stdout is not a terminal. Updates are also appended to the audit log and
published to Redis when those are configured.`,
	RunE: runWatch,
}

var (
	watchInterval int
	watchPlain    bool
	watchMetrics  string
)

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "Poll interval in seconds (default from settings)")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Log status updates instead of showing the live table")
	watchCmd.Flags().StringVar(&watchMetrics, "metrics", "", "Serve Prometheus metrics on this address (default from settings)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, cleanup, err := watchSinks(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if addr := metricsAddr(); addr != "" {
		srv := metrics.Server(addr, registry)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logging.Info("serving metrics", "addr", addr)
	}

	defer application.StopStatusPolling()

	if watchPlain || !isatty.IsTerminal(os.Stdout.Fd()) {
		return watchPlainLoop(ctx, sinks)
	}
	return watchTable(ctx, sinks)
}

func watchPlainLoop(ctx context.Context, sinks events.Multi) error {
	application.Emitter = append(sinks, events.Log{})
	if err := application.StartStatusPolling(ctx); err != nil {
		return err
	}

	logInfo("Watching %d runtimes (interval: %s)", len(application.Poller.Runtimes()), application.Poller.Interval())

	<-ctx.Done()
	application.StopStatusPolling()
	<-application.Poller.Done()
	logInfo("Watch stopped")
	return nil
}

func watchTable(ctx context.Context, sinks events.Multi) error {
	// Log lines would tear the alternate screen.
	logging.Discard()

	list := application.Detector.DetectAll(ctx)
	opts := tui.WatchOptions{
		Interval: application.Poller.Interval(),
		Refresh: func() runtime.DetectionResult {
			application.ClearDetectionCache()
			result := application.DetectRuntimes(ctx)
			application.Poller.SetRuntimes(result.Runtimes)
			return result
		},
	}

	return tui.RunWatch(ctx, list, opts, func(ui events.Emitter) error {
		application.Emitter = append(sinks, ui)
		return application.StartStatusPolling(ctx)
	})
}

// watchSinks builds the emitters configured in settings: the audit log and
// Redis. The returned cleanup closes what was opened.
func watchSinks(ctx context.Context) (events.Multi, func(), error) {
	var sinks events.Multi
	cleanup := func() {}

	path, err := auditLogPath()
	if err != nil {
		return nil, cleanup, err
	}
	if path != "" {
		sinks = append(sinks, audit.NewLogger(path))
		logging.Debug("audit log enabled", "path", path)
	}

	if addr := application.Settings.Redis.Addr; addr != "" {
		client, err := events.NewRedisClient(ctx, addr)
		if err != nil {
			return nil, cleanup, errors.ConfigError("failed to connect to redis", err)
		}
		cleanup = func() { _ = client.Close() }
		sinks = append(sinks, events.NewRedisEmitter(client, application.Settings.Redis.ChannelPrefix))
		logging.Debug("publishing events to redis", "addr", addr)
	}

	return sinks, cleanup, nil
}

func metricsAddr() string {
	if watchMetrics != "" {
		return watchMetrics
	}
	return application.Settings.Metrics.ListenAddr
}
