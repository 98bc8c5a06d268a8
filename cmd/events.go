package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/tui"
)

var eventsCmd = &cobra.Command{
	Use:   "events [name...]",
	Short: "Print events published to Redis",
	Long: `Subscribes to the events another harbor-ctl process publishes to Redis
(see [redis] in settings.toml) and prints them until interrupted.

Event names: ` + strings.Join(events.Names(), ", ") + `. All events are shown
when no name is given.`,
	RunE: runEvents,
}

var eventsRaw bool

func init() {
	eventsCmd.Flags().BoolVar(&eventsRaw, "raw", false, "Print events as JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	for _, name := range args {
		if !slices.Contains(events.Names(), name) {
			return errors.ValidationError(fmt.Sprintf("unknown event %q", name))
		}
	}

	addr := application.Settings.Redis.Addr
	if addr == "" {
		return errors.ConfigError("redis is not configured", fmt.Errorf("set [redis] addr in settings.toml or HARBOR_REDIS_ADDR"))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := events.NewRedisClient(ctx, addr)
	if err != nil {
		return errors.ConfigError("failed to connect to redis", err)
	}
	defer client.Close()

	sub := events.NewRedisEmitter(client, application.Settings.Redis.ChannelPrefix)
	out := cmd.OutOrStdout()
	return sub.Subscribe(ctx, func(env events.Envelope) {
		if eventsRaw {
			data, err := json.Marshal(env)
			if err == nil {
				fmt.Fprintln(out, string(data))
			}
			return
		}
		fmt.Fprintln(out, formatEnvelope(env))
	}, args...)
}

// formatEnvelope renders an event as one human-readable line.
func formatEnvelope(env events.Envelope) string {
	ts := env.Timestamp.Local().Format("2006-01-02 15:04:05")

	switch env.Name {
	case events.RuntimeStatusUpdate:
		var u runtime.StatusUpdate
		if env.Decode(&u) == nil {
			line := fmt.Sprintf("[%s] %-22s %s %s", ts, env.Name, u.RuntimeID, tui.FormatStatus(u.Status))
			if u.Error != nil {
				line += " (" + *u.Error + ")"
			}
			return line
		}
	case events.DetectionCompleted:
		var r runtime.DetectionResult
		if env.Decode(&r) == nil {
			return fmt.Sprintf("[%s] %-22s %d runtimes, %d errors in %dms", ts, env.Name, len(r.Runtimes), len(r.Errors), r.DurationMs)
		}
	case events.RuntimeSelected:
		var id string
		if env.Decode(&id) == nil {
			return fmt.Sprintf("[%s] %-22s %s", ts, env.Name, id)
		}
	}
	return fmt.Sprintf("[%s] %-22s %s", ts, env.Name, string(env.Payload))
}
