package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the status of every detected runtime once",
	Long: `Runs "<runtime> info" against every detected runtime and reports whether
its engine is running, stopped, refusing access or not answering in time.`,
	RunE: runStatus,
}

var statusOutput string

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format: text or json")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusOutput != "text" && statusOutput != "json" {
		return errors.ValidationError(fmt.Sprintf("unknown output format %q (expected text or json)", statusOutput))
	}

	ctx := cmd.Context()
	list := application.Detector.DetectAll(ctx)
	if len(list) == 0 {
		logWarning("No container runtimes found")
		return errors.NoRuntimeFound()
	}

	prober := runtime.NewProber(nil)
	timeout := application.Settings.ProbeTimeout()
	updates := make([]runtime.StatusUpdate, len(list))

	var g errgroup.Group
	for i, rt := range list {
		g.Go(func() error {
			updates[i] = runtime.StatusUpdate{
				RuntimeID: rt.ID,
				Status:    prober.Probe(ctx, rt.Path, timeout),
				Timestamp: timeNow(),
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, u := range updates {
		if err := application.Emitter.Emit(ctx, events.RuntimeStatusUpdate, u); err != nil {
			logWarning("failed to emit status for %s: %v", u.RuntimeID, err)
		}
	}

	if statusOutput == "json" {
		return writeJSON(cmd.OutOrStdout(), updates)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS")
	fmt.Fprintln(tw, "--\t------")
	for _, u := range updates {
		fmt.Fprintf(tw, "%s\t%s\n", u.RuntimeID, tui.FormatStatus(u.Status))
	}
	return tw.Flush()
}
