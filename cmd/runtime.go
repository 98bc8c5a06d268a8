package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Show the active container runtime",
	Long: `Display the runtime harbor-ctl would use and why.

The selected runtime (see "prefs select") wins while it is still installed.
Otherwise, with auto-select on, the first running runtime of the preferred
type is used, then any running runtime, then the first runtime of the
preferred type.`,
	RunE: runRuntime,
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
}

func runRuntime(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	prefs, err := application.Preferences()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Platform:        %s\n", application.Platform())
	fmt.Fprintf(out, "Preferred type:  %s\n", prefs.PreferredKind.DisplayName())
	fmt.Fprintf(out, "Auto-select:     %v\n", prefs.AutoSelectRunning)
	if prefs.SelectedRuntimeID != "" {
		fmt.Fprintf(out, "Selected:        %s\n", prefs.SelectedRuntimeID)
	}
	fmt.Fprintln(out)

	active, err := application.ActiveRuntime(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Active runtime:  %s\n", active.ID)
	fmt.Fprintf(out, "  %s %s (minimum %s)\n", active.Kind.DisplayName(), active.Version, runtime.MinimumVersion(active.Kind))
	fmt.Fprintf(out, "  Status: %s\n", active.Status)
	if active.Mode != "" {
		mode := string(active.Mode)
		if active.ModeAssumed {
			mode += " (assumed)"
		}
		fmt.Fprintf(out, "  Mode:   %s\n", mode)
	}
	if active.IsWSL {
		fmt.Fprintln(out, "  Reached through WSL interop")
	}
	return nil
}
