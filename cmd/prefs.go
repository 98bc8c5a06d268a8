package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/tui"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change runtime preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved preferences",
	Args:  cobra.NoArgs,
	RunE:  runPrefsShow,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change preferences",
	Long: `Updates only the preferences whose flags are given, e.g.

  harbor-ctl prefs set --preferred-type podman --poll-interval 10`,
	Args: cobra.NoArgs,
	RunE: runPrefsSet,
}

var prefsSelectCmd = &cobra.Command{
	Use:   "select [runtime-id]",
	Short: "Choose the runtime to use",
	Long: `Records a detected runtime as the one to use. Without an id an
interactive picker is shown.

Use arrow keys or j/k to navigate, / to filter, Enter to select, q to quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrefsSelect,
}

var (
	prefsPreferredType  string
	prefsAutoSelect     bool
	prefsCacheTTL       int
	prefsPollInterval   int
	prefsClearSelection bool
)

func init() {
	prefsSetCmd.Flags().StringVar(&prefsPreferredType, "preferred-type", "", "Preferred runtime type (docker or podman)")
	prefsSetCmd.Flags().BoolVar(&prefsAutoSelect, "auto-select", true, "Prefer a running runtime when none is selected")
	prefsSetCmd.Flags().IntVar(&prefsCacheTTL, "cache-ttl", 0, "Detection cache lifetime in seconds")
	prefsSetCmd.Flags().IntVar(&prefsPollInterval, "poll-interval", 0, "Status poll interval in seconds")
	prefsSetCmd.Flags().BoolVar(&prefsClearSelection, "clear-selection", false, "Forget the selected runtime")

	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd, prefsSelectCmd)
	rootCmd.AddCommand(prefsCmd)
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	prefs, err := application.Preferences()
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), prefs)
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	prefs, err := application.Preferences()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("preferred-type") {
		kind, err := runtime.ParseKind(prefsPreferredType)
		if err != nil {
			return errors.ValidationError(err.Error())
		}
		prefs.PreferredKind = kind
	}
	if flags.Changed("auto-select") {
		prefs.AutoSelectRunning = prefsAutoSelect
	}
	if flags.Changed("cache-ttl") {
		prefs.DetectionCacheTTL = prefsCacheTTL
	}
	if flags.Changed("poll-interval") {
		prefs.StatusPollInterval = prefsPollInterval
	}
	if prefsClearSelection {
		prefs.SelectedRuntimeID = ""
	}

	if err := application.SetPreferences(prefs); err != nil {
		return err
	}
	logSuccess("Preferences saved to %s", application.Store.Path())
	return nil
}

func runPrefsSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 1 {
		if err := application.SelectRuntime(ctx, args[0]); err != nil {
			return err
		}
		logSuccess("Selected %s", args[0])
		return nil
	}

	prefs, err := application.Preferences()
	if err != nil {
		return err
	}
	list := application.Detector.DetectAll(ctx)

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprint(cmd.OutOrStdout(), tui.SimplePicker(list, prefs.SelectedRuntimeID))
		return errors.ValidationError("runtime id is required when not running in a terminal")
	}

	logging.Debug("picker mode started", "runtimes", len(list))
	result, err := tui.RunPicker(list, prefs.SelectedRuntimeID)
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}
	logging.Debug("picker result", "action", result.Action)

	switch result.Action {
	case tui.ActionNone:
		logWarning("No container runtimes found")
		return errors.NoRuntimeFound()
	case tui.ActionSelect:
		if err := application.SelectRuntime(ctx, result.Runtime.ID); err != nil {
			return err
		}
		logSuccess("Selected %s", result.Runtime.ID)
	}
	return nil
}
