package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configDir  string
)

var rootCmd = &cobra.Command{
	Use:   "harbor-ctl",
	Short: "Container runtime detection and status CLI",
	Long: `harbor-ctl finds the container runtimes installed on this machine and
keeps track of whether their engines are reachable.

Supported runtimes:
  - docker:  Docker Engine (20.10.0 or newer)
  - podman:  Podman (3.0.0 or newer), rootful or rootless

Settings are read from settings.toml and preferences from config.json in the
configuration directory (see --config).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, cmd.ErrOrStderr())
		logging.SetUserOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
		return loadApp()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", os.Getenv("HARBOR_CONFIG_DIR"), "Configuration directory")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)
