package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/harbor-ctl/internal/audit"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log [runtime-id]",
	Short: "Display recorded status changes",
	Long: `Prints the audit trail written by "harbor-ctl watch": status changes,
detection passes and runtime selections. Pass a runtime id to limit the output
to that runtime.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditLog,
}

var (
	auditLogJSON  bool
	auditLogClear bool
)

func init() {
	auditLogCmd.Flags().BoolVar(&auditLogJSON, "raw", false, "Output events as JSON lines")
	auditLogCmd.Flags().BoolVar(&auditLogClear, "clear", false, "Delete the audit log")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	var runtimeID string
	if len(args) == 1 {
		runtimeID = args[0]
	}

	path, err := auditLogPath()
	if err != nil {
		return err
	}
	if path == "" {
		logInfo("Audit log is disabled (set audit_log in settings.toml)")
		return nil
	}

	logger := audit.NewLogger(path)
	if auditLogClear {
		if err := logger.Remove(); err != nil {
			return fmt.Errorf("failed to remove audit log: %w", err)
		}
		logSuccess("Removed %s", path)
		return nil
	}

	entries, err := logger.Events(runtimeID)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(entries) == 0 {
		logInfo("No events recorded in %s", path)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		if auditLogJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		switch {
		case e.Runtime != "" && e.Details != "":
			fmt.Fprintf(out, "[%s] %-9s %s (%s)\n", ts, e.Type, e.Runtime, e.Details)
		case e.Runtime != "":
			fmt.Fprintf(out, "[%s] %-9s %s\n", ts, e.Type, e.Runtime)
		default:
			fmt.Fprintf(out, "[%s] %-9s %s\n", ts, e.Type, e.Details)
		}
	}

	return nil
}
