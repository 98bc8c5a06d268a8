// Package logging provides logging utilities for harbor-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("located executable", "kind", kind, "path", path)
//	logging.Warn("failed to emit status update", "runtime", id, "error", err)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Detecting container runtimes...")
//	logging.UserSuccess("Selected runtime %s", id)
//	logging.UserWarning("%s %s is older than the supported minimum", kind, version)
//	logging.UserError("Detection failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
