// Package errors provides typed errors with exit codes for harbor-ctl.
//
// HarborError wraps an error with an exit code:
//
//	type HarborError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess         = 0  // Success
//	ExitGeneralError    = 1  // General/unknown errors
//	ExitNoRuntime       = 2  // No container runtime detected
//	ExitRuntimeNotFound = 3  // Runtime id does not match a detected runtime
//	ExitDetectionFailed = 4  // Detection could not run
//	ExitPollingFailed   = 5  // Polling lifecycle error (e.g. already running)
//	ExitConfigError     = 6  // Settings or preferences could not be loaded
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
