// Package config loads harbor-ctl settings and user preferences.
//
// # Settings
//
// Settings are operator knobs read from settings.toml in the configuration
// directory. Every field has a default, so the file is optional:
//
//	cache_ttl_secs       = 60
//	detection_timeout_ms = 5000
//	probe_timeout_ms     = 3000
//	poll_interval_secs   = 5
//	backoff              = "random"   # or "deterministic"
//	extra_search_paths   = []
//	audit_log            = "events.jsonl"
//
//	[redis]
//	addr           = "127.0.0.1:6379"
//	channel_prefix = "harbor"
//
//	[metrics]
//	listen_addr = "127.0.0.1:9464"
//
// HARBOR_* environment variables override file values. Relative paths are
// resolved under the configuration directory and may not escape it.
//
// # Preferences
//
// Preferences are the user's runtime choices, stored as JSON in config.json.
// Keys are written in camelCase; snake_case spellings are accepted on read.
// Saves go through a temp file and rename.
package config
