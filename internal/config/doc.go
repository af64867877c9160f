// Package config handles configuration loading for the amazing client.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file on top of Default().
// Files ending in .toml are decoded as TOML; anything else is YAML.
// A .env file in the working directory is loaded first with LoadDotEnv
// so its variables are visible to ${VAR} expansion.
//
// # Environment Variable Expansion
//
//	server:
//	  host: "${MAZE_HOST}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  host: "flume.cs.dartmouth.edu"
//	  control_port: 17235
//
//	run:
//	  avatars: 3        # 2..10
//	  difficulty: 2     # 0..9
//	  user: "${USER}"
//
//	connect:
//	  max_attempts: 5
//	  initial_backoff: "250ms"
//	  max_backoff: "4s"
//
//	logging:
//	  level: "info"     # debug, info, warn, error
//	  format: "text"    # text, json
//
//	logfile:
//	  enabled: true
//	  dir: "./logs"
//
//	database:
//	  path: "./amazing.db"   # empty disables the run ledger
//
//	render:
//	  mode: "none"      # none, plain, tui
//
// # Validation
//
// Validate reports the first out-of-range or missing field. Load and
// Finalize call it after parsing durations.
package config
