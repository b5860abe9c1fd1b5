// Package config loads spreadfire's YAML configuration.
//
// Values are read from a YAML file with ${VAR} environment expansion,
// completed with defaults and validated. Command-line flags override file
// values. A Watcher reports edits to the file so a running server can pick
// up changes without a restart.
package config
