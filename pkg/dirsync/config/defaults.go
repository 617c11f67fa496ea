// Package config provides configuration management for dirsync.
package config

// Default configuration values for dirsync.
const (
	// DefaultOutput is the report format used when none is specified.
	DefaultOutput = "pretty"

	// DefaultRetentionDays is the default number of days to keep journal entries.
	DefaultRetentionDays = 30

	// DefaultLogMaxSize is the default size that triggers log rotation.
	DefaultLogMaxSize = "10MB"

	// DefaultLogMaxAge is the default number of days to keep rotated logs.
	DefaultLogMaxAge = 30

	// DefaultLogMaxBackups is the default number of rotated logs to keep.
	DefaultLogMaxBackups = 5

	// EnvPrefix prefixes every optional environment variable (DIRSYNC_DRY_RUN, ...).
	EnvPrefix = "DIRSYNC"
)

// Environment variables for the required settings. These are read without
// the DIRSYNC_ prefix.
const (
	EnvSourceDir = "SOURCE_DIR"
	EnvTargetDir = "TARGET_DIR"
	EnvVerbose   = "VERBOSE"
)
