package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dirsync/pkg/dirsync/logging"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// Errors for missing required settings. Both are fatal at startup.
var (
	ErrMissingSource = errors.New("missing source directory (set " + EnvSourceDir + " or --source)")
	ErrMissingTarget = errors.New("missing target directory (set " + EnvTargetDir + " or --target)")
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	// Level overrides the level chosen by Verbose when set.
	Level     string         `mapstructure:"level" yaml:"level"`
	File      bool           `mapstructure:"file" yaml:"file"`
	Path      string         `mapstructure:"path" yaml:"path"`
	FileLevel string         `mapstructure:"file_level" yaml:"file_level"`
	Rotation  RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// JournalConfig configures the run journal.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Source string `mapstructure:"source_dir" yaml:"source_dir"`
	Target string `mapstructure:"target_dir" yaml:"target_dir"`

	// Verbose is parsed by hand so that unparseable values mean false.
	Verbose bool `mapstructure:"-" yaml:"verbose"`

	DryRun  bool          `mapstructure:"dry_run" yaml:"dry_run"`
	Output  string        `mapstructure:"output" yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit config file. It must exist when set.
	ConfigFile string

	// SearchPaths overrides the directories searched for config.yaml.
	// Nil uses DefaultSearchPaths().
	SearchPaths []string

	// Flags are bound on top of file and environment values.
	Flags *pflag.FlagSet
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"source":  "source_dir",
	"target":  "target_dir",
	"verbose": "verbose",
	"dry-run": "dry_run",
	"output":  "output",
	"journal": "journal.enabled",
}

// Load loads configuration with the precedence flag > environment > file > default.
//
// SOURCE_DIR, TARGET_DIR and VERBOSE are read as-is; every other key can be
// set through a DIRSYNC_ prefixed variable (e.g. DIRSYNC_LOGGING_LEVEL).
// Load does not validate; call Validate before running a sync.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"source_dir": {EnvSourceDir, EnvPrefix + "_" + EnvSourceDir},
		"target_dir": {EnvTargetDir, EnvPrefix + "_" + EnvTargetDir},
		"verbose":    {EnvVerbose, EnvPrefix + "_" + EnvVerbose},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	if opts.Flags != nil {
		for flag, key := range flagKeys {
			if f := opts.Flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", flag, err)
				}
			}
		}
	}

	if err := readConfigFile(v, opts); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Verbose = parseBool(v.GetString("verbose"))

	var err error
	if cfg.Source, err = ExpandPath(cfg.Source); err != nil {
		return nil, err
	}
	if cfg.Target, err = ExpandPath(cfg.Target); err != nil {
		return nil, err
	}
	if cfg.Journal.Path, err = ExpandPath(cfg.Journal.Path); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", "false")
	v.SetDefault("dry_run", false)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.file_level", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", DefaultLogMaxAge)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.rotation.daily", true)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", DefaultJournalPath())
	v.SetDefault("journal.retention_days", DefaultRetentionDays)
}

func readConfigFile(v *viper.Viper, opts Options) error {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	paths := opts.SearchPaths
	if paths == nil {
		paths = DefaultSearchPaths()
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// parseBool reads the VERBOSE toggle: only the exact text "true" enables
// it. "1", "TRUE" and anything else are false.
func parseBool(s string) bool {
	return s == "true"
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return ErrMissingSource
	}
	if strings.TrimSpace(c.Target) == "" {
		return ErrMissingTarget
	}
	return nil
}

// LogConfig converts the logging settings into a logging.Config.
func (c *Config) LogConfig() (logging.Config, error) {
	level := c.Logging.Level
	if level == "" {
		level = logging.LevelFor(c.Verbose)
	}

	rotation := logging.DefaultRotationConfig()
	if c.Logging.Rotation.MaxSize != "" {
		size, err := types.ParseSize(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("invalid logging.rotation.max_size: %w", err)
		}
		rotation.MaxSize = size
	}
	rotation.MaxAge = c.Logging.Rotation.MaxAge
	rotation.MaxBackups = c.Logging.Rotation.MaxBackups
	rotation.Daily = c.Logging.Rotation.Daily

	return logging.Config{
		Level:     level,
		File:      c.Logging.File,
		Path:      c.Logging.Path,
		FileLevel: c.Logging.FileLevel,
		Rotation:  rotation,
	}, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/dirsync.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "dirsync")
}

// DataDir returns $XDG_DATA_HOME/dirsync.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "dirsync")
}

// DefaultJournalPath returns the default run journal directory.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// DefaultConfigFile returns the default config file location.
func DefaultConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultSearchPaths returns the directories searched for config.yaml:
// the XDG config directory, then ~/.config/dirsync.
func DefaultSearchPaths() []string {
	paths := []string{ConfigDir()}
	if home, err := os.UserHomeDir(); err == nil {
		legacy := filepath.Join(home, ".config", "dirsync")
		if legacy != paths[0] {
			paths = append(paths, legacy)
		}
	}
	return paths
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
