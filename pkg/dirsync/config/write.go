package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when the file is already present.
var ErrConfigExists = errors.New("config file already exists")

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Output: DefaultOutput,
		Logging: LoggingConfig{
			Rotation: RotationConfig{
				MaxSize:    DefaultLogMaxSize,
				MaxAge:     DefaultLogMaxAge,
				MaxBackups: DefaultLogMaxBackups,
				Daily:      true,
			},
		},
		Journal: JournalConfig{
			Path:          DefaultJournalPath(),
			RetentionDays: DefaultRetentionDays,
		},
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const defaultHeader = `# dirsync configuration
#
# source_dir and target_dir may also come from SOURCE_DIR and TARGET_DIR.
# Every other key can be overridden with a DIRSYNC_ variable,
# e.g. DIRSYNC_JOURNAL_ENABLED=true.

`

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left alone and ErrConfigExists returned.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	data, err := Default().Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
