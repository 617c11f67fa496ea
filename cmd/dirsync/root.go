package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirsync/pkg/dirsync/config"
	"github.com/jamesainslie/dirsync/pkg/dirsync/executor"
	"github.com/jamesainslie/dirsync/pkg/dirsync/logging"
	"github.com/jamesainslie/dirsync/pkg/dirsync/manifest"
	"github.com/jamesainslie/dirsync/pkg/dirsync/output"
)

// ErrIncomplete is returned when a sync finished with failed actions.
var ErrIncomplete = errors.New("sync incomplete")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirsync",
		Short: "Make a target directory an exact copy of a source directory",
		Long: `dirsync makes the target directory tree mirror the source tree.

Files are compared by relative path and SHA-256 content hash. Files missing
from the source are deleted from the target, new or changed files are copied,
and directories left empty in the target are removed.

Source and target come from --source/--target, SOURCE_DIR/TARGET_DIR or the
config file. VERBOSE=true enables debug logging.

Examples:
  dirsync -s ~/photos -t /mnt/backup/photos
  SOURCE_DIR=/data TARGET_DIR=/backup dirsync
  dirsync plan -o json        # Show what would change
  dirsync --dry-run           # Log the actions without applying them
  dirsync history             # List journaled runs`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runSync,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default: $XDG_CONFIG_HOME/dirsync/config.yaml)")
	pf.StringP("source", "s", "", "source directory")
	pf.StringP("target", "t", "", "target directory")
	pf.BoolP("verbose", "v", false, "debug output")
	pf.StringP("output", "o", config.DefaultOutput, "output format (pretty, plain, json, yaml)")
	pf.Bool("journal", false, "record the run in the journal")

	cmd.Flags().BoolP("dry-run", "d", false, "log actions without changing the target")

	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// session holds what every command needs after startup.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
}

func (s *session) close() {
	_ = s.logger.Close()
}

// loadConfig reads configuration with the command's flags bound on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(config.Options{
		ConfigFile: cfgFile,
		Flags:      cmd.Flags(),
	})
}

// newSession loads and validates configuration and builds the logger.
// Any error here is fatal and reported before work starts.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := output.Get(cfg.Output); err != nil {
		return nil, err
	}

	lc, err := cfg.LogConfig()
	if err != nil {
		return nil, err
	}
	lc.Console = cmd.ErrOrStderr()

	logger, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger}, nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	exec := executor.New(s.cfg.Source, s.cfg.Target, s.logger, executor.WithDryRun(s.cfg.DryRun))
	s.logger.Info("sync started", "source", exec.Source(), "target", exec.Target(), "dry_run", s.cfg.DryRun)

	actions, report, err := exec.Execute(cmd.Context())
	if err != nil {
		s.logger.Error("sync aborted", "err", err)
		return err
	}

	s.logger.Info("sync finished",
		"copied", report.Copied,
		"deleted", report.Deleted,
		"failed", len(report.Failures),
		"elapsed", report.Elapsed)

	result := output.NewResult(exec.Source(), exec.Target(), actions, report)
	if s.cfg.Journal.Enabled {
		result.JournalID = recordRun(s, result)
	}

	if err := render(cmd, s.cfg.Output, result); err != nil {
		return err
	}

	if !report.OK() {
		return fmt.Errorf("%w: %d of %d actions failed", ErrIncomplete, len(report.Failures), len(actions))
	}
	return nil
}

// recordRun journals the run and prunes old entries. Journal problems are
// logged and never fail the sync.
func recordRun(s *session, r *output.Result) string {
	m, err := manifest.New(s.cfg.Journal.Path)
	if err != nil {
		s.logger.Warn("journal unavailable", "err", err)
		return ""
	}

	entry, err := m.Record(r.Source, r.Target, r.Actions, r.Report)
	if err != nil {
		s.logger.Warn("failed to journal run", "err", err)
		return ""
	}
	s.logger.Debug("run journaled", "id", entry.ID, "dir", m.Dir())

	if removed, err := m.Cleanup(s.cfg.Journal.RetentionDays); err != nil {
		s.logger.Warn("journal cleanup failed", "err", err)
	} else if removed > 0 {
		s.logger.Debug("journal pruned", "removed", removed)
	}
	return entry.ID
}

func render(cmd *cobra.Command, format string, r *output.Result) error {
	formatter, err := output.Get(format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
