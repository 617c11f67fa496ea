// Package executor applies sync plans to a target directory tree.
//
// A run scans both roots, computes the plan, deletes orphaned target files,
// copies new or changed source files, and finally removes directories left
// empty under the target root. Scan failures abort the run before anything
// is touched; failures while applying the plan are recorded in the report
// and the run carries on.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/dirsync/pkg/dirsync/diff"
	"github.com/jamesainslie/dirsync/pkg/dirsync/logging"
	"github.com/jamesainslie/dirsync/pkg/dirsync/scanner"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// Executor reconciles a target tree with a source tree.
type Executor struct {
	source  string
	target  string
	scanner *scanner.Scanner
	logger  *logging.Logger
	dryRun  bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithDryRun makes the executor log what it would do without touching the target.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// New creates an Executor for the given roots. Relative roots are made absolute.
func New(source, target string, logger *logging.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = logging.Nop()
	}

	source = absPath(source)
	target = absPath(target)

	e := &Executor{
		source:  source,
		target:  target,
		scanner: scanner.New(source, target, logger),
		logger:  logger.With("component", "executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Source returns the absolute source root.
func (e *Executor) Source() string { return e.source }

// Target returns the absolute target root.
func (e *Executor) Target() string { return e.target }

// Plan scans both roots and returns the actions a run would apply.
func (e *Executor) Plan(ctx context.Context) ([]types.Action, error) {
	snap, err := e.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	actions := diff.Compute(snap.Source, snap.Target, e.target)
	summary := diff.Summarize(actions)
	e.logger.Info("plan computed",
		"actions", summary.Total(),
		"copies", summary.Copies,
		"deletes", summary.Deletes,
		"to_copy", types.FormatSize(summary.BytesToCopy))

	return actions, nil
}

// Execute runs a complete sync. The returned error is non-nil only for a
// fatal scan failure; per-action failures are listed in the report.
func (e *Executor) Execute(ctx context.Context) ([]types.Action, *types.Report, error) {
	start := time.Now()

	actions, err := e.Plan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning: %w", err)
	}

	report := e.Apply(actions)
	report.Elapsed = time.Since(start)

	return actions, report, nil
}

// Apply executes actions against the filesystem: all deletes, then all
// copies, then the empty directory cleanup. It never stops early.
func (e *Executor) Apply(actions []types.Action) *types.Report {
	start := time.Now()
	report := &types.Report{DryRun: e.dryRun}

	deletes, copies := diff.Split(actions)

	for _, a := range deletes {
		e.deleteFile(a, report)
	}

	for _, a := range copies {
		e.copyFile(a, report)
	}

	e.cleanUp(report)

	report.Elapsed = time.Since(start)
	return report
}

func (e *Executor) deleteFile(a types.Action, report *types.Report) {
	if e.dryRun {
		e.logger.Info("would delete file", "path", a.Target)
		return
	}

	if err := os.Remove(a.Target); err != nil {
		e.logger.Error("failed to delete file", "path", a.Target, "error", err)
		report.AddFailure(types.OpDelete, a.Target, err)
		return
	}

	e.logger.Info("deleted file", "path", a.Target)
	report.Deleted++
}

func (e *Executor) copyFile(a types.Action, report *types.Report) {
	if e.dryRun {
		e.logger.Info("would copy file", "from", a.Source, "to", a.Target)
		return
	}

	parent := filepath.Dir(a.Target)
	if _, err := os.Stat(parent); err != nil {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			e.logger.Error("failed to create parent dir", "path", parent, "error", err)
			report.AddFailure(types.OpMkdir, parent, err)
		} else {
			e.logger.Info("created parent dir", "path", parent)
			report.DirsCreated++
		}
	}

	// Symlinks and special files are invisible to the scanner, so one sitting
	// at the target path would be written through on every run.
	if info, err := os.Lstat(a.Target); err == nil && !info.Mode().IsRegular() && !info.IsDir() {
		if err := os.Remove(a.Target); err != nil {
			e.logger.Error("failed to remove non-regular file", "path", a.Target, "error", err)
			report.AddFailure(types.OpCopy, a.Target, err)
			return
		}
		e.logger.Info("removed non-regular file", "path", a.Target, "type", info.Mode().Type().String())
	}

	n, err := copyContents(a.Source, a.Target)
	if err != nil {
		e.logger.Error("failed to copy file", "from", a.Source, "to", a.Target, "error", err)
		report.AddFailure(types.OpCopy, a.Target, err)
		return
	}

	e.logger.Info("copied file", "from", a.Source, "to", a.Target, "size", types.FormatSize(n))
	report.Copied++
	report.BytesCopied += n
}

// copyContents copies src to dst, truncating dst if it exists, and gives
// dst the permission bits of src.
func copyContents(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, err
	}

	if err := out.Chmod(info.Mode().Perm()); err != nil {
		_ = out.Close()
		return n, err
	}

	return n, out.Close()
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
