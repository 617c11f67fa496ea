package executor

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// cleanUp removes every directory under the target root that is empty when
// visited. Directories are visited deepest first, so a chain of directories
// that only contained each other collapses in a single pass. The target
// root itself is never removed.
func (e *Executor) cleanUp(report *types.Report) {
	if e.dryRun {
		e.logger.Debug("skipping empty directory cleanup in dry run")
		return
	}

	e.logger.Info("cleaning up empty directories", "root", e.target)

	dirs, err := e.collectDirs()
	if err != nil {
		e.logger.Error("failed to walk target for cleanup", "root", e.target, "error", err)
		report.AddFailure(types.OpRemoveDir, e.target, err)
		return
	}

	for _, dir := range dirs {
		empty, err := isEmptyDir(dir)
		if err != nil {
			e.logger.Warn("cannot inspect directory", "path", dir, "error", err)
			continue
		}
		if !empty {
			continue
		}

		if err := os.Remove(dir); err != nil {
			e.logger.Error("failed to remove directory", "path", dir, "error", err)
			report.AddFailure(types.OpRemoveDir, dir, err)
			continue
		}

		e.logger.Info("removed empty directory", "path", dir)
		report.DirsRemoved++
	}
}

// collectDirs returns every directory strictly below the target root,
// deepest first.
func (e *Executor) collectDirs() ([]string, error) {
	if _, err := os.Stat(e.target); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var dirs []string
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: 1,
	}

	err := fastwalk.Walk(&conf, e.target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == e.target {
				return err
			}
			e.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if path != e.target && d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortDeepestFirst(dirs)
	return dirs, nil
}

// sortDeepestFirst orders paths by descending depth. Paths of equal depth
// are ordered in reverse lexical order for a stable result.
func sortDeepestFirst(dirs []string) {
	sep := string(filepath.Separator)
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], sep), strings.Count(dirs[j], sep)
		if di != dj {
			return di > dj
		}
		return dirs[i] > dirs[j]
	})
}

// isEmptyDir reports whether dir has no entries.
func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
