// Package scanner builds content-addressed snapshots of directory trees.
//
// Every regular file reachable from a root is read in full and hashed with
// SHA-256. The result is keyed by (relative path, content hash), so two
// files are considered the same only when both their location and their
// bytes match. Symlinks and other non-regular entries are ignored.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/dirsync/pkg/dirsync/logging"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// ScanError is returned when a file under a root cannot be read.
// It is fatal: the scan stops and no partial result is returned.
type ScanError struct {
	Root string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %s: %v", e.Root, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// Snapshot holds the scans of both sides of a sync.
type Snapshot struct {
	Source types.FileSet
	Target types.FileSet
}

// Scanner scans a source and a target root.
type Scanner struct {
	source string
	target string
	logger *logging.Logger
}

// New creates a Scanner scoped to the given source and target roots.
func New(source, target string, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scanner{
		source: source,
		target: target,
		logger: logger.With("component", "scanner"),
	}
}

// Scan scans the source root and then the target root.
//
// A missing target root scans as empty. A missing or unreadable source root
// is a *ScanError rather than an empty set: an empty source would plan the
// deletion of every file in the target.
func (s *Scanner) Scan(ctx context.Context) (*Snapshot, error) {
	source, err := s.scanRoot(ctx, s.source, false)
	if err != nil {
		return nil, err
	}

	target, err := s.scanRoot(ctx, s.target, true)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Source: source, Target: target}, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string, allowMissing bool) (types.FileSet, error) {
	start := time.Now()

	if allowMissing {
		if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("root does not exist, treating as empty", "root", root)
			return types.FileSet{}, nil
		}
	}

	files, err := ScanDir(ctx, root, s.logger)
	if err != nil {
		return nil, err
	}

	s.logger.Info("scan complete",
		"root", root,
		"files", len(files),
		"size", types.FormatSize(files.TotalSize()),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return files, nil
}

// ScanDir walks root and returns a record for every regular file below it.
// Any failure to read a file aborts the walk with a *ScanError. Directories
// that cannot be listed are logged and skipped.
func ScanDir(ctx context.Context, root string, logger *logging.Logger) (types.FileSet, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	root, err := validateRoot(root)
	if err != nil {
		return nil, err
	}

	files := make(types.FileSet)

	// A single worker keeps the callback serialized: files are read and
	// hashed one at a time, and the map needs no lock.
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: 1,
	}

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return &ScanError{Root: root, Path: path, Err: err}
			}
			logger.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		record, err := readRecord(root, path, d)
		if err != nil {
			return &ScanError{Root: root, Path: path, Err: err}
		}

		logger.Debug("hashed file", "key", record.Key().String(), "size", record.HumanSize())
		files[record.Key()] = record
		return nil
	})

	if walkErr != nil {
		var scanErr *ScanError
		if errors.As(walkErr, &scanErr) {
			return nil, scanErr
		}
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		return nil, &ScanError{Root: root, Path: root, Err: walkErr}
	}

	return files, nil
}

// readRecord hashes the file and builds its record.
func readRecord(root, path string, d fs.DirEntry) (types.FileRecord, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return types.FileRecord{}, fmt.Errorf("computing relative path: %w", err)
	}

	hash, err := HashFile(path)
	if err != nil {
		return types.FileRecord{}, err
	}

	info, err := d.Info()
	if err != nil {
		return types.FileRecord{}, err
	}

	return types.FileRecord{
		Name:    d.Name(),
		Path:    path,
		RelPath: rel,
		Hash:    hash,
		Size:    info.Size(),
	}, nil
}

// HashBytes returns the hex-encoded SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile reads the file at path in full and returns its digest.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// validateRoot resolves the root path to absolute and verifies it is a directory.
func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &ScanError{Root: root, Path: root, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &ScanError{Root: abs, Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &ScanError{Root: abs, Path: abs, Err: ErrNotDirectory}
	}

	return abs, nil
}

// ErrNotDirectory is wrapped by ScanError when a root is not a directory.
var ErrNotDirectory = errors.New("not a directory")
