// Package types provides core data types for the dirsync engine.
// It includes the file records produced by scanning, the change actions
// produced by diffing, and the report produced by executing them, along
// with utility functions for parsing and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Key identifies a file by where it lives relative to its root and what it contains.
// Two files are the same only when both fields are equal.
type Key struct {
	RelPath string
	Hash    string
}

// String returns a printable form of the key.
func (k Key) String() string {
	return k.RelPath + "@" + k.Hash
}

// FileRecord describes one regular file discovered during a scan.
type FileRecord struct {
	// Name is the base name of the file (display only).
	Name string `json:"name" yaml:"name"`

	// Path is the absolute path to the file.
	Path string `json:"path" yaml:"path"`

	// RelPath is the path relative to the scanned root.
	RelPath string `json:"rel_path" yaml:"rel_path"`

	// Hash is the hex-encoded SHA-256 digest of the file content.
	Hash string `json:"hash" yaml:"hash"`

	// Size is the file size in bytes at scan time. Not part of identity.
	Size int64 `json:"size" yaml:"size"`
}

// Key returns the identity key of the record.
func (f *FileRecord) Key() Key {
	return Key{RelPath: f.RelPath, Hash: f.Hash}
}

// HumanSize returns the file size formatted as a human-readable string.
func (f *FileRecord) HumanSize() string {
	return FormatSize(f.Size)
}

// String renders the record for diagnostics.
func (f *FileRecord) String() string {
	return fmt.Sprintf("%s (%s, %s)", f.RelPath, shortHash(f.Hash), f.HumanSize())
}

// FileSet maps identity keys to the record that produced them.
type FileSet map[Key]FileRecord

// TotalSize returns the sum of all record sizes in the set.
func (s FileSet) TotalSize() int64 {
	var total int64
	for _, f := range s {
		total += f.Size
	}
	return total
}

// ActionKind distinguishes copy and delete actions.
type ActionKind string

const (
	// ActionCopy copies a source file into the target tree.
	ActionCopy ActionKind = "copy"
	// ActionDelete removes an orphaned file from the target tree.
	ActionDelete ActionKind = "delete"
)

// Action is a single change to apply to the target tree.
// For copies, Source is the absolute source path and Target is the
// target root joined with the source-relative path. For deletes, only
// Target is set and it is the absolute path of the orphaned file.
type Action struct {
	Kind   ActionKind `json:"kind" yaml:"kind"`
	Source string     `json:"source,omitempty" yaml:"source,omitempty"`
	Target string     `json:"target" yaml:"target"`
	Size   int64      `json:"size" yaml:"size"`
}

// Copy returns a copy action.
func Copy(source, target string, size int64) Action {
	return Action{Kind: ActionCopy, Source: source, Target: target, Size: size}
}

// Delete returns a delete action.
func Delete(path string, size int64) Action {
	return Action{Kind: ActionDelete, Target: path, Size: size}
}

// String renders the action for diagnostics.
func (a Action) String() string {
	if a.Kind == ActionCopy {
		return fmt.Sprintf("copy %s -> %s", a.Source, a.Target)
	}
	return fmt.Sprintf("delete %s", a.Target)
}

// Operation names used in ActionError.
const (
	OpDelete    = "delete"
	OpCopy      = "copy"
	OpMkdir     = "mkdir"
	OpRemoveDir = "rmdir"
)

// ActionError records a failed filesystem operation during execution.
// These are recoverable: the run continues past them.
type ActionError struct {
	Op   string `json:"op" yaml:"op"`
	Path string `json:"path" yaml:"path"`
	Err  string `json:"error" yaml:"error"`
}

// Error implements the error interface.
func (e ActionError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

// Report summarizes one execution of a plan.
type Report struct {
	// DryRun is set when no mutation was performed.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	Deleted     int   `json:"deleted" yaml:"deleted"`
	Copied      int   `json:"copied" yaml:"copied"`
	DirsCreated int   `json:"dirs_created" yaml:"dirs_created"`
	DirsRemoved int   `json:"dirs_removed" yaml:"dirs_removed"`
	BytesCopied int64 `json:"bytes_copied" yaml:"bytes_copied"`

	// Failures holds every recoverable error, in the order encountered.
	Failures []ActionError `json:"failures,omitempty" yaml:"failures,omitempty"`

	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// OK reports whether the execution finished without recorded failures.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Mutations returns the number of filesystem changes performed.
func (r *Report) Mutations() int {
	return r.Deleted + r.Copied + r.DirsCreated + r.DirsRemoved
}

// AddFailure records a recoverable failure.
func (r *Report) AddFailure(op, path string, err error) {
	r.Failures = append(r.Failures, ActionError{Op: op, Path: path, Err: err.Error()})
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string ("512", "100K", "10MB", "2GiB")
// and returns the size in bytes. Decimal values are truncated.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
