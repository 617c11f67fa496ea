// Package diff computes the actions that bring a target tree in line with a
// source tree.
//
// Both trees are compared as sets of identity keys (relative path, content
// hash). A key only on the source side becomes a copy; a key only on the
// target side becomes a delete; a key on both sides needs nothing. A file
// whose content changed therefore shows up as a delete of the old key plus
// a copy of the new one, and a moved file is indistinguishable from an
// unrelated delete and add.
package diff

import (
	"path/filepath"
	"sort"

	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// Compute returns the actions that reconcile target with source.
// Copy targets are targetRoot joined with the source-relative path.
// The result lists deletes before copies, each sorted by path.
func Compute(source, target types.FileSet, targetRoot string) []types.Action {
	actions := make([]types.Action, 0)

	for key, rec := range target {
		if _, ok := source[key]; !ok {
			actions = append(actions, types.Delete(rec.Path, rec.Size))
		}
	}

	for key, rec := range source {
		if _, ok := target[key]; !ok {
			actions = append(actions, types.Copy(rec.Path, filepath.Join(targetRoot, rec.RelPath), rec.Size))
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.Kind != b.Kind {
			return a.Kind == types.ActionDelete
		}
		return a.Target < b.Target
	})

	return actions
}

// Summary counts the actions in a plan.
type Summary struct {
	Copies      int   `json:"copies" yaml:"copies"`
	Deletes     int   `json:"deletes" yaml:"deletes"`
	BytesToCopy int64 `json:"bytes_to_copy" yaml:"bytes_to_copy"`
}

// Total returns the number of actions.
func (s Summary) Total() int {
	return s.Copies + s.Deletes
}

// Empty reports whether there is nothing to do.
func (s Summary) Empty() bool {
	return s.Total() == 0
}

// Summarize counts actions by kind.
func Summarize(actions []types.Action) Summary {
	var s Summary
	for _, a := range actions {
		switch a.Kind {
		case types.ActionCopy:
			s.Copies++
			s.BytesToCopy += a.Size
		case types.ActionDelete:
			s.Deletes++
		}
	}
	return s
}

// Split partitions actions into deletes and copies, preserving order.
func Split(actions []types.Action) (deletes, copies []types.Action) {
	for _, a := range actions {
		switch a.Kind {
		case types.ActionDelete:
			deletes = append(deletes, a)
		case types.ActionCopy:
			copies = append(copies, a)
		}
	}
	return deletes, copies
}
