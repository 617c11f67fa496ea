package diff

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

const (
	sourceRoot = "/src"
	targetRoot = "/dst"
)

func record(root, rel, hash string) types.FileRecord {
	return types.FileRecord{
		Name:    filepath.Base(rel),
		Path:    filepath.Join(root, rel),
		RelPath: rel,
		Hash:    hash,
		Size:    int64(len(hash)),
	}
}

func set(records ...types.FileRecord) types.FileSet {
	s := make(types.FileSet, len(records))
	for _, r := range records {
		s[r.Key()] = r
	}
	return s
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		source types.FileSet
		target types.FileSet
		want   []types.Action
	}{
		{
			name:   "both empty",
			source: set(),
			target: set(),
			want:   []types.Action{},
		},
		{
			name:   "new source file is copied",
			source: set(record(sourceRoot, "a.txt", "h1")),
			target: set(),
			want: []types.Action{
				types.Copy("/src/a.txt", "/dst/a.txt", 2),
			},
		},
		{
			name:   "orphaned target file is deleted",
			source: set(),
			target: set(record(targetRoot, "x/b.txt", "h2")),
			want: []types.Action{
				types.Delete("/dst/x/b.txt", 2),
			},
		},
		{
			name:   "matching file needs nothing",
			source: set(record(sourceRoot, "a.txt", "h1")),
			target: set(record(targetRoot, "a.txt", "h1")),
			want:   []types.Action{},
		},
		{
			name:   "changed content is delete plus copy",
			source: set(record(sourceRoot, "c.txt", "h1")),
			target: set(record(targetRoot, "c.txt", "h2")),
			want: []types.Action{
				types.Delete("/dst/c.txt", 2),
				types.Copy("/src/c.txt", "/dst/c.txt", 2),
			},
		},
		{
			name:   "moved file is not detected",
			source: set(record(sourceRoot, "d.txt", "h3")),
			target: set(record(targetRoot, "old/d.txt", "h3")),
			want: []types.Action{
				types.Delete("/dst/old/d.txt", 2),
				types.Copy("/src/d.txt", "/dst/d.txt", 2),
			},
		},
		{
			name: "mixed plan is ordered deletes first then by path",
			source: set(
				record(sourceRoot, "z.txt", "hz"),
				record(sourceRoot, "keep.txt", "hk"),
				record(sourceRoot, "a.txt", "ha"),
			),
			target: set(
				record(targetRoot, "keep.txt", "hk"),
				record(targetRoot, "y.txt", "hy"),
				record(targetRoot, "b.txt", "hb"),
			),
			want: []types.Action{
				types.Delete("/dst/b.txt", 2),
				types.Delete("/dst/y.txt", 2),
				types.Copy("/src/a.txt", "/dst/a.txt", 2),
				types.Copy("/src/z.txt", "/dst/z.txt", 2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.source, tt.target, targetRoot)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestCompute_SetDifference checks the action counts against |S\T| and |T\S|
// over a range of overlapping sets.
func TestCompute_SetDifference(t *testing.T) {
	for n := 0; n < 6; n++ {
		for overlap := 0; overlap <= n; overlap++ {
			t.Run(fmt.Sprintf("n=%d/overlap=%d", n, overlap), func(t *testing.T) {
				source, target := set(), set()
				for i := 0; i < n; i++ {
					r := record(sourceRoot, fmt.Sprintf("s%d", i), fmt.Sprintf("h%d", i))
					source[r.Key()] = r
				}
				// The first `overlap` target files share keys with the source.
				for i := 0; i < n; i++ {
					rel, hash := fmt.Sprintf("t%d", i), fmt.Sprintf("x%d", i)
					if i < overlap {
						rel, hash = fmt.Sprintf("s%d", i), fmt.Sprintf("h%d", i)
					}
					r := record(targetRoot, rel, hash)
					target[r.Key()] = r
				}

				actions := Compute(source, target, targetRoot)
				summary := Summarize(actions)

				assert.Equal(t, n-overlap, summary.Copies)
				assert.Equal(t, n-overlap, summary.Deletes)
				assert.Equal(t, 2*(n-overlap), summary.Total())

				seen := make(map[string]int)
				for _, a := range actions {
					seen[string(a.Kind)+":"+a.Target]++
				}
				for k, count := range seen {
					assert.Equal(t, 1, count, "duplicate action %s", k)
				}
			})
		}
	}
}

func TestSummarize(t *testing.T) {
	actions := []types.Action{
		types.Copy("/src/a", "/dst/a", 10),
		types.Copy("/src/b", "/dst/b", 5),
		types.Delete("/dst/c", 99),
	}

	s := Summarize(actions)
	assert.Equal(t, Summary{Copies: 2, Deletes: 1, BytesToCopy: 15}, s)
	assert.False(t, s.Empty())
	assert.True(t, Summarize(nil).Empty())
}

func TestSplit(t *testing.T) {
	actions := []types.Action{
		types.Copy("/src/a", "/dst/a", 1),
		types.Delete("/dst/c", 1),
		types.Copy("/src/b", "/dst/b", 1),
	}

	deletes, copies := Split(actions)
	require.Len(t, deletes, 1)
	require.Len(t, copies, 2)
	assert.Equal(t, "/dst/c", deletes[0].Target)
	assert.Equal(t, "/dst/a", copies[0].Target)
	assert.Equal(t, "/dst/b", copies[1].Target)
}
