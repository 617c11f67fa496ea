package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dirsync/pkg/dirsync/manifest"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

func sampleResult() *Result {
	actions := []types.Action{
		types.Delete("/dst/old.txt", 12),
		types.Copy("/src/a/new.bin", "/dst/a/new.bin", 2048),
	}
	report := &types.Report{
		Deleted:     1,
		Copied:      1,
		BytesCopied: 2048,
		DirsCreated: 1,
		Elapsed:     1500 * time.Millisecond,
	}
	return NewResult("/src", "/dst", actions, report)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("default formatters are registered", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"json", "plain", "pretty", "yaml"}, Available())
	})

	t.Run("unknown formatter", func(t *testing.T) {
		t.Parallel()
		_, err := Get("xml")
		assert.Error(t, err)
	})

	t.Run("custom registry", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry()
		reg.Register("plain", func() Formatter { return &PlainFormatter{} })
		f, err := reg.Get("plain")
		require.NoError(t, err)
		assert.IsType(t, &PlainFormatter{}, f)
		assert.Equal(t, []string{"plain"}, reg.Available())
	})
}

func TestNewResult(t *testing.T) {
	t.Parallel()

	r := sampleResult()
	assert.Equal(t, 1, r.Summary.Copies)
	assert.Equal(t, 1, r.Summary.Deletes)
	assert.Equal(t, int64(2048), r.Summary.BytesToCopy)
	assert.True(t, r.Executed())

	plan := NewResult("/src", "/dst", nil, nil)
	assert.False(t, plan.Executed())
	assert.True(t, plan.Summary.Empty())
}

func TestPrettyFormatter(t *testing.T) {
	t.Parallel()

	t.Run("lists actions and summary", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, (&PrettyFormatter{}).Format(&buf, sampleResult()))

		out := buf.String()
		assert.Contains(t, out, "/src")
		assert.Contains(t, out, "/dst/old.txt")
		assert.Contains(t, out, "/dst/a/new.bin")
		assert.Contains(t, out, "2.0 KiB")
		assert.Contains(t, out, "ACTION")
		assert.Contains(t, out, "ok")
	})

	t.Run("in sync", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, (&PrettyFormatter{}).Format(&buf, NewResult("/src", "/dst", nil, nil)))
		assert.Contains(t, buf.String(), "already in sync")
		assert.Contains(t, buf.String(), "Plan only")
	})

	t.Run("dry run", func(t *testing.T) {
		t.Parallel()
		r := sampleResult()
		r.Report = &types.Report{DryRun: true}
		var buf bytes.Buffer
		require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))
		assert.Contains(t, buf.String(), "Dry run")
	})

	t.Run("failures", func(t *testing.T) {
		t.Parallel()
		r := sampleResult()
		r.Report.AddFailure(types.OpCopy, "/dst/a/new.bin", errors.New("permission denied"))
		var buf bytes.Buffer
		require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))
		assert.Contains(t, buf.String(), "1 failed")
		assert.Contains(t, buf.String(), "permission denied")
	})
}

func TestPlainFormatter(t *testing.T) {
	t.Parallel()

	r := sampleResult()
	r.Report.AddFailure(types.OpDelete, "/dst/locked", errors.New("busy"))

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ACTION"))
	assert.Contains(t, lines[1], "delete")
	assert.Contains(t, lines[1], "/dst/old.txt")
	assert.Contains(t, lines[2], "/src/a/new.bin -> /dst/a/new.bin")
	assert.Contains(t, lines[3], "FAILED")
	assert.Contains(t, lines[3], "/dst/locked: busy")
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleResult()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "/src", got["source"])
	assert.Len(t, got["actions"], 2)

	report, ok := got["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, report["ok"])
	assert.Equal(t, float64(1), report["copied"])
	assert.Equal(t, "1.5s", report["elapsed_human"])

	t.Run("plan has empty actions and no report", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, (&JSONFormatter{}).Format(&buf, NewResult("/s", "/t", nil, nil)))
		assert.Contains(t, buf.String(), `"actions": []`)
		assert.NotContains(t, buf.String(), `"report"`)
	})
}

func TestYAMLFormatter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleResult()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "/dst", got["target"])
	report, ok := got["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, report["deleted"])
	assert.Equal(t, true, report["ok"])
}

func TestFormatHistory(t *testing.T) {
	t.Parallel()

	entries := []manifest.Entry{
		{
			ID:        "0123456789abcdef",
			Timestamp: time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
			Target:    "/dst",
			Report:    types.Report{Copied: 3, Deleted: 1, BytesCopied: 1024},
		},
		{
			ID:     "fedcba9876543210",
			Target: "/dst",
			Report: types.Report{DryRun: true},
		},
	}

	t.Run("table", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, FormatHistory(&buf, "pretty", entries))
		out := buf.String()
		assert.Contains(t, out, "01234567")
		assert.NotContains(t, out, "0123456789")
		assert.Contains(t, out, "1.0 KiB")
		assert.Contains(t, out, "dry-run")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, FormatHistory(&buf, "json", entries))
		var got []manifest.Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, FormatHistory(&buf, "plain", nil))
		assert.Contains(t, buf.String(), "No journaled runs")
	})
}

func TestFormatEntry(t *testing.T) {
	t.Parallel()

	e := &manifest.Entry{
		ID:      "0123456789abcdef",
		Source:  "/src",
		Target:  "/dst",
		Actions: []types.Action{types.Copy("/src/a", "/dst/a", 1)},
		Report:  types.Report{Copied: 1, BytesCopied: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatEntry(&buf, "plain", e))
	assert.Contains(t, buf.String(), "/src/a -> /dst/a")

	assert.Error(t, FormatEntry(&buf, "nope", e))
}
