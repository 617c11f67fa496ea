package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dirsync/pkg/dirsync/manifest"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// FormatHistory renders journal entries. json and yaml emit the entries
// verbatim; every other format gets a one-line-per-run table.
func FormatHistory(w *bytes.Buffer, format string, entries []manifest.Entry) error {
	if entries == nil {
		entries = []manifest.Entry{}
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(entries); err != nil {
			return err
		}
		return encoder.Close()
	}

	if len(entries) == 0 {
		w.WriteString("No journaled runs\n")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tWHEN\tCOPIED\tDELETED\tBYTES\tSTATUS\tTARGET"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			shortID(e.ID),
			e.Timestamp.Local().Format(time.DateTime),
			e.Report.Copied,
			e.Report.Deleted,
			types.FormatSize(e.Report.BytesCopied),
			entryStatus(e),
			e.Target,
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// FormatEntry renders a single journal entry as a full Result.
func FormatEntry(w *bytes.Buffer, format string, e *manifest.Entry) error {
	formatter, err := Get(format)
	if err != nil {
		return err
	}
	report := e.Report
	return formatter.Format(w, &Result{
		Source:    e.Source,
		Target:    e.Target,
		Actions:   e.Actions,
		Summary:   e.Summary,
		Report:    &report,
		JournalID: e.ID,
	})
}

func entryStatus(e manifest.Entry) string {
	switch {
	case e.Report.DryRun:
		return "dry-run"
	case e.Report.OK():
		return "ok"
	default:
		return fmt.Sprintf("%d failed", len(e.Report.Failures))
	}
}
