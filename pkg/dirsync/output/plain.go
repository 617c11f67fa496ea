package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// PlainFormatter writes an unstyled, tab-aligned listing suitable for
// scripting: one line per action, then one line per failure.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := fmt.Fprintln(tw, "ACTION\tSIZE\tPATH"); err != nil {
		return err
	}
	for _, a := range r.Actions {
		path := a.Target
		if a.Kind == types.ActionCopy {
			path = a.Source + " -> " + a.Target
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Kind, types.FormatSize(a.Size), path); err != nil {
			return err
		}
	}

	if r.Report != nil {
		for _, fail := range r.Report.Failures {
			if _, err := fmt.Fprintf(tw, "FAILED\t%s\t%s: %s\n", fail.Op, fail.Path, fail.Err); err != nil {
				return err
			}
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
