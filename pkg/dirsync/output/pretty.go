package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if r.Report != nil && len(r.Report.Failures) > 0 {
		w.WriteString(f.formatFailures(r.Report.Failures))
		w.WriteString("\n")
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		LabelStyle.Render("Source:") + " " + ValueStyle.Render(r.Source),
		LabelStyle.Render("Target:") + " " + ValueStyle.Render(r.Target),
	}

	switch {
	case r.Report == nil:
		lines = append(lines, MutedStyle.Render("Plan only, nothing was changed"))
	case r.Report.DryRun:
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run, nothing was changed"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Actions) == 0 {
		return SuccessStyle.Render("  Target is already in sync\n")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s%s%s\n",
		TableHeaderStyle.Render(padRight("ACTION", 6)),
		TableHeaderStyle.Render(padLeft("SIZE", 10)),
		TableHeaderStyle.Render("PATH")))

	for _, a := range r.Actions {
		kind := ErrorStyle.Render(padRight(string(a.Kind), 6))
		if a.Kind == types.ActionCopy {
			kind = SuccessStyle.Render(padRight(string(a.Kind), 6))
		}
		size := SizeStyle.Render(padLeft(types.FormatSize(a.Size), 10))
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", kind, size, PathStyle.Render(a.Target)))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	s := r.Summary
	parts := []string{
		LabelStyle.Render("Copies:") + " " + ValueStyle.Render(fmt.Sprintf("%d", s.Copies)),
		LabelStyle.Render("Deletes:") + " " + ValueStyle.Render(fmt.Sprintf("%d", s.Deletes)),
		LabelStyle.Render("Bytes:") + " " + SizeStyle.Render(humanize.IBytes(uint64(max(s.BytesToCopy, 0)))),
	}

	if r.Executed() {
		rep := r.Report
		parts = append(parts,
			LabelStyle.Render("Dirs:")+" "+ValueStyle.Render(fmt.Sprintf("+%d -%d", rep.DirsCreated, rep.DirsRemoved)),
			LabelStyle.Render("Took:")+" "+ValueStyle.Render(rep.Elapsed.Round(time.Millisecond).String()),
		)
		if rep.OK() {
			parts = append(parts, SuccessStyle.Render("ok"))
		} else {
			parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d failed", len(rep.Failures))))
		}
	}

	if r.JournalID != "" {
		parts = append(parts, MutedStyle.Render("journal "+shortID(r.JournalID)))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatFailures(failures []types.ActionError) string {
	lines := []string{ErrorStyle.Bold(true).Render("Failures:")}
	for _, fail := range failures {
		lines = append(lines, ErrorStyle.Render(fail.Error()))
	}
	return ErrorBox.Render(strings.Join(lines, "\n"))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
