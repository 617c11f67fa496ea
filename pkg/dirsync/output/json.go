package output

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/dirsync/pkg/dirsync/diff"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// document is the machine-readable shape shared by the json and yaml formatters.
type document struct {
	Source    string         `json:"source" yaml:"source"`
	Target    string         `json:"target" yaml:"target"`
	Actions   []types.Action `json:"actions" yaml:"actions"`
	Summary   diff.Summary   `json:"summary" yaml:"summary"`
	Report    *reportDoc     `json:"report,omitempty" yaml:"report,omitempty"`
	JournalID string         `json:"journal_id,omitempty" yaml:"journal_id,omitempty"`
}

type reportDoc struct {
	types.Report `yaml:",inline"`
	OK           bool   `json:"ok" yaml:"ok"`
	ElapsedHuman string `json:"elapsed_human" yaml:"elapsed_human"`
}

func buildDocument(r *Result) document {
	actions := r.Actions
	if actions == nil {
		actions = []types.Action{}
	}

	doc := document{
		Source:    r.Source,
		Target:    r.Target,
		Actions:   actions,
		Summary:   r.Summary,
		JournalID: r.JournalID,
	}
	if r.Report != nil {
		doc.Report = &reportDoc{
			Report:       *r.Report,
			OK:           r.Report.OK(),
			ElapsedHuman: r.Report.Elapsed.String(),
		}
	}
	return doc
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
