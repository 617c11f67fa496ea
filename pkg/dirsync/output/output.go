// Package output renders sync plans and run reports in various formats
// (pretty, plain, json, yaml).
//
// The package uses a registry so the CLI can select a formatter by name:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/dirsync/pkg/dirsync/diff"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// Result is everything a formatter may render.
type Result struct {
	Source  string
	Target  string
	Actions []types.Action
	Summary diff.Summary

	// Report is nil when only a plan was computed.
	Report *types.Report

	// JournalID is set when the run was journaled.
	JournalID string
}

// NewResult builds a Result and fills in the summary.
func NewResult(source, target string, actions []types.Action, report *types.Report) *Result {
	return &Result{
		Source:  source,
		Target:  target,
		Actions: actions,
		Summary: diff.Summarize(actions),
		Report:  report,
	}
}

// Executed reports whether the result describes a run that touched the target.
func (r *Result) Executed() bool {
	return r.Report != nil && !r.Report.DryRun
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted names of all registered formatters.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
