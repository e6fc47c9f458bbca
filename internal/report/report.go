package report

import (
	"sort"
	"sync"
)

// Report is the outcome of one validation run. Slices are never nil so
// renderers produce [] rather than null.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Info     []Issue `json:"info"`
}

// HasErrors returns true if any error-severity issues are present
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Total returns the number of issues across all severities
func (r *Report) Total() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Info)
}

// All returns every issue, errors first
func (r *Report) All() []Issue {
	all := make([]Issue, 0, r.Total())
	all = append(all, r.Errors...)
	all = append(all, r.Warnings...)
	all = append(all, r.Info...)
	return all
}

// Builder collects issues from concurrent checkers. It is the single
// synchronization point of a validation run.
type Builder struct {
	mu     sync.Mutex
	issues []Issue
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends issues; safe for concurrent use
func (b *Builder) Add(issues ...Issue) {
	if len(issues) == 0 {
		return
	}
	b.mu.Lock()
	b.issues = append(b.issues, issues...)
	b.mu.Unlock()
}

// Len returns the number of issues added so far, duplicates included
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.issues)
}

// Build partitions issues by severity, drops exact duplicates, and sorts
// each partition by rule id, location and message. In strict mode warnings
// also make the report invalid.
func (b *Builder) Build(strict bool) *Report {
	b.mu.Lock()
	issues := make([]Issue, len(b.issues))
	copy(issues, b.issues)
	b.mu.Unlock()

	r := &Report{
		Errors:   []Issue{},
		Warnings: []Issue{},
		Info:     []Issue{},
	}

	seen := make(map[Issue]struct{}, len(issues))
	for _, issue := range issues {
		if _, dup := seen[issue]; dup {
			continue
		}
		seen[issue] = struct{}{}

		switch issue.Severity {
		case SeverityError:
			r.Errors = append(r.Errors, issue)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, issue)
		default:
			r.Info = append(r.Info, issue)
		}
	}

	for _, partition := range [][]Issue{r.Errors, r.Warnings, r.Info} {
		sort.Slice(partition, func(i, j int) bool { return less(partition[i], partition[j]) })
	}

	r.Valid = len(r.Errors) == 0 && (!strict || len(r.Warnings) == 0)
	return r
}
