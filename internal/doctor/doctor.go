// Package doctor provides health checks for ownership calculations.
//
// The doctor command validates that a calculation is internally consistent
// and safe to compute: structure, referential integrity, direct share sums,
// cycles, display-name collisions, and, when a database is configured, the
// store's migration state.
//
// Example usage:
//
//	d := doctor.New(calc, doctor.WithStore(st))
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/model"
	"github.com/Stoky555/ownership-graph/pkg/report"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates the calculation is inconsistent.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Structure", "Sums").
	Category string `json:"category"`

	// Name is a short identifier for the check.
	Name string `json:"name"`

	Status  Status `json:"status"`
	Message string `json:"message"`

	// Details provides additional information for verbose output.
	Details string `json:"details,omitempty"`

	// FixHint suggests how to resolve issues.
	FixHint string `json:"fixHint,omitempty"`
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult `json:"checks"`

	// Summary counts.
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor runs health checks over one calculation.
type Doctor struct {
	calc  snapshot.Calculation
	store *store.Store
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithStore adds the store migration checks.
func WithStore(s *store.Store) Option {
	return func(d *Doctor) { d.store = s }
}

// New creates a Doctor for calc.
func New(calc snapshot.Calculation, opts ...Option) *Doctor {
	d := &Doctor{calc: calc}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes all health checks and returns a report. Only store access
// can fail; calculation problems are reported as checks.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	r := &Report{}

	d.checkStructure(r)
	d.checkReferences(r)
	d.checkIdentifiers(r)
	d.checkSums(r)
	d.checkCycles(r)
	d.checkNames(r)
	if d.store != nil {
		if err := d.checkStore(ctx, r); err != nil {
			return nil, fmt.Errorf("checking store: %w", err)
		}
	}
	return r, nil
}

func (d *Doctor) checkStructure(r *Report) {
	if err := snapshot.Validate(d.calc); err != nil {
		r.AddCheck(CheckResult{
			Category: "Structure",
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Calculation has invalid records",
			Details:  err.Error(),
			FixHint:  "Every record needs an id; percents must be in (0, 100]",
		})
		return
	}
	r.AddCheck(CheckResult{
		Category: "Structure",
		Name:     "valid",
		Status:   StatusPass,
		Message: fmt.Sprintf("Calculation is valid (%d entities, %d objects, %d ownerships)",
			len(d.calc.Entities), len(d.calc.Objects), len(d.calc.Ownerships)),
	})
}

func (d *Doctor) checkReferences(r *Report) {
	err := snapshot.CheckReferences(d.calc)
	if err == nil {
		r.AddCheck(CheckResult{
			Category: "References",
			Name:     "closed",
			Status:   StatusPass,
			Message:  "All ownerships reference known owners and objects",
		})
		return
	}
	lines := joinedLines(err)
	r.AddCheck(CheckResult{
		Category: "References",
		Name:     "closed",
		Status:   StatusFail,
		Message:  fmt.Sprintf("%d dangling reference(s)", len(lines)),
		Details:  strings.Join(lines, "\n"),
		FixHint:  "Add the missing entities/objects or delete the ownerships that point at them",
	})
}

func (d *Doctor) checkIdentifiers(r *Report) {
	var dupes []string
	seen := map[string]bool{}
	note := func(kind, id string) {
		key := kind + ":" + id
		if seen[key] {
			dupes = append(dupes, fmt.Sprintf("%s %q appears more than once", kind, id))
		}
		seen[key] = true
	}
	for _, e := range d.calc.Entities {
		note("entity", e.ID)
	}
	for _, o := range d.calc.Objects {
		note("object", o.ID)
	}
	for _, o := range d.calc.Ownerships {
		note("ownership", o.ID)
	}

	if len(dupes) > 0 {
		r.AddCheck(CheckResult{
			Category: "Identifiers",
			Name:     "unique",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d duplicate id(s)", len(dupes)),
			Details:  strings.Join(dupes, "\n"),
			FixHint:  "Give every entity, object and ownership a distinct id",
		})
	} else {
		r.AddCheck(CheckResult{
			Category: "Identifiers",
			Name:     "unique",
			Status:   StatusPass,
			Message:  "All ids are unique",
		})
	}

	pairs := map[string]int{}
	var order []string
	for _, o := range d.calc.Ownerships {
		id := engine.DirectID(o)
		if pairs[id] == 0 {
			order = append(order, id)
		}
		pairs[id]++
	}
	var repeated []string
	for _, id := range order {
		if pairs[id] > 1 {
			repeated = append(repeated, fmt.Sprintf("%s (%d records)", id, pairs[id]))
		}
	}
	if len(repeated) > 0 {
		r.AddCheck(CheckResult{
			Category: "Identifiers",
			Name:     "pairs",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d owner/object pair(s) have several records; they are summed", len(repeated)),
			Details:  strings.Join(repeated, "\n"),
			FixHint:  "Merge the records if the split is unintentional",
		})
	}
}

func (d *Doctor) checkSums(r *Report) {
	var exceeds, below, none []string
	for _, s := range report.Summarize(d.calc) {
		label := s.Object
		if label == "" {
			label = s.ObjectID
		}
		line := fmt.Sprintf("%s: %.2f%% from %d owner(s)", label, s.Total, len(s.Owners))
		switch s.Status {
		case report.StatusExceeds:
			exceeds = append(exceeds, line)
		case report.StatusBelow:
			below = append(below, line)
		case report.StatusNone:
			none = append(none, label)
		}
	}

	if len(exceeds) > 0 {
		r.AddCheck(CheckResult{
			Category: "Sums",
			Name:     "exceeds",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d object(s) are owned more than 100%%", len(exceeds)),
			Details:  strings.Join(exceeds, "\n"),
			FixHint:  "Reduce the direct shares so each object totals at most 100%",
		})
	} else {
		r.AddCheck(CheckResult{
			Category: "Sums",
			Name:     "exceeds",
			Status:   StatusPass,
			Message:  "No object is owned more than 100%",
		})
	}
	if len(below) > 0 {
		r.AddCheck(CheckResult{
			Category: "Sums",
			Name:     "below",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d object(s) are owned less than 100%%", len(below)),
			Details:  strings.Join(below, "\n"),
		})
	}
	if len(none) > 0 {
		r.AddCheck(CheckResult{
			Category: "Sums",
			Name:     "unowned",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d object(s) have no direct owners", len(none)),
			Details:  strings.Join(none, "\n"),
		})
	}
}

func (d *Doctor) checkCycles(r *Report) {
	cycles := engine.DetectCycles(d.calc.Ownerships)
	if len(cycles) == 0 {
		r.AddCheck(CheckResult{
			Category: "Cycles",
			Name:     "acyclic",
			Status:   StatusPass,
			Message:  "Ownership graph is acyclic",
		})
		return
	}
	lines := make([]string, 0, len(cycles))
	for _, c := range cycles {
		lines = append(lines, engine.FormatCycle(c))
	}
	r.AddCheck(CheckResult{
		Category: "Cycles",
		Name:     "acyclic",
		Status:   StatusWarn,
		Message:  fmt.Sprintf("%d ownership cycle(s); each path stops where it would revisit a node", len(cycles)),
		Details:  strings.Join(lines, "\n"),
	})
}

func (d *Doctor) checkNames(r *Report) {
	byName := map[string][]string{}
	var unnamed []string
	add := func(ref model.OwnerRef, name string) {
		if strings.TrimSpace(name) == "" {
			unnamed = append(unnamed, ref.Key())
			return
		}
		byName[name] = append(byName[name], ref.Key())
	}
	for _, e := range d.calc.Entities {
		add(model.EntityOwner(e.ID), e.Name)
	}
	for _, o := range d.calc.Objects {
		add(model.ObjectOwner(o.ID), o.Name)
	}

	names := make([]string, 0, len(byName))
	for name, keys := range byName {
		if len(keys) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		r.AddCheck(CheckResult{
			Category: "Names",
			Name:     "distinct",
			Status:   StatusPass,
			Message:  "Display names are distinct",
		})
	} else {
		lines := make([]string, 0, len(names))
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%q: %s", name, strings.Join(byName[name], ", ")))
		}
		r.AddCheck(CheckResult{
			Category: "Names",
			Name:     "distinct",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d display name(s) are shared; name-keyed results merge them", len(names)),
			Details:  strings.Join(lines, "\n"),
			FixHint:  "Rename the nodes or use id-keyed output",
		})
	}

	if len(unnamed) > 0 {
		r.AddCheck(CheckResult{
			Category: "Names",
			Name:     "present",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d node(s) have no name; placeholders are shown", len(unnamed)),
			Details:  strings.Join(unnamed, "\n"),
		})
	}
}

func (d *Doctor) checkStore(ctx context.Context, r *Report) error {
	st, err := d.store.Status(ctx)
	if err != nil {
		return err
	}
	switch {
	case !st.Migrated:
		r.AddCheck(CheckResult{
			Category: "Store",
			Name:     "migrated",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Store (%s) has not been migrated", st.Driver),
			FixHint:  "Run 'ownership migrate'",
		})
	case !st.UpToDate:
		r.AddCheck(CheckResult{
			Category: "Store",
			Name:     "migrated",
			Status:   StatusWarn,
			Message:  "Store schema is out of date",
			Details:  fmt.Sprintf("recorded version %d, current %d", st.LastMigration.Version, store.SchemaVersion),
			FixHint:  "Run 'ownership migrate'",
		})
	default:
		r.AddCheck(CheckResult{
			Category: "Store",
			Name:     "migrated",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Store (%s) is migrated, %d calculation(s) saved", st.Driver, st.Calculations),
		})
	}
	return nil
}

// joinedLines splits an errors.Join result into one message per error.
func joinedLines(err error) []string {
	var multi interface{ Unwrap() []error }
	if errors.As(err, &multi) {
		out := make([]string, 0, len(multi.Unwrap()))
		for _, e := range multi.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
