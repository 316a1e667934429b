// Package erc runs electrical rule checks over a schematic document.
// Checks are pluggable: anything implementing Validator can be passed to
// Run alongside (or instead of) the built-in set.
package erc

import (
	"fmt"
	"math"

	"github.com/tracekit/kicadsch/pkg/schematic"
	"github.com/tracekit/kicadsch/pkg/sexp"
)

// Severity classifies an issue.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is one finding of a validator. EntityRefs identifies the
// offending elements by reference designator or uuid.
type Issue struct {
	Severity   Severity
	Message    string
	EntityRefs []string
}

// Validator inspects a document and reports issues.
type Validator interface {
	Name() string
	Validate(sch *schematic.Schematic) []Issue
}

// DefaultValidators returns the built-in check set.
func DefaultValidators() []Validator {
	return []Validator{
		DuplicateReferences{},
		EmptyValues{},
		OffGridPositions{},
	}
}

// Run executes the given validators (or the default set when none are
// given) and returns all issues, errors before warnings.
func Run(sch *schematic.Schematic, validators ...Validator) []Issue {
	if len(validators) == 0 {
		validators = DefaultValidators()
	}
	var errs, warns []Issue
	for _, v := range validators {
		for _, issue := range v.Validate(sch) {
			if issue.Severity == SeverityError {
				errs = append(errs, issue)
			} else {
				warns = append(warns, issue)
			}
		}
	}
	return append(errs, warns...)
}

// DuplicateReferences flags reference designators used by more than one
// component.
type DuplicateReferences struct{}

func (DuplicateReferences) Name() string { return "duplicate-references" }

func (DuplicateReferences) Validate(sch *schematic.Schematic) []Issue {
	seen := make(map[string][]string)
	var order []string
	for _, c := range sch.Components() {
		ref := c.Reference()
		if len(seen[ref]) == 0 {
			order = append(order, ref)
		}
		seen[ref] = append(seen[ref], c.UUID())
	}
	var issues []Issue
	for _, ref := range order {
		if len(seen[ref]) > 1 {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Message:    fmt.Sprintf("reference %s used by %d components", ref, len(seen[ref])),
				EntityRefs: seen[ref],
			})
		}
	}
	return issues
}

// EmptyValues flags components whose Value property is empty.
type EmptyValues struct{}

func (EmptyValues) Name() string { return "empty-values" }

func (EmptyValues) Validate(sch *schematic.Schematic) []Issue {
	var issues []Issue
	for _, c := range sch.Components() {
		if c.Value() == "" {
			issues = append(issues, Issue{
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("%s has an empty value", c.Reference()),
				EntityRefs: []string{c.Reference()},
			})
		}
	}
	return issues
}

// OffGridPositions flags components and junctions not aligned to the
// standard 50 mil grid. Off-grid placement is the usual cause of wires
// that look connected but are not.
type OffGridPositions struct{}

func (OffGridPositions) Name() string { return "off-grid-positions" }

func (OffGridPositions) Validate(sch *schematic.Schematic) []Issue {
	var issues []Issue
	check := func(ref string, p schematic.Point) {
		snapped := sexp.SnapToGrid(p)
		if math.Abs(snapped.X-p.X) > 1e-9 || math.Abs(snapped.Y-p.Y) > 1e-9 {
			issues = append(issues, Issue{
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("%s is off the 1.27mm grid at (%.4f, %.4f)", ref, p.X, p.Y),
				EntityRefs: []string{ref},
			})
		}
	}
	for _, c := range sch.Components() {
		check(c.Reference(), c.Position())
	}
	for _, j := range sch.Junctions() {
		check(j.UUID(), j.Position())
	}
	return issues
}
