// Package schematic provides a typed, indexed, mutable object model over
// KiCad schematic files (.kicad_sch). Documents round-trip byte-exactly:
// any element the caller never touches is written back verbatim, while
// modified elements are regenerated in KiCad's canonical layout.
package schematic

import (
	"path"
	"strings"

	"github.com/tracekit/kicadsch/pkg/sexp"
)

// Re-export shared geometry types from the sexp package for convenience.
type Point = sexp.Point
type Size = sexp.Size

// DocState tracks the document lifecycle. Any mutating call moves a loaded
// document to StateModified; Save returns it to a clean state.
type DocState int

const (
	StateUnloaded DocState = iota
	StateLoaded
	StateModified
	StateSaved
)

func (s DocState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateModified:
		return "modified"
	case StateSaved:
		return "saved"
	default:
		return "unloaded"
	}
}

// Property is one named field of a component or sheet. Insertion order is
// significant and preserved on save.
type Property struct {
	Name  string
	Value string
}

// PinRef ties a pin number to the per-pin uuid KiCad stores on each placed
// symbol. Pin uuids identify net attachments across tools and must survive
// load/save cycles unchanged.
type PinRef struct {
	Number string
	UUID   string
}

// Rotation values are restricted to the four orientations KiCad allows for
// placed symbols.
const (
	Rot0   = 0
	Rot90  = 90
	Rot180 = 180
	Rot270 = 270
)

// Criteria filters components. Empty fields match anything; fields
// containing '*' glob-match; everything else compares exactly. All set
// fields must match (AND).
type Criteria struct {
	Reference string
	LibID     string
	Value     string
	Footprint string
}

// Match reports whether a component satisfies every set criterion.
func (c Criteria) Match(comp *Component) bool {
	return matchField(c.Reference, comp.Reference()) &&
		matchField(c.LibID, comp.LibID()) &&
		matchField(c.Value, comp.Value()) &&
		matchField(c.Footprint, comp.Footprint())
}

func matchField(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	if strings.Contains(pattern, "*") {
		ok, err := path.Match(pattern, value)
		return err == nil && ok
	}
	return pattern == value
}

// exact reports whether a criterion field pins down a single value, making
// it usable for an indexed lookup.
func exact(pattern string) bool {
	return pattern != "" && !strings.Contains(pattern, "*")
}
