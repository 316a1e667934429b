// Package sexp provides the S-expression document core for KiCad schematic
// files: a span-preserving tokenizer and parser, a generic mutable Node tree
// with provenance tracking, and an emitter that replays untouched subtrees
// byte-for-byte while regenerating modified subtrees in KiCad's canonical
// layout.
package sexp

// Point represents a 2D coordinate in millimeters, KiCad convention
// (Y grows downward).
type Point struct {
	X float64
	Y float64
}

// Size represents dimensions in millimeters.
type Size struct {
	Width  float64
	Height float64
}

// Span is a half-open [Start, End) byte range into the source text a node
// was parsed from.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// SchematicGrid is the standard KiCad schematic grid pitch in millimeters
// (50 mil). Positions are not snapped by the engine; callers that want
// grid-aligned geometry use SnapToGrid explicitly.
const SchematicGrid = 1.27

// SnapToGrid quantizes a point to the nearest schematic grid intersection.
func SnapToGrid(p Point) Point {
	snap := func(v float64) float64 {
		n := v / SchematicGrid
		if n >= 0 {
			n += 0.5
		} else {
			n -= 0.5
		}
		return float64(int64(n)) * SchematicGrid
	}
	return Point{X: snap(p.X), Y: snap(p.Y)}
}
