package schematic

import (
	"github.com/tracekit/kicadsch/pkg/sexp"
)

// Node synthesis and in-place editing helpers. Builders format numbers
// through the document's canonical rule table so regenerated subtrees match
// the file's format version.

func (s *Schematic) num(v float64) string {
	return s.rules.Number(v)
}

// atNode builds (at X Y ANGLE).
func (s *Schematic) atNode(p Point, angle float64) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("at"),
		sexp.NewSymbol(s.num(p.X)),
		sexp.NewSymbol(s.num(p.Y)),
		sexp.NewSymbol(s.num(angle)),
	)
}

// xyNode builds (xy X Y).
func (s *Schematic) xyNode(p Point) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("xy"),
		sexp.NewSymbol(s.num(p.X)),
		sexp.NewSymbol(s.num(p.Y)),
	)
}

// ptsNode builds (pts (xy ..) ...).
func (s *Schematic) ptsNode(points []Point) *sexp.Node {
	children := make([]*sexp.Node, 0, len(points)+1)
	children = append(children, sexp.NewSymbol("pts"))
	for _, p := range points {
		children = append(children, s.xyNode(p))
	}
	return sexp.NewList(children...)
}

// strokeNode builds (stroke (width W) (type default)).
func (s *Schematic) strokeNode(width float64) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("stroke"),
		sexp.NewList(sexp.NewSymbol("width"), sexp.NewSymbol(s.num(width))),
		sexp.NewList(sexp.NewSymbol("type"), sexp.NewSymbol("default")),
	)
}

// uuidNode builds (uuid "...").
func (s *Schematic) uuidNode(id string) *sexp.Node {
	return sexp.NewList(sexp.NewSymbol("uuid"), sexp.NewString(id))
}

// effectsNode builds the default text effects KiCad attaches to new text.
func (s *Schematic) effectsNode(hide bool) *sexp.Node {
	font := sexp.NewList(
		sexp.NewSymbol("font"),
		sexp.NewList(sexp.NewSymbol("size"),
			sexp.NewSymbol(s.num(1.27)), sexp.NewSymbol(s.num(1.27))),
	)
	children := []*sexp.Node{sexp.NewSymbol("effects"), font}
	if hide {
		children = append(children, sexp.NewList(sexp.NewSymbol("hide"), sexp.NewSymbol("yes")))
	}
	return sexp.NewList(children...)
}

// yesNo builds (TAG yes|no).
func yesNo(tag string, v bool) *sexp.Node {
	val := "no"
	if v {
		val = "yes"
	}
	return sexp.NewList(sexp.NewSymbol(tag), sexp.NewSymbol(val))
}

// setChild replaces the first child list of parent carrying the same tag as
// repl, or appends repl when no such child exists.
func setChild(parent *sexp.Node, repl *sexp.Node) {
	if existing, ok := sexp.FindChild(parent, repl.Tag()); ok {
		parent.ReplaceChild(existing, repl)
		return
	}
	parent.AppendChild(repl)
}

// propertyNode builds (property "Name" "Value" (at ..) (effects ..)).
// KiCad anchors property text near the owning element; new properties get
// deterministic offsets from the anchor point. Format versions before
// KiCad 7 carry a mandatory (id N) sub-field holding the zero-based
// property index.
func (s *Schematic) propertyNode(name, value string, id int, anchor Point, offsetY float64, hide bool) *sexp.Node {
	children := []*sexp.Node{
		sexp.NewSymbol("property"),
		sexp.NewString(name),
		sexp.NewString(value),
	}
	if s.rules.PropertyID {
		children = append(children,
			sexp.NewList(sexp.NewSymbol("id"), sexp.NewSymbol(s.num(float64(id)))))
	}
	children = append(children,
		s.atNode(Point{X: anchor.X + 2.54, Y: anchor.Y + offsetY}, 0),
		s.effectsNode(hide),
	)
	return sexp.NewList(children...)
}

// findProperty returns the (property "Name" ...) child with the given name.
func findProperty(parent *sexp.Node, name string) (*sexp.Node, bool) {
	for _, prop := range sexp.FindChildren(parent, "property") {
		if v, err := sexp.AtomValue(prop, 1); err == nil && v == name {
			return prop, true
		}
	}
	return nil, false
}

// setPropertyValue updates the value atom of the named property in place,
// preserving its position and text effects, or appends a fresh property
// node when the name is new. Returns true when a new node was created.
func (s *Schematic) setPropertyValue(parent *sexp.Node, name, value string, anchor Point) bool {
	if prop, ok := findProperty(parent, name); ok {
		// A malformed property may jump straight from the name to a
		// sub-list; the value atom must be inserted, not written into
		// the list node.
		if v := prop.Child(2); v != nil && !v.IsList() {
			v.SetValue(value)
			return false
		}
		prop.InsertChild(2, sexp.NewString(value))
		return false
	}
	id := len(sexp.FindChildren(parent, "property"))
	parent.AppendChild(s.propertyNode(name, value, id, anchor, 2.54, true))
	return true
}
