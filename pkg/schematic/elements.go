package schematic

import (
	"github.com/tracekit/kicadsch/pkg/sexp"
)

// Wire is a single straight or polyline wire segment.
type Wire struct {
	sch  *Schematic
	node *sexp.Node

	uuid   string
	points []Point
	width  float64
}

// UUID returns the wire uuid.
func (w *Wire) UUID() string { return w.uuid }

// Points returns the wire vertices in order (at least two).
func (w *Wire) Points() []Point {
	out := make([]Point, len(w.points))
	copy(out, w.points)
	return out
}

// Width returns the stroke width in millimeters (0 means default).
func (w *Wire) Width() float64 { return w.width }

// SetPoints replaces the wire geometry.
func (w *Wire) SetPoints(points []Point) {
	w.points = append(w.points[:0:0], points...)
	setChild(w.node, w.sch.ptsNode(points))
	w.touch()
}

// SetWidth changes the stroke width.
func (w *Wire) SetWidth(width float64) {
	w.width = width
	setChild(w.node, w.sch.strokeNode(width))
	w.touch()
}

func (w *Wire) touch() {
	w.node.MarkDirty()
	w.sch.wires.Invalidate()
	w.sch.markModified()
}

func raiseWire(s *Schematic, node *sexp.Node) *Wire {
	w := &Wire{sch: s, node: node}
	w.points = sexp.PointsOf(node)
	if id, ok := sexp.ChildAtom(node, "uuid"); ok {
		w.uuid = id
	}
	if stroke, ok := sexp.FindChild(node, "stroke"); ok {
		if width, ok := sexp.ChildFloat(stroke, "width"); ok {
			w.width = width
		}
	}
	return w
}

func (s *Schematic) buildWireNode(w *Wire) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("wire"),
		s.ptsNode(w.points),
		s.strokeNode(w.width),
		s.uuidNode(w.uuid),
	)
}

// Junction marks an electrical connection where wires cross.
type Junction struct {
	sch  *Schematic
	node *sexp.Node

	uuid     string
	position Point
	diameter float64
}

// UUID returns the junction uuid.
func (j *Junction) UUID() string { return j.uuid }

// Position returns the junction position.
func (j *Junction) Position() Point { return j.position }

// Diameter returns the dot diameter; 0 selects KiCad's default.
func (j *Junction) Diameter() float64 { return j.diameter }

// SetPosition moves the junction.
func (j *Junction) SetPosition(p Point) {
	j.position = p
	setChild(j.node, j.sch.atNode(p, 0))
	j.touch()
}

// SetDiameter changes the dot diameter.
func (j *Junction) SetDiameter(d float64) {
	j.diameter = d
	setChild(j.node, sexp.NewList(sexp.NewSymbol("diameter"), sexp.NewSymbol(j.sch.num(d))))
	j.touch()
}

func (j *Junction) touch() {
	j.node.MarkDirty()
	j.sch.junctions.Invalidate()
	j.sch.markModified()
}

func raiseJunction(s *Schematic, node *sexp.Node) *Junction {
	j := &Junction{sch: s, node: node}
	if p, _, ok := sexp.PositionOf(node); ok {
		j.position = p
	}
	if d, ok := sexp.ChildFloat(node, "diameter"); ok {
		j.diameter = d
	}
	if id, ok := sexp.ChildAtom(node, "uuid"); ok {
		j.uuid = id
	}
	return j
}

func (s *Schematic) buildJunctionNode(j *Junction) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("junction"),
		s.atNode(j.position, 0),
		sexp.NewList(sexp.NewSymbol("diameter"), sexp.NewSymbol(s.num(j.diameter))),
		sexp.NewList(sexp.NewSymbol("color"),
			sexp.NewSymbol("0"), sexp.NewSymbol("0"), sexp.NewSymbol("0"), sexp.NewSymbol("0")),
		s.uuidNode(j.uuid),
	)
}

// NoConnect marks a deliberately unconnected pin.
type NoConnect struct {
	sch  *Schematic
	node *sexp.Node

	uuid     string
	position Point
}

// UUID returns the marker uuid.
func (n *NoConnect) UUID() string { return n.uuid }

// Position returns the marker position.
func (n *NoConnect) Position() Point { return n.position }

func raiseNoConnect(s *Schematic, node *sexp.Node) *NoConnect {
	nc := &NoConnect{sch: s, node: node}
	if p, _, ok := sexp.PositionOf(node); ok {
		nc.position = p
	}
	if id, ok := sexp.ChildAtom(node, "uuid"); ok {
		nc.uuid = id
	}
	return nc
}

func (s *Schematic) buildNoConnectNode(nc *NoConnect) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("no_connect"),
		s.atNode(nc.position, 0),
		s.uuidNode(nc.uuid),
	)
}

// LabelKind distinguishes the three net-label variants.
type LabelKind int

const (
	LabelLocal LabelKind = iota
	LabelGlobal
	LabelHierarchical
)

func (k LabelKind) tag() string {
	switch k {
	case LabelGlobal:
		return "global_label"
	case LabelHierarchical:
		return "hierarchical_label"
	default:
		return "label"
	}
}

// labelKindForTag maps an element tag back to its kind.
func labelKindForTag(tag string) (LabelKind, bool) {
	switch tag {
	case "label":
		return LabelLocal, true
	case "global_label":
		return LabelGlobal, true
	case "hierarchical_label":
		return LabelHierarchical, true
	}
	return 0, false
}

// Label names a net at a position. Global and hierarchical labels carry a
// shape (input, output, bidirectional, tri_state, passive).
type Label struct {
	sch  *Schematic
	node *sexp.Node

	kind     LabelKind
	uuid     string
	text     string
	position Point
	rotation int
	shape    string
}

// UUID returns the label uuid.
func (l *Label) UUID() string { return l.uuid }

// Kind returns the label variant.
func (l *Label) Kind() LabelKind { return l.kind }

// Text returns the net name.
func (l *Label) Text() string { return l.text }

// Position returns the label anchor position.
func (l *Label) Position() Point { return l.position }

// Rotation returns the text rotation in degrees.
func (l *Label) Rotation() int { return l.rotation }

// Shape returns the connector shape of global and hierarchical labels,
// or "" for local labels.
func (l *Label) Shape() string { return l.shape }

// SetText renames the net.
func (l *Label) SetText(text string) {
	l.text = text
	if v := l.node.Child(1); v != nil && !v.IsList() {
		v.SetValue(text)
	}
	l.touch()
}

// SetPosition moves the label.
func (l *Label) SetPosition(p Point) {
	l.position = p
	setChild(l.node, l.sch.atNode(p, float64(l.rotation)))
	l.touch()
}

// SetRotation rotates the label text.
func (l *Label) SetRotation(deg int) {
	l.rotation = deg
	setChild(l.node, l.sch.atNode(l.position, float64(deg)))
	l.touch()
}

// SetShape changes the connector shape. Ignored for local labels, which
// have none.
func (l *Label) SetShape(shape string) {
	if l.kind == LabelLocal {
		return
	}
	l.shape = shape
	setChild(l.node, sexp.NewList(sexp.NewSymbol("shape"), sexp.NewSymbol(shape)))
	l.touch()
}

func (l *Label) touch() {
	l.node.MarkDirty()
	l.sch.labels.Invalidate()
	l.sch.markModified()
}

func raiseLabel(s *Schematic, node *sexp.Node, kind LabelKind) *Label {
	l := &Label{sch: s, node: node, kind: kind}
	if text, err := sexp.AtomValue(node, 1); err == nil {
		l.text = text
	}
	if p, angle, ok := sexp.PositionOf(node); ok {
		l.position = p
		l.rotation = int(angle)
	}
	if shape, ok := sexp.ChildAtom(node, "shape"); ok {
		l.shape = shape
	}
	if id, ok := sexp.ChildAtom(node, "uuid"); ok {
		l.uuid = id
	}
	return l
}

func (s *Schematic) buildLabelNode(l *Label) *sexp.Node {
	node := sexp.NewList(
		sexp.NewSymbol(l.kind.tag()),
		sexp.NewString(l.text),
	)
	if l.kind != LabelLocal && l.shape != "" {
		node.AppendChild(sexp.NewList(sexp.NewSymbol("shape"), sexp.NewSymbol(l.shape)))
	}
	node.AppendChild(s.atNode(l.position, float64(l.rotation)))
	node.AppendChild(s.effectsNode(false))
	node.AppendChild(s.uuidNode(l.uuid))
	return node
}

// Text is free graphical text with no electrical meaning.
type Text struct {
	sch  *Schematic
	node *sexp.Node

	uuid     string
	text     string
	position Point
	rotation int
}

// UUID returns the text uuid.
func (t *Text) UUID() string { return t.uuid }

// Text returns the content.
func (t *Text) Text() string { return t.text }

// Position returns the anchor position.
func (t *Text) Position() Point { return t.position }

// SetText replaces the content.
func (t *Text) SetText(text string) {
	t.text = text
	if v := t.node.Child(1); v != nil && !v.IsList() {
		v.SetValue(text)
	}
	t.touch()
}

func (t *Text) touch() {
	t.node.MarkDirty()
	t.sch.texts.Invalidate()
	t.sch.markModified()
}

func raiseText(s *Schematic, node *sexp.Node) *Text {
	t := &Text{sch: s, node: node}
	if text, err := sexp.AtomValue(node, 1); err == nil {
		t.text = text
	}
	if p, angle, ok := sexp.PositionOf(node); ok {
		t.position = p
		t.rotation = int(angle)
	}
	if id, ok := sexp.ChildAtom(node, "uuid"); ok {
		t.uuid = id
	}
	return t
}

func (s *Schematic) buildTextNode(t *Text) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("text"),
		sexp.NewString(t.text),
		s.atNode(t.position, float64(t.rotation)),
		s.effectsNode(false),
		s.uuidNode(t.uuid),
	)
}
