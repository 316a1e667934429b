package schematic

import (
	"github.com/google/uuid"

	"github.com/tracekit/kicadsch/pkg/sexp"
)

// Sheet is a hierarchical sub-schematic reference: a rectangle with a name,
// a backing file, and pins that connect to hierarchical labels inside the
// sub-schematic.
type Sheet struct {
	sch  *Schematic
	node *sexp.Node

	uuid     string
	name     string
	filename string
	position Point
	size     Size
	pins     []*SheetPin
}

// SheetPin is one hierarchical connection point on a sheet border.
type SheetPin struct {
	sheet *Sheet

	UUID     string
	Name     string
	Shape    string // input, output, bidirectional, tri_state, passive
	Position Point
	Rotation int
}

// Side returns which border of the sheet the pin sits on, derived from its
// rotation: 0=right, 90=top, 180=left, 270=bottom.
func (p *SheetPin) Side() string {
	switch p.Rotation {
	case 90:
		return "top"
	case 180:
		return "left"
	case 270:
		return "bottom"
	default:
		return "right"
	}
}

// UUID returns the sheet uuid.
func (s *Sheet) UUID() string { return s.uuid }

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// Filename returns the sub-schematic file name.
func (s *Sheet) Filename() string { return s.filename }

// Position returns the top-left corner.
func (s *Sheet) Position() Point { return s.position }

// Size returns the sheet rectangle dimensions.
func (s *Sheet) Size() Size { return s.size }

// Pins returns the sheet pins in file order.
func (s *Sheet) Pins() []*SheetPin {
	out := make([]*SheetPin, len(s.pins))
	copy(out, s.pins)
	return out
}

// SetName renames the sheet.
func (s *Sheet) SetName(name string) {
	s.name = name
	s.setNameProperty("Sheetname", name)
	s.touch()
}

// SetFilename points the sheet at a different sub-schematic file.
func (s *Sheet) SetFilename(filename string) {
	s.filename = filename
	s.setNameProperty("Sheetfile", filename)
	s.touch()
}

// SetPosition moves the sheet rectangle.
func (s *Sheet) SetPosition(p Point) {
	s.position = p
	setChild(s.node, s.sch.atNode(p, 0))
	s.touch()
}

// SetSize resizes the sheet rectangle.
func (s *Sheet) SetSize(size Size) {
	s.size = size
	setChild(s.node, sexp.NewList(
		sexp.NewSymbol("size"),
		sexp.NewSymbol(s.sch.num(size.Width)),
		sexp.NewSymbol(s.sch.num(size.Height)),
	))
	s.touch()
}

// AddPin appends a hierarchical pin to the sheet border. The rotation
// selects the side (see SheetPin.Side).
func (s *Sheet) AddPin(name, shape string, pos Point, rotation int) *SheetPin {
	pin := &SheetPin{
		sheet:    s,
		UUID:     uuid.NewString(),
		Name:     name,
		Shape:    shape,
		Position: pos,
		Rotation: rotation,
	}
	s.pins = append(s.pins, pin)
	s.node.AppendChild(s.sch.buildSheetPinNode(pin))
	s.touch()
	return pin
}

func (s *Sheet) setNameProperty(prop, value string) {
	s.sch.setPropertyValue(s.node, prop, value, s.position)
}

func (s *Sheet) touch() {
	s.node.MarkDirty()
	s.sch.sheets.Invalidate()
	s.sch.markModified()
}

func raiseSheet(s *Schematic, node *sexp.Node) *Sheet {
	sh := &Sheet{sch: s, node: node}
	if p, _, ok := sexp.PositionOf(node); ok {
		sh.position = p
	}
	if sizeNode, ok := sexp.FindChild(node, "size"); ok {
		w, errW := sexp.FloatValue(sizeNode, 1)
		h, errH := sexp.FloatValue(sizeNode, 2)
		if errW == nil && errH == nil {
			sh.size = Size{Width: w, Height: h}
		}
	}
	if id, ok := sexp.ChildAtom(node, "uuid"); ok {
		sh.uuid = id
	}
	if prop, ok := findProperty(node, "Sheetname"); ok {
		sh.name, _ = sexp.AtomValue(prop, 2)
	}
	if prop, ok := findProperty(node, "Sheetfile"); ok {
		sh.filename, _ = sexp.AtomValue(prop, 2)
	}

	for _, pinNode := range sexp.FindChildren(node, "pin") {
		pin := &SheetPin{sheet: sh}
		pin.Name, _ = sexp.AtomValue(pinNode, 1)
		if shape, err := sexp.AtomValue(pinNode, 2); err == nil {
			pin.Shape = shape
		}
		if p, angle, ok := sexp.PositionOf(pinNode); ok {
			pin.Position = p
			pin.Rotation = int(angle)
		}
		if id, ok := sexp.ChildAtom(pinNode, "uuid"); ok {
			pin.UUID = id
		}
		sh.pins = append(sh.pins, pin)
	}

	return sh
}

func (s *Schematic) buildSheetNode(sh *Sheet) *sexp.Node {
	node := sexp.NewList(
		sexp.NewSymbol("sheet"),
		s.atNode(sh.position, 0),
		sexp.NewList(sexp.NewSymbol("size"),
			sexp.NewSymbol(s.num(sh.size.Width)),
			sexp.NewSymbol(s.num(sh.size.Height))),
		s.strokeNode(0.1524),
		sexp.NewList(sexp.NewSymbol("fill"),
			sexp.NewList(sexp.NewSymbol("color"),
				sexp.NewSymbol("0"), sexp.NewSymbol("0"),
				sexp.NewSymbol("0"), sexp.NewSymbol("0.0000"))),
		s.uuidNode(sh.uuid),
		s.propertyNode("Sheetname", sh.name, 0, sh.position, -0.7116, false),
		s.propertyNode("Sheetfile", sh.filename, 1, Point{X: sh.position.X, Y: sh.position.Y + sh.size.Height}, 0.5846, false),
	)
	for _, pin := range sh.pins {
		node.AppendChild(s.buildSheetPinNode(pin))
	}
	return node
}

func (s *Schematic) buildSheetPinNode(pin *SheetPin) *sexp.Node {
	return sexp.NewList(
		sexp.NewSymbol("pin"),
		sexp.NewString(pin.Name),
		sexp.NewSymbol(pin.Shape),
		s.atNode(pin.Position, float64(pin.Rotation)),
		s.effectsNode(false),
		s.uuidNode(pin.UUID),
	)
}

// SheetInstance records the hierarchical path and page number assigned to a
// sheet instantiation (the parent_uuid/sheet_uuid chain).
type SheetInstance struct {
	Path string
	Page string
}

// SheetInstances returns the (sheet_instances ...) entries of the document.
func (s *Schematic) SheetInstances() []SheetInstance {
	node, ok := sexp.FindChild(s.root, "sheet_instances")
	if !ok {
		return nil
	}
	var out []SheetInstance
	for _, pathNode := range sexp.FindChildren(node, "path") {
		inst := SheetInstance{}
		inst.Path, _ = sexp.AtomValue(pathNode, 1)
		if page, ok := sexp.ChildAtom(pathNode, "page"); ok {
			inst.Page = page
		}
		out = append(out, inst)
	}
	return out
}
