package schematic

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tracekit/kicadsch/pkg/sexp"
	"github.com/tracekit/kicadsch/pkg/symbols"
)

// Component is a placed symbol instance. Every component is backed by
// exactly one (symbol ...) node in the document tree; setters update the
// node in place and mark it dirty so only the touched element is
// regenerated on save.
type Component struct {
	sch  *Schematic
	node *sexp.Node

	uuid       string
	libID      string
	position   Point
	rotation   int
	mirror     string
	unit       int
	inBOM      bool
	onBoard    bool
	dnp        bool
	properties []Property
	pins       []PinRef
}

// UUID returns the component instance uuid.
func (c *Component) UUID() string { return c.uuid }

// LibID returns the library identifier, e.g. "Device:R".
func (c *Component) LibID() string { return c.libID }

// Position returns the placement position in millimeters.
func (c *Component) Position() Point { return c.position }

// Rotation returns the placement rotation: 0, 90, 180 or 270.
func (c *Component) Rotation() int { return c.rotation }

// Unit returns the unit index for multi-unit symbols (1-based).
func (c *Component) Unit() int { return c.unit }

// InBOM reports whether the component is included in bill-of-materials
// exports.
func (c *Component) InBOM() bool { return c.inBOM }

// OnBoard reports whether the component is exported to the board.
func (c *Component) OnBoard() bool { return c.onBoard }

// DNP reports the do-not-populate flag.
func (c *Component) DNP() bool { return c.dnp }

// Reference returns the reference designator (the "Reference" property).
func (c *Component) Reference() string { return c.Property("Reference") }

// Value returns the "Value" property.
func (c *Component) Value() string { return c.Property("Value") }

// Footprint returns the "Footprint" property, or "" when unset.
func (c *Component) Footprint() string { return c.Property("Footprint") }

// Property returns the named property value, or "" when absent.
func (c *Component) Property(name string) string {
	for _, p := range c.properties {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Properties returns all properties in file order.
func (c *Component) Properties() []Property {
	out := make([]Property, len(c.properties))
	copy(out, c.properties)
	return out
}

// Pins returns the per-pin uuid references in file order.
func (c *Component) Pins() []PinRef {
	out := make([]PinRef, len(c.pins))
	copy(out, c.pins)
	return out
}

// PinUUID returns the uuid recorded for a pin number, or "" when the pin
// is unknown.
func (c *Component) PinUUID(number string) string {
	for _, p := range c.pins {
		if p.Number == number {
			return p.UUID
		}
	}
	return ""
}

// SetReference changes the reference designator.
func (c *Component) SetReference(ref string) {
	c.SetProperty("Reference", ref)
}

// SetValue changes the "Value" property.
func (c *Component) SetValue(value string) {
	c.SetProperty("Value", value)
}

// SetFootprint changes the "Footprint" property.
func (c *Component) SetFootprint(fp string) {
	c.SetProperty("Footprint", fp)
}

// SetProperty sets a named property, creating it when absent. Property
// order is preserved; new properties append.
func (c *Component) SetProperty(name, value string) {
	for i := range c.properties {
		if c.properties[i].Name == name {
			c.properties[i].Value = value
			c.sch.setPropertyValue(c.node, name, value, c.position)
			c.touch()
			return
		}
	}
	c.properties = append(c.properties, Property{Name: name, Value: value})
	c.sch.setPropertyValue(c.node, name, value, c.position)
	c.touch()
}

// SetPosition moves the component. Property text anchors are stored as
// absolute coordinates, so they are translated by the same delta to stay
// attached to the part.
func (c *Component) SetPosition(p Point) {
	dx, dy := p.X-c.position.X, p.Y-c.position.Y
	c.position = p
	setChild(c.node, c.sch.atNode(p, float64(c.rotation)))
	for _, prop := range sexp.FindChildren(c.node, "property") {
		if at, angle, ok := sexp.PositionOf(prop); ok {
			setChild(prop, c.sch.atNode(Point{X: at.X + dx, Y: at.Y + dy}, angle))
		}
	}
	c.touch()
}

// SetRotation rotates the component. Angles other than 0/90/180/270 are
// rejected.
func (c *Component) SetRotation(deg int) error {
	switch deg {
	case Rot0, Rot90, Rot180, Rot270:
	default:
		return fmt.Errorf("schematic: invalid rotation %d (want 0, 90, 180 or 270)", deg)
	}
	c.rotation = deg
	setChild(c.node, c.sch.atNode(c.position, float64(deg)))
	c.touch()
	return nil
}

// SetUnit selects the unit of a multi-unit symbol.
func (c *Component) SetUnit(unit int) {
	c.unit = unit
	setChild(c.node, sexp.NewList(sexp.NewSymbol("unit"), sexp.NewSymbol(fmt.Sprint(unit))))
	c.touch()
}

// PinPosition resolves the absolute schematic position of a pin by applying
// the component's placement rotation to the library-relative pin offset.
// Rotations are counter-clockwise through the standard 2D rotation matrix.
func (c *Component) PinPosition(def *symbols.SymbolDef, number string) (Point, error) {
	for _, pin := range def.Pins {
		if pin.Number != number {
			continue
		}
		rel := pin.Position
		var rx, ry float64
		switch c.rotation {
		case Rot90:
			rx, ry = -rel.Y, rel.X
		case Rot180:
			rx, ry = -rel.X, -rel.Y
		case Rot270:
			rx, ry = rel.Y, -rel.X
		default:
			rx, ry = rel.X, rel.Y
		}
		return Point{X: c.position.X + rx, Y: c.position.Y + ry}, nil
	}
	return Point{}, fmt.Errorf("schematic: %s has no pin %q in %s", c.Reference(), number, c.libID)
}

func (c *Component) touch() {
	c.node.MarkDirty()
	c.sch.components.Invalidate()
	c.sch.markModified()
}

// raiseComponent lifts a (symbol ...) node into a Component. Pin sub-nodes
// are lifted into {number, uuid} pairs; dropping them here would silently
// lose the per-pin uuids on the next save of a modified component.
func raiseComponent(s *Schematic, node *sexp.Node) *Component {
	c := &Component{
		sch:     s,
		node:    node,
		unit:    1,
		inBOM:   true,
		onBoard: true,
	}

	c.libID, _ = sexp.ChildAtom(node, "lib_id")
	if p, angle, ok := sexp.PositionOf(node); ok {
		c.position = p
		c.rotation = int(angle)
	}
	if u, ok := sexp.ChildInt(node, "unit"); ok {
		c.unit = u
	}
	if m, ok := sexp.ChildAtom(node, "mirror"); ok {
		c.mirror = m
	}
	if v, ok := sexp.ChildAtom(node, "in_bom"); ok {
		c.inBOM = v == "yes"
	}
	if v, ok := sexp.ChildAtom(node, "on_board"); ok {
		c.onBoard = v == "yes"
	}
	if v, ok := sexp.ChildAtom(node, "dnp"); ok {
		c.dnp = v == "yes"
	}
	if id, ok := sexp.ChildAtom(node, "uuid"); ok {
		c.uuid = id
	}

	for _, prop := range sexp.FindChildren(node, "property") {
		name, errN := sexp.AtomValue(prop, 1)
		if errN != nil {
			continue
		}
		value, _ := sexp.AtomValue(prop, 2)
		c.properties = append(c.properties, Property{Name: name, Value: value})
	}

	for _, pin := range sexp.FindChildren(node, "pin") {
		number, err := sexp.AtomValue(pin, 1)
		if err != nil {
			continue
		}
		ref := PinRef{Number: number}
		if id, ok := sexp.ChildAtom(pin, "uuid"); ok {
			ref.UUID = id
		}
		c.pins = append(c.pins, ref)
	}

	return c
}

// buildComponentNode synthesizes the full (symbol ...) subtree for a
// component created through AddComponent.
func (s *Schematic) buildComponentNode(c *Component) *sexp.Node {
	node := sexp.NewList(
		sexp.NewSymbol("symbol"),
		sexp.NewList(sexp.NewSymbol("lib_id"), sexp.NewString(c.libID)),
		s.atNode(c.position, float64(c.rotation)),
		sexp.NewList(sexp.NewSymbol("unit"), sexp.NewSymbol(fmt.Sprint(c.unit))),
		yesNo("exclude_from_sim", false),
		yesNo("in_bom", c.inBOM),
		yesNo("on_board", c.onBoard),
		yesNo("dnp", c.dnp),
		s.uuidNode(c.uuid),
	)

	offsets := map[string]float64{
		"Reference": -1.27,
		"Value":     1.27,
	}
	for i, p := range c.properties {
		offset, visible := offsets[p.Name]
		if !visible {
			offset = 2.54
		}
		node.AppendChild(s.propertyNode(p.Name, p.Value, i, c.position, offset, !visible))
	}

	for _, pin := range c.pins {
		node.AppendChild(sexp.NewList(
			sexp.NewSymbol("pin"),
			sexp.NewString(pin.Number),
			s.uuidNode(pin.UUID),
		))
	}

	return node
}

// newPinRefs seeds fresh pin uuids for every pin the library symbol
// declares.
func newPinRefs(def *symbols.SymbolDef) []PinRef {
	refs := make([]PinRef, 0, len(def.Pins))
	for _, pin := range def.Pins {
		refs = append(refs, PinRef{Number: pin.Number, UUID: uuid.NewString()})
	}
	return refs
}
