package sexp

import (
	"fmt"
	"strconv"
)

// Navigation helpers over the node tree. These never mutate anything.

// FindChild returns the first child list whose tag matches key.
func FindChild(n *Node, key string) (*Node, bool) {
	if n == nil || n.kind != KindList {
		return nil, false
	}
	for _, c := range n.children {
		if c.IsList() && c.Tag() == key {
			return c, true
		}
	}
	return nil, false
}

// FindChildren returns every child list whose tag matches key, in order.
func FindChildren(n *Node, key string) []*Node {
	var out []*Node
	if n == nil || n.kind != KindList {
		return out
	}
	for _, c := range n.children {
		if c.IsList() && c.Tag() == key {
			out = append(out, c)
		}
	}
	return out
}

// HasFlag reports whether a list contains the given bare symbol among its
// children, e.g. the "hide" flag inside (effects ...).
func HasFlag(n *Node, flag string) bool {
	if n == nil || n.kind != KindList {
		return false
	}
	for _, c := range n.children {
		if !c.IsList() && !c.quoted && c.value == flag {
			return true
		}
	}
	return false
}

// AtomValue returns the decoded atom value at index i of a list. Index 0 is
// the tag, 1 the first argument.
func AtomValue(n *Node, i int) (string, error) {
	if n == nil || n.kind != KindList {
		return "", fmt.Errorf("sexp: expected list, got atom")
	}
	c := n.Child(i)
	if c == nil {
		return "", fmt.Errorf("sexp: index %d out of bounds (list %q has %d elements)", i, n.Tag(), n.Len())
	}
	if c.IsList() {
		return "", fmt.Errorf("sexp: expected atom at index %d of %q, got list", i, n.Tag())
	}
	return c.value, nil
}

// FloatValue parses the atom at index i as a float64.
func FloatValue(n *Node, i int) (float64, error) {
	s, err := AtomValue(n, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("sexp: invalid number %q in %q: %w", s, n.Tag(), err)
	}
	return v, nil
}

// IntValue parses the atom at index i as an int.
func IntValue(n *Node, i int) (int, error) {
	s, err := AtomValue(n, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("sexp: invalid integer %q in %q: %w", s, n.Tag(), err)
	}
	return v, nil
}

// ChildAtom returns the first argument of the child list with the given tag:
// ChildAtom(symbol, "lib_id") on (symbol (lib_id "Device:R") ...) yields
// "Device:R".
func ChildAtom(n *Node, key string) (string, bool) {
	c, ok := FindChild(n, key)
	if !ok {
		return "", false
	}
	v, err := AtomValue(c, 1)
	if err != nil {
		return "", false
	}
	return v, true
}

// ChildFloat is ChildAtom for numeric arguments.
func ChildFloat(n *Node, key string) (float64, bool) {
	c, ok := FindChild(n, key)
	if !ok {
		return 0, false
	}
	v, err := FloatValue(c, 1)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ChildInt is ChildAtom for integer arguments.
func ChildInt(n *Node, key string) (int, bool) {
	c, ok := FindChild(n, key)
	if !ok {
		return 0, false
	}
	v, err := IntValue(c, 1)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PositionOf extracts (at X Y [angle]) from a child of n. The angle defaults
// to zero when absent.
func PositionOf(n *Node) (Point, float64, bool) {
	at, ok := FindChild(n, "at")
	if !ok {
		return Point{}, 0, false
	}
	x, errX := FloatValue(at, 1)
	y, errY := FloatValue(at, 2)
	if errX != nil || errY != nil {
		return Point{}, 0, false
	}
	angle := 0.0
	if a, err := FloatValue(at, 3); err == nil {
		angle = a
	}
	return Point{X: x, Y: y}, angle, true
}

// PointsOf extracts the (xy ...) children of a (pts ...) child of n, in
// order.
func PointsOf(n *Node) []Point {
	pts, ok := FindChild(n, "pts")
	if !ok {
		return nil
	}
	var out []Point
	for _, xy := range FindChildren(pts, "xy") {
		x, errX := FloatValue(xy, 1)
		y, errY := FloatValue(xy, 2)
		if errX != nil || errY != nil {
			continue
		}
		out = append(out, Point{X: x, Y: y})
	}
	return out
}
