package sexp

// Kind distinguishes the two node shapes of the S-expression grammar.
type Kind int

const (
	// KindAtom is a bare symbol, number, or quoted string.
	KindAtom Kind = iota
	// KindList is a parenthesized sequence of nodes.
	KindList
)

// Node is a single element of the parsed tree. A node is owned exclusively
// by its parent (or by the document root) and remembers the byte span it was
// parsed from. Mutations mark the node and all of its ancestors dirty; the
// emitter regenerates dirty subtrees and replays clean ones verbatim.
type Node struct {
	kind     Kind
	value    string // decoded atom value
	quoted   bool   // atom carried (or should carry) double quotes
	children []*Node
	parent   *Node

	span    Span
	hasSpan bool
	dirty   bool
}

// NewList creates a synthesized list node. Synthesized nodes have no source
// span and are born dirty so the emitter renders them canonically.
func NewList(children ...*Node) *Node {
	n := &Node{kind: KindList, dirty: true}
	for _, c := range children {
		n.append(c)
	}
	return n
}

// NewSymbol creates a synthesized bare-symbol atom.
func NewSymbol(value string) *Node {
	return &Node{kind: KindAtom, value: value, dirty: true}
}

// NewString creates a synthesized quoted-string atom.
func NewString(value string) *Node {
	return &Node{kind: KindAtom, value: value, quoted: true, dirty: true}
}

// Kind returns whether the node is an atom or a list.
func (n *Node) Kind() Kind { return n.kind }

// IsList reports whether the node is a parenthesized list.
func (n *Node) IsList() bool { return n.kind == KindList }

// Value returns the decoded atom value. Lists return "".
func (n *Node) Value() string {
	if n.kind != KindAtom {
		return ""
	}
	return n.value
}

// Quoted reports whether an atom was (or should be) emitted as a quoted
// string.
func (n *Node) Quoted() bool { return n.quoted }

// Tag returns the head atom value of a list, which identifies the element
// type ("wire", "symbol", "at", ...). Atoms and empty lists return "".
func (n *Node) Tag() string {
	if n.kind != KindList || len(n.children) == 0 {
		return ""
	}
	return n.children[0].Value()
}

// Len returns the number of children of a list node.
func (n *Node) Len() int { return len(n.children) }

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Children returns the child slice. The slice is shared with the node;
// callers must not modify it directly.
func (n *Node) Children() []*Node { return n.children }

// Parent returns the owning node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Span returns the source byte range and whether the node was parsed from
// source at all (synthesized nodes have no span).
func (n *Node) Span() (Span, bool) { return n.span, n.hasSpan }

// Dirty reports whether the node or any of its descendants was modified
// since parsing.
func (n *Node) Dirty() bool { return n.dirty }

// MarkDirty flags the node and every ancestor as modified. The emitter
// will regenerate this subtree canonically on the next save.
func (n *Node) MarkDirty() {
	for p := n; p != nil && !p.dirty; p = p.parent {
		p.dirty = true
	}
}

// ClearDirty resets the dirty flag on the node and all descendants.
// Called after a successful save.
func (n *Node) ClearDirty() {
	n.dirty = false
	for _, c := range n.children {
		c.ClearDirty()
	}
}

func (n *Node) append(c *Node) {
	c.parent = n
	n.children = append(n.children, c)
}

// AppendChild adds a child at the end of a list node and marks the tree
// dirty.
func (n *Node) AppendChild(c *Node) {
	n.append(c)
	n.MarkDirty()
}

// InsertChild adds a child at position i, shifting later children right.
// Out-of-range positions clamp to the ends.
func (n *Node) InsertChild(i int, c *Node) {
	if i < 0 {
		i = 0
	}
	if i > len(n.children) {
		i = len(n.children)
	}
	c.parent = n
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
	n.MarkDirty()
}

// RemoveChild detaches the given child from the node. Returns false when c
// is not a direct child.
func (n *Node) RemoveChild(c *Node) bool {
	for i, ch := range n.children {
		if ch == c {
			copy(n.children[i:], n.children[i+1:])
			n.children = n.children[:len(n.children)-1]
			c.parent = nil
			n.MarkDirty()
			return true
		}
	}
	return false
}

// ReplaceChild swaps an existing child for a replacement in place.
// Returns false when old is not a direct child.
func (n *Node) ReplaceChild(old, repl *Node) bool {
	for i, ch := range n.children {
		if ch == old {
			repl.parent = n
			old.parent = nil
			n.children[i] = repl
			n.MarkDirty()
			return true
		}
	}
	return false
}

// SetValue replaces an atom's decoded value, keeping its quoting style,
// and marks the tree dirty.
func (n *Node) SetValue(value string) {
	n.value = value
	n.MarkDirty()
}

// IndexOf returns the position of a direct child, or -1.
func (n *Node) IndexOf(c *Node) int {
	for i, ch := range n.children {
		if ch == c {
			return i
		}
	}
	return -1
}
