package sexp

import (
	"bytes"
	"strings"

	"github.com/tracekit/kicadsch/pkg/sexp/format"
)

// Emit renders the document rooted at root. Subtrees that are untouched
// since parsing are replayed byte-for-byte from src; dirty subtrees are
// regenerated in the canonical layout described by rules. A fully clean
// document reproduces src exactly.
//
// As a side effect every node's span is rewritten to its byte range in the
// returned output, so the caller can adopt the output as the new source
// text and clear the dirty flags afterwards.
func Emit(root *Node, src []byte, rules *format.Rules) []byte {
	if root != nil && !root.dirty && root.hasSpan && src != nil {
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}
	e := &emitter{src: src, rules: rules, track: true}
	var buf bytes.Buffer
	e.node(&buf, root, 0)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Canonical renders the whole tree in canonical layout, ignoring source
// spans and leaving the tree untouched. Used to re-format documents from
// scratch.
func Canonical(root *Node, rules *format.Rules) []byte {
	e := &emitter{rules: rules, force: true}
	var buf bytes.Buffer
	e.node(&buf, root, 0)
	buf.WriteByte('\n')
	return buf.Bytes()
}

type emitter struct {
	src   []byte
	rules *format.Rules
	force bool
	track bool
}

func (e *emitter) node(buf *bytes.Buffer, n *Node, depth int) {
	if n == nil {
		return
	}
	start := buf.Len()

	if !e.force && !n.dirty && n.hasSpan && e.src != nil {
		buf.Write(e.src[n.span.Start:n.span.End])
		if e.track {
			shiftSpans(n, start-n.span.Start)
		}
		return
	}

	if n.kind == KindAtom {
		e.atom(buf, n, false)
	} else {
		e.list(buf, n, depth)
	}

	if e.track {
		n.span = Span{Start: start, End: buf.Len()}
		n.hasSpan = true
	}
}

// list renders a dirty list node canonically: atoms stay on the opening
// line, each sub-list takes its own indented line, run-grouped sub-lists
// ((xy ...) under (pts ...)) share one wrapped line, and the closing paren
// returns to the parent indentation whenever the body spans lines.
func (e *emitter) list(buf *bytes.Buffer, n *Node, depth int) {
	tag := n.Tag()
	quoteArgs := e.rules.QuoteArgs(tag)

	buf.WriteByte('(')
	multiline := false
	inRun := false

	for i, c := range n.children {
		if !c.IsList() {
			if i > 0 {
				buf.WriteByte(' ')
			}
			start := buf.Len()
			e.atom(buf, c, i > 0 && quoteArgs)
			if e.track {
				c.span = Span{Start: start, End: buf.Len()}
				c.hasSpan = true
			}
			continue
		}

		if inRun && e.rules.RunsInline(tag, c.Tag()) {
			buf.WriteByte(' ')
			e.node(buf, c, depth+1)
			continue
		}

		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(e.rules.Indent, depth+1))
		e.node(buf, c, depth+1)
		multiline = true
		inRun = e.rules.RunsInline(tag, c.Tag())
	}

	if multiline {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(e.rules.Indent, depth))
	}
	buf.WriteByte(')')
}

func (e *emitter) atom(buf *bytes.Buffer, n *Node, forceQuote bool) {
	if n.quoted || forceQuote {
		buf.WriteString(encodeString(n.value))
		return
	}
	buf.WriteString(n.value)
}

// shiftSpans relocates a verbatim subtree's spans by delta so they index
// into the newly emitted output.
func shiftSpans(n *Node, delta int) {
	if delta == 0 {
		return
	}
	if n.hasSpan {
		n.span.Start += delta
		n.span.End += delta
	}
	for _, c := range n.children {
		shiftSpans(c, delta)
	}
}
