package sexp

import (
	"strings"
	"testing"
)

func TestParseAtomSpans(t *testing.T) {
	src := `(wire (pts (xy 96.52 73.66)))`

	root, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if root.Tag() != "wire" {
		t.Errorf("Expected tag 'wire', got %q", root.Tag())
	}

	span, ok := root.Span()
	if !ok {
		t.Fatal("Root node has no span")
	}
	if span.Start != 0 || span.End != len(src) {
		t.Errorf("Root span = [%d,%d), want [0,%d)", span.Start, span.End, len(src))
	}

	pts, ok := FindChild(root, "pts")
	if !ok {
		t.Fatal("Missing pts child")
	}
	xy := FindChildren(pts, "xy")
	if len(xy) != 1 {
		t.Fatalf("Expected 1 xy node, got %d", len(xy))
	}
	xySpan, _ := xy[0].Span()
	if got := src[xySpan.Start:xySpan.End]; got != "(xy 96.52 73.66)" {
		t.Errorf("xy span captured %q", got)
	}
}

func TestParseQuotedStrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"plain", `(generator "eeschema")`, "eeschema"},
		{"spaces", `(title "Example Board")`, "Example Board"},
		{"escaped quote", `(value "10k \"precision\"")`, `10k "precision"`},
		{"escaped backslash", `(path "C:\\lib")`, `C:\lib`},
		{"newline escape", `(text "line1\nline2")`, "line1\nline2"},
		{"empty", `(value "")`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse([]byte(tt.src))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			got, err := AtomValue(root, 1)
			if err != nil {
				t.Fatalf("AtomValue failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decoded %q, want %q", got, tt.want)
			}
			if !root.Child(1).Quoted() {
				t.Error("String atom should be marked quoted")
			}
		})
	}
}

func TestParseBareSymbolsAndNumbers(t *testing.T) {
	root, err := Parse([]byte(`(junction (at 127 76.2) (diameter 0) yes)`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	p, _, ok := PositionOf(root)
	if !ok {
		t.Fatal("PositionOf failed")
	}
	if p.X != 127 || p.Y != 76.2 {
		t.Errorf("Position = (%v, %v), want (127, 76.2)", p.X, p.Y)
	}

	d, ok := ChildFloat(root, "diameter")
	if !ok || d != 0 {
		t.Errorf("diameter = %v, want 0", d)
	}

	if !HasFlag(root, "yes") {
		t.Error("Expected bare flag 'yes'")
	}
}

func TestParseUnbalanced(t *testing.T) {
	_, err := Parse([]byte("(kicad_sch (version 20250114)"))
	if err == nil {
		t.Fatal("Expected error for unbalanced parens")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if !strings.Contains(perr.Message, "unbalanced") {
		t.Errorf("Unexpected message: %s", perr.Message)
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse([]byte("(a\n  b))"))
	if err == nil {
		t.Fatal("Expected error for trailing ')'")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if perr.Line != 2 {
		t.Errorf("Line = %d, want 2", perr.Line)
	}
	if perr.Token != ")" {
		t.Errorf("Token = %q, want \")\"", perr.Token)
	}
}

func TestParseTrailingContent(t *testing.T) {
	if _, err := Parse([]byte("(a) (b)")); err == nil {
		t.Fatal("Expected error for second top-level expression")
	}
}

func TestParseEmptyInput(t *testing.T) {
	if _, err := Parse([]byte("   \n")); err == nil {
		t.Fatal("Expected error for empty input")
	}
}

func TestStringEncodeDecodeRoundTrip(t *testing.T) {
	values := []string{"", "plain", `with "quotes"`, `back\slash`, "tab\there", "multi\nline"}
	for _, v := range values {
		decoded, err := decodeString(encodeString(v))
		if err != nil {
			t.Fatalf("decodeString(%q) failed: %v", v, err)
		}
		if decoded != v {
			t.Errorf("Round trip of %q produced %q", v, decoded)
		}
	}
}
