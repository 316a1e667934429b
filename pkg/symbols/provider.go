// Package symbols resolves KiCad library symbols for schematic placement.
// A Provider maps "Library:Name" identifiers to symbol definitions; the
// package ships an in-memory provider for tests, a directory loader for
// .kicad_sym files, and a sqlite-backed cache for large installed
// libraries.
package symbols

import (
	"errors"
	"fmt"

	"github.com/tracekit/kicadsch/pkg/sexp"
)

// ErrNoProvider is returned by operations that need a library when the
// document was opened without one.
var ErrNoProvider = errors.New("no symbol library provider configured")

// ErrNotFound is returned (wrapped in a LibraryError) for unknown symbol
// identifiers.
var ErrNotFound = errors.New("symbol not found")

// LibraryError reports a failed symbol lookup. Callers match it with
// errors.As and inspect the wrapped cause.
type LibraryError struct {
	LibID string
	Err   error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("symbols: %s: %v", e.LibID, e.Err)
}

func (e *LibraryError) Unwrap() error { return e.Err }

// PinDef describes one pin of a library symbol. Position is relative to
// the symbol anchor, in the library's coordinate frame (Y up).
type PinDef struct {
	Number         string
	Name           string
	ElectricalType string
	Position       sexp.Point
}

// SymbolDef is the placement-relevant slice of a library symbol.
type SymbolDef struct {
	LibID            string
	ReferencePrefix  string
	DefaultFootprint string
	Pins             []PinDef
}

// Pin returns the pin with the given number, or nil.
func (d *SymbolDef) Pin(number string) *PinDef {
	for i := range d.Pins {
		if d.Pins[i].Number == number {
			return &d.Pins[i]
		}
	}
	return nil
}

// Provider resolves symbol identifiers of the form "Library:Name".
type Provider interface {
	GetSymbol(libID string) (*SymbolDef, error)
}

// MemoryProvider is a fixed in-memory symbol table.
type MemoryProvider struct {
	defs map[string]*SymbolDef
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{defs: make(map[string]*SymbolDef)}
}

// Register adds or replaces a symbol definition.
func (p *MemoryProvider) Register(def *SymbolDef) {
	p.defs[def.LibID] = def
}

// GetSymbol implements Provider.
func (p *MemoryProvider) GetSymbol(libID string) (*SymbolDef, error) {
	def, ok := p.defs[libID]
	if !ok {
		return nil, &LibraryError{LibID: libID, Err: ErrNotFound}
	}
	return def, nil
}
