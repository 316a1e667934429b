package symbols

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tracekit/kicadsch/pkg/sexp"
)

// DirProvider loads symbols from a directory of .kicad_sym library files.
// Each file contributes symbols under its base name: Device.kicad_sym
// provides "Device:R", "Device:C", and so on. Files are parsed lazily on
// first lookup and the parsed library kept for the provider's lifetime.
type DirProvider struct {
	dir string
	log zerolog.Logger

	mu   sync.Mutex
	libs map[string]map[string]*SymbolDef // library name -> symbol name -> def
}

// NewDirProvider creates a provider over a library directory.
func NewDirProvider(dir string, log zerolog.Logger) *DirProvider {
	return &DirProvider{
		dir:  dir,
		log:  log,
		libs: make(map[string]map[string]*SymbolDef),
	}
}

// GetSymbol implements Provider.
func (p *DirProvider) GetSymbol(libID string) (*SymbolDef, error) {
	libName, symName, ok := strings.Cut(libID, ":")
	if !ok {
		return nil, &LibraryError{LibID: libID, Err: fmt.Errorf("malformed id, want \"Library:Name\"")}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	lib, err := p.library(libName)
	if err != nil {
		return nil, &LibraryError{LibID: libID, Err: err}
	}
	def, ok := lib[symName]
	if !ok {
		return nil, &LibraryError{LibID: libID, Err: ErrNotFound}
	}
	return def, nil
}

// Forget drops a parsed library so the next lookup re-reads the file.
// An empty name drops everything.
func (p *DirProvider) Forget(libName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if libName == "" {
		p.libs = make(map[string]map[string]*SymbolDef)
		return
	}
	delete(p.libs, libName)
}

func (p *DirProvider) library(name string) (map[string]*SymbolDef, error) {
	if lib, ok := p.libs[name]; ok {
		return lib, nil
	}
	path := filepath.Join(p.dir, name+".kicad_sym")
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lib, err := parseLibrary(name, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	p.log.Debug().Str("library", name).Int("symbols", len(lib)).Msg("symbol library loaded")
	p.libs[name] = lib
	return lib, nil
}

// parseLibrary extracts every top-level symbol of a kicad_symbol_lib
// document. Pins live in nested unit sub-symbols ("R_0_1", "R_1_1"); the
// loader flattens them onto the parent definition.
func parseLibrary(libName string, src []byte) (map[string]*SymbolDef, error) {
	root, err := sexp.Parse(src)
	if err != nil {
		return nil, err
	}
	if root.Tag() != "kicad_symbol_lib" {
		return nil, fmt.Errorf("not a symbol library: root element is %q", root.Tag())
	}

	lib := make(map[string]*SymbolDef)
	for _, node := range sexp.FindChildren(root, "symbol") {
		name, err := sexp.AtomValue(node, 1)
		if err != nil {
			continue
		}
		def := &SymbolDef{LibID: libName + ":" + name}
		raiseSymbolDef(def, node)
		lib[name] = def
	}
	return lib, nil
}

func raiseSymbolDef(def *SymbolDef, node *sexp.Node) {
	for _, prop := range sexp.FindChildren(node, "property") {
		name, _ := sexp.AtomValue(prop, 1)
		value, _ := sexp.AtomValue(prop, 2)
		switch name {
		case "Reference":
			def.ReferencePrefix = value
		case "Footprint":
			def.DefaultFootprint = value
		}
	}

	// Unit sub-symbols carry the graphics and pins.
	for _, unit := range sexp.FindChildren(node, "symbol") {
		for _, pin := range sexp.FindChildren(unit, "pin") {
			def.Pins = append(def.Pins, raisePinDef(pin))
		}
	}
}

func raisePinDef(pin *sexp.Node) PinDef {
	d := PinDef{}
	d.ElectricalType, _ = sexp.AtomValue(pin, 1)
	if p, _, ok := sexp.PositionOf(pin); ok {
		d.Position = p
	}
	if name, ok := sexp.FindChild(pin, "name"); ok {
		d.Name, _ = sexp.AtomValue(name, 1)
	}
	if num, ok := sexp.FindChild(pin, "number"); ok {
		d.Number, _ = sexp.AtomValue(num, 1)
	}
	return d
}
