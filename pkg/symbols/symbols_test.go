package symbols

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const deviceLib = `(kicad_symbol_lib
	(version 20241209)
	(generator "kicad_symbol_editor")
	(symbol "R"
		(pin_numbers
			(hide yes)
		)
		(exclude_from_sim no)
		(in_bom yes)
		(on_board yes)
		(property "Reference" "R"
			(at 2.032 0 90)
		)
		(property "Value" "R"
			(at 0 0 90)
		)
		(property "Footprint" ""
			(at -1.778 0 90)
		)
		(symbol "R_0_1"
			(rectangle
				(start -1.016 -2.54)
				(end 1.016 2.54)
			)
		)
		(symbol "R_1_1"
			(pin passive line
				(at 0 3.81 270)
				(length 1.27)
				(name "~"
					(effects
						(font
							(size 1.27 1.27)
						)
					)
				)
				(number "1"
					(effects
						(font
							(size 1.27 1.27)
						)
					)
				)
			)
			(pin passive line
				(at 0 -3.81 90)
				(length 1.27)
				(name "~"
					(effects
						(font
							(size 1.27 1.27)
						)
					)
				)
				(number "2"
					(effects
						(font
							(size 1.27 1.27)
						)
					)
				)
			)
		)
	)
)
`

func writeLib(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".kicad_sym"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Device", deviceLib)
	p := NewDirProvider(dir, zerolog.Nop())

	def, err := p.GetSymbol("Device:R")
	if err != nil {
		t.Fatalf("GetSymbol: %v", err)
	}
	if def.ReferencePrefix != "R" {
		t.Errorf("prefix = %q, want R", def.ReferencePrefix)
	}
	if len(def.Pins) != 2 {
		t.Fatalf("pins = %d, want 2", len(def.Pins))
	}
	pin := def.Pin("1")
	if pin == nil {
		t.Fatal("pin 1 missing")
	}
	if pin.Position.X != 0 || pin.Position.Y != 3.81 {
		t.Errorf("pin 1 position = %+v", pin.Position)
	}
	if pin.ElectricalType != "passive" {
		t.Errorf("pin 1 type = %q", pin.ElectricalType)
	}
}

func TestDirProviderUnknownSymbol(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Device", deviceLib)
	p := NewDirProvider(dir, zerolog.Nop())

	_, err := p.GetSymbol("Device:Missing")
	var le *LibraryError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want LibraryError", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_, err = p.GetSymbol("NoSuchLib:R")
	if !errors.As(err, &le) {
		t.Fatalf("missing library err = %v, want LibraryError", err)
	}

	_, err = p.GetSymbol("malformed")
	if !errors.As(err, &le) {
		t.Fatalf("malformed id err = %v, want LibraryError", err)
	}
}

func TestDirProviderForget(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Device", deviceLib)
	p := NewDirProvider(dir, zerolog.Nop())

	if _, err := p.GetSymbol("Device:R"); err != nil {
		t.Fatal(err)
	}
	// Replace the file with a renamed symbol; the parsed library is cached
	// until Forget.
	writeLib(t, dir, "Device", `(kicad_symbol_lib
	(symbol "R2K"
		(property "Reference" "R"
			(at 0 0 0)
		)
	)
)
`)
	if _, err := p.GetSymbol("Device:R"); err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	p.Forget("Device")
	if _, err := p.GetSymbol("Device:R"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err after Forget = %v, want ErrNotFound", err)
	}
	if _, err := p.GetSymbol("Device:R2K"); err != nil {
		t.Fatalf("new symbol not visible after Forget: %v", err)
	}
}

func TestMemoryProvider(t *testing.T) {
	p := NewMemoryProvider()
	p.Register(&SymbolDef{LibID: "Test:X", ReferencePrefix: "U"})

	def, err := p.GetSymbol("Test:X")
	if err != nil || def.ReferencePrefix != "U" {
		t.Fatalf("GetSymbol = %+v, %v", def, err)
	}
	if _, err := p.GetSymbol("Test:Y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// countingProvider tracks upstream hits to assert cache behavior.
type countingProvider struct {
	inner Provider
	hits  int
}

func (p *countingProvider) GetSymbol(libID string) (*SymbolDef, error) {
	p.hits++
	return p.inner.GetSymbol(libID)
}

func TestCache(t *testing.T) {
	mem := NewMemoryProvider()
	mem.Register(&SymbolDef{
		LibID:           "Device:R",
		ReferencePrefix: "R",
		Pins:            []PinDef{{Number: "1"}, {Number: "2"}},
	})
	upstream := &countingProvider{inner: mem}

	cache, err := OpenCache(filepath.Join(t.TempDir(), "symbols.db"), upstream, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	def, err := cache.GetSymbol("Device:R")
	if err != nil {
		t.Fatal(err)
	}
	if len(def.Pins) != 2 {
		t.Fatalf("pins = %d", len(def.Pins))
	}
	if upstream.hits != 1 {
		t.Fatalf("upstream hits = %d, want 1", upstream.hits)
	}

	// Second lookup is served from the database.
	if _, err := cache.GetSymbol("Device:R"); err != nil {
		t.Fatal(err)
	}
	if upstream.hits != 1 {
		t.Errorf("upstream hits = %d after cached lookup, want 1", upstream.hits)
	}

	// Invalidation forces a fresh resolve.
	if err := cache.Invalidate("Device"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetSymbol("Device:R"); err != nil {
		t.Fatal(err)
	}
	if upstream.hits != 2 {
		t.Errorf("upstream hits = %d after invalidation, want 2", upstream.hits)
	}

	// Misses are not cached.
	if _, err := cache.GetSymbol("Device:Nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if upstream.hits != 3 {
		t.Errorf("upstream hits = %d, want 3", upstream.hits)
	}
}

// chanInvalidator reports invalidations to the test.
type chanInvalidator struct {
	ch chan string
}

func (c *chanInvalidator) Invalidate(libName string) error {
	c.ch <- libName
	return nil
}

func TestWatcher(t *testing.T) {
	if testing.Short() {
		t.Skip("filesystem watcher test")
	}
	dir := t.TempDir()
	writeLib(t, dir, "Device", deviceLib)

	inv := &chanInvalidator{ch: make(chan string, 8)}
	w, err := Watch(dir, inv, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeLib(t, dir, "Device", deviceLib)

	select {
	case lib := <-inv.ch:
		if lib != "Device" {
			t.Errorf("invalidated %q, want Device", lib)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no invalidation within 5s of library write")
	}
}
