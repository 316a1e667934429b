package schematic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tracekit/kicadsch/pkg/collection"
	"github.com/tracekit/kicadsch/pkg/sexp"
	"github.com/tracekit/kicadsch/pkg/sexp/format"
	"github.com/tracekit/kicadsch/pkg/symbols"
)

// CurrentFormatVersion is the file format version written for documents
// created from scratch.
const CurrentFormatVersion = 20250114

// MinSupportedVersion is the oldest file format version accepted by Load
// (KiCad 6.0).
const MinSupportedVersion = 20211014

// Schematic is the document facade: it owns the parsed node tree, one
// indexed collection per element kind, and the document dirty state. A
// Schematic is not safe for concurrent mutation; callers serialize access
// externally.
type Schematic struct {
	path  string
	src   []byte
	root  *sexp.Node
	rules *format.Rules

	version          int
	generator        string
	generatorVersion string
	uuid             string
	paper            string

	state    DocState
	log      zerolog.Logger
	provider symbols.Provider

	components *collection.Collection[*Component]
	wires      *collection.Collection[*Wire]
	labels     *collection.Collection[*Label]
	junctions  *collection.Collection[*Junction]
	noconnects *collection.Collection[*NoConnect]
	sheets     *collection.Collection[*Sheet]
	texts      *collection.Collection[*Text]
}

// Option configures a Schematic at construction time.
type Option func(*Schematic)

// WithLogger attaches a structured logger. The default discards all
// output.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Schematic) { s.log = log }
}

// WithSymbolProvider attaches the library provider consulted by
// AddComponent and ConnectPins.
func WithSymbolProvider(p symbols.Provider) Option {
	return func(s *Schematic) { s.provider = p }
}

// New creates a blank in-memory schematic with a fresh uuid and the
// current format version.
func New(opts ...Option) *Schematic {
	src := fmt.Sprintf(`(kicad_sch
	(version %d)
	(generator "kicadsch")
	(generator_version "1.0")
	(uuid %q)
	(paper "A4")
	(lib_symbols)
	(sheet_instances
		(path "/"
			(page "1")
		)
	)
)
`, CurrentFormatVersion, uuid.NewString())

	s, err := Parse([]byte(src), opts...)
	if err != nil {
		// The template above is a constant shape; failing to parse it is
		// a programming error.
		panic(fmt.Sprintf("schematic: blank template invalid: %v", err))
	}
	return s
}

// Load reads and parses a schematic file. The returned document starts in
// the clean Loaded state; any parse failure aborts the load with no
// partial document.
func Load(path string, opts ...Option) (*Schematic, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schematic: read %s: %w", path, err)
	}
	s, err := Parse(src, opts...)
	if err != nil {
		return nil, err
	}
	s.path = path
	s.log.Debug().
		Str("path", path).
		Int("version", s.version).
		Int("components", s.components.Len()).
		Int("wires", s.wires.Len()).
		Msg("schematic loaded")
	return s, nil
}

// Parse builds a schematic document from source bytes.
func Parse(src []byte, opts ...Option) (*Schematic, error) {
	root, err := sexp.Parse(src)
	if err != nil {
		return nil, err
	}
	if root.Tag() != "kicad_sch" {
		return nil, fmt.Errorf("schematic: not a KiCad schematic: root element is %q", root.Tag())
	}

	s := &Schematic{
		src:   src,
		root:  root,
		log:   zerolog.Nop(),
		state: StateLoaded,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.raiseHeader(); err != nil {
		return nil, err
	}
	s.rules = format.ForVersion(s.version)
	s.newCollections()
	s.raiseElements()
	return s, nil
}

func (s *Schematic) raiseHeader() error {
	version, ok := sexp.ChildInt(s.root, "version")
	if !ok {
		return fmt.Errorf("schematic: missing required (version ...) field")
	}
	if version < MinSupportedVersion {
		return fmt.Errorf("schematic: unsupported format version %d (minimum %d / KiCad 6.0)",
			version, MinSupportedVersion)
	}
	s.version = version
	s.generator, _ = sexp.ChildAtom(s.root, "generator")
	s.generatorVersion, _ = sexp.ChildAtom(s.root, "generator_version")
	s.uuid, _ = sexp.ChildAtom(s.root, "uuid")
	s.paper, _ = sexp.ChildAtom(s.root, "paper")
	return nil
}

func (s *Schematic) newCollections() {
	s.components = collection.New(
		func(c *Component) string { return c.uuid },
		collection.IndexSpec[*Component]{
			Name:   "reference",
			Key:    func(c *Component) string { return c.Reference() },
			Unique: true,
		},
		collection.IndexSpec[*Component]{
			Name: "lib_id",
			Key:  func(c *Component) string { return c.libID },
		},
	)
	s.wires = collection.New(func(w *Wire) string { return w.uuid })
	s.labels = collection.New(
		func(l *Label) string { return l.uuid },
		collection.IndexSpec[*Label]{
			Name: "text",
			Key:  func(l *Label) string { return l.text },
		},
	)
	s.junctions = collection.New(func(j *Junction) string { return j.uuid })
	s.noconnects = collection.New(func(n *NoConnect) string { return n.uuid })
	s.sheets = collection.New(
		func(sh *Sheet) string { return sh.uuid },
		collection.IndexSpec[*Sheet]{
			Name: "name",
			Key:  func(sh *Sheet) string { return sh.name },
		},
	)
	s.texts = collection.New(func(t *Text) string { return t.uuid })
}

// raiseElements lifts every recognized top-level element into its typed
// collection. Unrecognized elements (buses, images, title blocks, embedded
// lib_symbols) stay as raw nodes and round-trip verbatim.
func (s *Schematic) raiseElements() {
	for _, node := range s.root.Children() {
		if !node.IsList() {
			continue
		}
		switch tag := node.Tag(); tag {
		case "symbol":
			s.components.Add(raiseComponent(s, node))
		case "wire":
			s.wires.Add(raiseWire(s, node))
		case "junction":
			s.junctions.Add(raiseJunction(s, node))
		case "no_connect":
			s.noconnects.Add(raiseNoConnect(s, node))
		case "label", "global_label", "hierarchical_label":
			kind, _ := labelKindForTag(tag)
			s.labels.Add(raiseLabel(s, node, kind))
		case "sheet":
			s.sheets.Add(raiseSheet(s, node))
		case "text":
			s.texts.Add(raiseText(s, node))
		}
	}
}

// Document metadata accessors.

// Version returns the file format version from the header.
func (s *Schematic) Version() int { return s.version }

// Generator returns the generator string from the header.
func (s *Schematic) Generator() string { return s.generator }

// UUID returns the document uuid.
func (s *Schematic) UUID() string { return s.uuid }

// Paper returns the paper size ("A4", ...).
func (s *Schematic) Paper() string { return s.paper }

// Path returns the file the document was loaded from, or "" for documents
// created in memory.
func (s *Schematic) Path() string { return s.path }

// State returns the document lifecycle state.
func (s *Schematic) State() DocState { return s.state }

func (s *Schematic) markModified() {
	s.state = StateModified
}

// Read-only iteration for collaborators (ERC, BOM export).

// Components returns all components in insertion order.
func (s *Schematic) Components() []*Component { return s.components.Items() }

// Wires returns all wires in insertion order.
func (s *Schematic) Wires() []*Wire { return s.wires.Items() }

// Labels returns all labels in insertion order.
func (s *Schematic) Labels() []*Label { return s.labels.Items() }

// Junctions returns all junctions in insertion order.
func (s *Schematic) Junctions() []*Junction { return s.junctions.Items() }

// NoConnects returns all no-connect markers in insertion order.
func (s *Schematic) NoConnects() []*NoConnect { return s.noconnects.Items() }

// Sheets returns all hierarchical sheets in insertion order.
func (s *Schematic) Sheets() []*Sheet { return s.sheets.Items() }

// Texts returns all free text elements in insertion order.
func (s *Schematic) Texts() []*Text { return s.texts.Items() }

// ComponentByReference returns the component with the given reference
// designator. Duplicate references surface as *collection.ConflictError.
func (s *Schematic) ComponentByReference(ref string) (*Component, bool, error) {
	return s.components.Get("reference", ref)
}

// ComponentByUUID returns the component with the given uuid.
func (s *Schematic) ComponentByUUID(id string) (*Component, bool, error) {
	return s.components.Get("uuid", id)
}

// FindComponents returns the components matching all set criteria, in
// insertion order. Exact criteria on indexed fields (reference, lib_id)
// avoid a full scan.
func (s *Schematic) FindComponents(c Criteria) ([]*Component, error) {
	if exact(c.Reference) {
		comp, ok, err := s.components.Get("reference", c.Reference)
		if err != nil {
			return nil, err
		}
		if !ok || !c.Match(comp) {
			return nil, nil
		}
		return []*Component{comp}, nil
	}
	if exact(c.LibID) {
		candidates, err := s.components.GetAll("lib_id", c.LibID)
		if err != nil {
			return nil, err
		}
		var out []*Component
		for _, comp := range candidates {
			if c.Match(comp) {
				out = append(out, comp)
			}
		}
		return out, nil
	}
	return s.components.Filter(c.Match), nil
}

// Batch suppresses index rebuilds across a bulk edit, rebuilding each
// collection exactly once when fn returns. Not reentrant.
func (s *Schematic) Batch(fn func() error) error {
	return s.components.Batch(func() error {
		return s.wires.Batch(func() error {
			return s.labels.Batch(func() error {
				return s.junctions.Batch(func() error {
					return s.noconnects.Batch(func() error {
						return s.sheets.Batch(func() error {
							return s.texts.Batch(fn)
						})
					})
				})
			})
		})
	})
}

// Mutation API. Every Add* synthesizes a dirty node, inserts it in the
// correct top-level group slot, and registers the entity with its
// collection.

// AddComponent places a new symbol instance. The library provider supplies
// the reference prefix, default footprint and pin list; provider failures
// abort atomically without mutating any collection. An empty reference
// auto-assigns the next free designator for the symbol's prefix.
func (s *Schematic) AddComponent(libID, reference, value string, pos Point) (*Component, error) {
	if s.provider == nil {
		return nil, &symbols.LibraryError{LibID: libID, Err: symbols.ErrNoProvider}
	}
	def, err := s.provider.GetSymbol(libID)
	if err != nil {
		return nil, wrapLibraryError(libID, err)
	}

	if reference == "" {
		reference = s.nextReference(def.ReferencePrefix)
	}

	c := &Component{
		sch:      s,
		uuid:     uuid.NewString(),
		libID:    libID,
		position: pos,
		unit:     1,
		inBOM:    true,
		onBoard:  true,
		properties: []Property{
			{Name: "Reference", Value: reference},
			{Name: "Value", Value: value},
			{Name: "Footprint", Value: def.DefaultFootprint},
			{Name: "Datasheet", Value: ""},
		},
		pins: newPinRefs(def),
	}
	c.node = s.buildComponentNode(c)

	s.insertElement(c.node)
	s.components.Add(c)
	s.markModified()
	s.log.Debug().Str("lib_id", libID).Str("reference", reference).Msg("component added")
	return c, nil
}

// RemoveComponent deletes the component with the given reference. Returns
// false when no such component exists.
func (s *Schematic) RemoveComponent(ref string) (bool, error) {
	c, ok, err := s.components.Get("reference", ref)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	s.root.RemoveChild(c.node)
	s.components.Remove(c.uuid)
	s.markModified()
	return true, nil
}

// AddWire creates a wire through the given points (at least two).
func (s *Schematic) AddWire(points ...Point) (*Wire, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("schematic: a wire needs at least 2 points, got %d", len(points))
	}
	w := &Wire{
		sch:    s,
		uuid:   uuid.NewString(),
		points: append([]Point(nil), points...),
	}
	w.node = s.buildWireNode(w)
	s.insertElement(w.node)
	s.wires.Add(w)
	s.markModified()
	return w, nil
}

// RemoveWire deletes a wire by uuid.
func (s *Schematic) RemoveWire(id string) bool {
	w, ok, err := s.wires.Get("uuid", id)
	if err != nil || !ok {
		return false
	}
	s.root.RemoveChild(w.node)
	s.wires.Remove(w.uuid)
	s.markModified()
	return true
}

// AddJunction creates a junction dot. A zero diameter selects KiCad's
// default size.
func (s *Schematic) AddJunction(pos Point, diameter float64) *Junction {
	j := &Junction{sch: s, uuid: uuid.NewString(), position: pos, diameter: diameter}
	j.node = s.buildJunctionNode(j)
	s.insertElement(j.node)
	s.junctions.Add(j)
	s.markModified()
	return j
}

// AddNoConnect creates a no-connect marker.
func (s *Schematic) AddNoConnect(pos Point) *NoConnect {
	nc := &NoConnect{sch: s, uuid: uuid.NewString(), position: pos}
	nc.node = s.buildNoConnectNode(nc)
	s.insertElement(nc.node)
	s.noconnects.Add(nc)
	s.markModified()
	return nc
}

// AddLabel creates a net label of the given kind. The shape applies to
// global and hierarchical labels only and defaults to "input" when empty.
func (s *Schematic) AddLabel(kind LabelKind, text string, pos Point, rotation int, shape string) *Label {
	if kind != LabelLocal && shape == "" {
		shape = "input"
	}
	l := &Label{
		sch:      s,
		uuid:     uuid.NewString(),
		kind:     kind,
		text:     text,
		position: pos,
		rotation: rotation,
		shape:    shape,
	}
	l.node = s.buildLabelNode(l)
	s.insertElement(l.node)
	s.labels.Add(l)
	s.markModified()
	return l
}

// RemoveLabel deletes a label by uuid.
func (s *Schematic) RemoveLabel(id string) bool {
	l, ok, err := s.labels.Get("uuid", id)
	if err != nil || !ok {
		return false
	}
	s.root.RemoveChild(l.node)
	s.labels.Remove(l.uuid)
	s.markModified()
	return true
}

// AddSheet creates a hierarchical sheet rectangle.
func (s *Schematic) AddSheet(name, filename string, pos Point, size Size) *Sheet {
	sh := &Sheet{
		sch:      s,
		uuid:     uuid.NewString(),
		name:     name,
		filename: filename,
		position: pos,
		size:     size,
	}
	sh.node = s.buildSheetNode(sh)
	s.insertElement(sh.node)
	s.sheets.Add(sh)
	s.markModified()
	return sh
}

// AddText creates free graphical text.
func (s *Schematic) AddText(text string, pos Point, rotation int) *Text {
	t := &Text{sch: s, uuid: uuid.NewString(), text: text, position: pos, rotation: rotation}
	t.node = s.buildTextNode(t)
	s.insertElement(t.node)
	s.texts.Add(t)
	s.markModified()
	return t
}

// ConnectPins routes wires between two component pins along an orthogonal
// path (horizontal-then-vertical). Pin positions come from the symbol
// library offsets combined with each component's position and rotation.
func (s *Schematic) ConnectPins(ref1, pin1, ref2, pin2 string) ([]*Wire, error) {
	if s.provider == nil {
		return nil, symbols.ErrNoProvider
	}
	from, err := s.pinPosition(ref1, pin1)
	if err != nil {
		return nil, err
	}
	to, err := s.pinPosition(ref2, pin2)
	if err != nil {
		return nil, err
	}

	var wires []*Wire
	addSegment := func(a, b Point) error {
		if a == b {
			return nil
		}
		w, err := s.AddWire(a, b)
		if err != nil {
			return err
		}
		wires = append(wires, w)
		return nil
	}

	corner := Point{X: to.X, Y: from.Y}
	if err := addSegment(from, corner); err != nil {
		return nil, err
	}
	if err := addSegment(corner, to); err != nil {
		return nil, err
	}
	return wires, nil
}

func (s *Schematic) pinPosition(ref, pin string) (Point, error) {
	c, ok, err := s.components.Get("reference", ref)
	if err != nil {
		return Point{}, err
	}
	if !ok {
		return Point{}, fmt.Errorf("schematic: no component %q", ref)
	}
	def, err := s.provider.GetSymbol(c.libID)
	if err != nil {
		return Point{}, wrapLibraryError(c.libID, err)
	}
	return c.PinPosition(def, pin)
}

// nextReference returns the lowest unused designator for a prefix (R1, R2,
// ...).
func (s *Schematic) nextReference(prefix string) string {
	if prefix == "" {
		prefix = "U"
	}
	used := make(map[string]bool)
	for _, c := range s.components.Items() {
		used[c.Reference()] = true
	}
	for n := 1; ; n++ {
		ref := fmt.Sprintf("%s%d", prefix, n)
		if !used[ref] {
			return ref
		}
	}
}

// Top-level element group order written by Save. Elements the model does
// not type get slotted between the typed groups so an untouched document
// keeps its shape.
var groupRank = map[string]int{
	"version":            0,
	"generator":          1,
	"generator_version":  2,
	"uuid":               3,
	"paper":              4,
	"title_block":        5,
	"lib_symbols":        10,
	"symbol":             20,
	"bus_entry":          29,
	"wire":               30,
	"bus":                30,
	"polyline":           31,
	"image":              32,
	"junction":           40,
	"label":              50,
	"global_label":       50,
	"hierarchical_label": 50,
	"text":               55,
	"no_connect":         60,
	"sheet":              70,
	"sheet_instances":    80,
	"symbol_instances":   81,
}

func rankOf(tag string) int {
	if r, ok := groupRank[tag]; ok {
		return r
	}
	return 65 // unknown elements sit between markers and sheets
}

// insertElement places a synthesized node after the last existing element
// of its group (or of any earlier group), keeping the document in KiCad's
// fixed group order.
func (s *Schematic) insertElement(node *sexp.Node) {
	rank := rankOf(node.Tag())
	children := s.root.Children()
	at := len(children)
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		if !c.IsList() {
			continue
		}
		if rankOf(c.Tag()) <= rank {
			at = i + 1
			break
		}
		at = i
	}
	s.root.InsertChild(at, node)
}

// Save writes the document back to the file it was loaded from.
func (s *Schematic) Save() error {
	if s.path == "" {
		return fmt.Errorf("schematic: document has no path; use SaveAs")
	}
	return s.SaveAs(s.path)
}

// SaveAs writes the document to path. Untouched elements reproduce their
// original bytes; modified elements are regenerated canonically. The file
// is written to a temporary sibling and renamed into place so a failed
// save never corrupts the previous file.
func (s *Schematic) SaveAs(path string) error {
	s.sortTopLevel()
	out := sexp.Emit(s.root, s.src, s.rules)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("schematic: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("schematic: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("schematic: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("schematic: rename into %s: %w", path, err)
	}

	// The emitted bytes become the new source of truth: Emit rewrote all
	// node spans to point into out, so clearing the dirty flags makes the
	// whole tree verbatim-replayable again.
	s.src = out
	s.root.ClearDirty()
	s.path = path
	s.state = StateSaved
	s.log.Debug().Str("path", path).Int("bytes", len(out)).Msg("schematic saved")
	return nil
}

// Render returns the bytes Save would write, without touching disk or the
// lifecycle state. Emit rewrites node spans into its output, so the output
// becomes the document's source text; the caller gets a private copy.
func (s *Schematic) Render() []byte {
	s.sortTopLevel()
	out := sexp.Emit(s.root, s.src, s.rules)
	s.src = out
	cp := make([]byte, len(out))
	copy(cp, out)
	return cp
}

// sortTopLevel enforces the fixed group order on the root's children. A
// clean document is left untouched so it still replays verbatim.
func (s *Schematic) sortTopLevel() {
	if !s.root.Dirty() {
		return
	}
	children := s.root.Children()
	ordered := make([]*sexp.Node, len(children))
	copy(ordered, children)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rankOf(ordered[i].Tag()) < rankOf(ordered[j].Tag())
	})
	for i, c := range ordered {
		if children[i] != c {
			// Order actually changed; rebuild the child list.
			s.rebuildTopLevel(ordered)
			return
		}
	}
}

func (s *Schematic) rebuildTopLevel(ordered []*sexp.Node) {
	children := s.root.Children()
	copy(children, ordered)
	s.root.MarkDirty()
}

func wrapLibraryError(libID string, err error) error {
	var le *symbols.LibraryError
	if errors.As(err, &le) {
		return err
	}
	return &symbols.LibraryError{LibID: libID, Err: err}
}
