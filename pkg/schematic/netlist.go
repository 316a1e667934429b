package schematic

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tracekit/kicadsch/pkg/symbols"
)

// NetNode is one pin attached to a net.
type NetNode struct {
	Reference string
	Pin       string
}

// Net is a derived electrical net: connected wire geometry plus the pins
// touching it. Nets with a label take the label text as their name;
// unlabeled nets get synthetic N$ names in a stable order.
type Net struct {
	Name  string
	Nodes []NetNode
}

const coordTolerance = 0.01 // mm, generous against float drift in files

func coordKey(p Point) string {
	return fmt.Sprintf("%.2f,%.2f", p.X, p.Y)
}

// netBuilder is a union-find over schematic coordinates.
type netBuilder struct {
	parent map[string]string
}

func newNetBuilder() *netBuilder {
	return &netBuilder{parent: make(map[string]string)}
}

func (b *netBuilder) find(k string) string {
	p, ok := b.parent[k]
	if !ok {
		b.parent[k] = k
		return k
	}
	if p == k {
		return k
	}
	root := b.find(p)
	b.parent[k] = root
	return root
}

func (b *netBuilder) union(a, c string) {
	ra, rc := b.find(a), b.find(c)
	if ra != rc {
		b.parent[ra] = rc
	}
}

// onSegment reports whether p lies on the segment a-b (endpoints
// included), within tolerance.
func onSegment(p, a, b Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	length := math.Hypot(b.X-a.X, b.Y-a.Y)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y) <= coordTolerance
	}
	if math.Abs(cross)/length > coordTolerance {
		return false
	}
	dot := (p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)
	return dot >= -coordTolerance && dot <= length*length+coordTolerance
}

// attach joins p to the wire geometry: to its own coordinate key, and to
// any wire segment passing through it. Mid-segment attachment is what
// makes junctions and pins landing on a wire body connect.
func (b *netBuilder) attach(p Point, wires []*Wire) string {
	key := coordKey(p)
	for _, w := range wires {
		pts := w.Points()
		for i := 0; i+1 < len(pts); i++ {
			if onSegment(p, pts[i], pts[i+1]) {
				b.union(key, coordKey(pts[i]))
			}
		}
	}
	return key
}

type netLabel struct {
	key  string
	text string
	rank int
}

type netPin struct {
	key  string
	node NetNode
}

// Netlist derives the electrical nets of the document. Pin attachment
// needs the symbol provider for pin offsets; without one, Netlist returns
// the labeled wire nets with no pin nodes.
func (s *Schematic) Netlist() ([]Net, error) {
	b := newNetBuilder()
	wires := s.wires.Items()

	for _, w := range wires {
		pts := w.Points()
		for i := 0; i+1 < len(pts); i++ {
			b.union(coordKey(pts[i]), coordKey(pts[i+1]))
		}
	}
	for _, j := range s.junctions.Items() {
		b.attach(j.Position(), wires)
	}

	labelRank := map[LabelKind]int{LabelGlobal: 3, LabelHierarchical: 2, LabelLocal: 1}
	var labels []netLabel
	for _, l := range s.labels.Items() {
		labels = append(labels, netLabel{
			key:  b.attach(l.Position(), wires),
			text: l.Text(),
			rank: labelRank[l.Kind()],
		})
	}

	var pins []netPin
	if s.provider != nil {
		for _, c := range s.components.Items() {
			def, err := s.provider.GetSymbol(c.LibID())
			if err != nil {
				var le *symbols.LibraryError
				if errors.As(err, &le) {
					// Components without a resolvable symbol contribute
					// no pins.
					continue
				}
				return nil, err
			}
			for _, pin := range def.Pins {
				pos, err := c.PinPosition(def, pin.Number)
				if err != nil {
					continue
				}
				pins = append(pins, netPin{
					key:  b.attach(pos, wires),
					node: NetNode{Reference: c.Reference(), Pin: pin.Number},
				})
			}
		}
	}

	// Resolve roots only now: every union has happened, so merged nets
	// collapse correctly.
	names := make(map[string]string)
	rank := make(map[string]int)
	for _, l := range labels {
		root := b.find(l.key)
		if l.rank > rank[root] {
			rank[root] = l.rank
			names[root] = l.text
		}
	}
	nodes := make(map[string][]NetNode)
	for _, p := range pins {
		root := b.find(p.key)
		nodes[root] = append(nodes[root], p.node)
	}

	roots := make(map[string]bool)
	for root := range names {
		roots[root] = true
	}
	for root := range nodes {
		roots[root] = true
	}
	var ordered []string
	for root := range roots {
		ordered = append(ordered, root)
	}
	sort.Strings(ordered)

	var nets []Net
	auto := 1
	for _, root := range ordered {
		net := Net{Name: names[root], Nodes: nodes[root]}
		if net.Name == "" {
			// A lone pin touching no wire is unconnected, not a net.
			if len(net.Nodes) < 2 {
				continue
			}
			net.Name = fmt.Sprintf("N$%d", auto)
			auto++
		}
		sort.Slice(net.Nodes, func(i, j int) bool {
			if net.Nodes[i].Reference != net.Nodes[j].Reference {
				return net.Nodes[i].Reference < net.Nodes[j].Reference
			}
			return net.Nodes[i].Pin < net.Nodes[j].Pin
		})
		nets = append(nets, net)
	}
	return nets, nil
}
