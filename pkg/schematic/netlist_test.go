package schematic

import (
	"testing"
)

func netByName(nets []Net, name string) *Net {
	for i := range nets {
		if nets[i].Name == name {
			return &nets[i]
		}
	}
	return nil
}

func TestNetlistLabeledNets(t *testing.T) {
	sch := New(WithSymbolProvider(testProvider()))
	sch.AddComponent("Device:R", "R1", "10k", Point{X: 100, Y: 100})

	// Pin 1 sits at (100, 103.81), pin 2 at (100, 96.19).
	sch.AddWire(Point{X: 100, Y: 103.81}, Point{X: 100, Y: 110})
	sch.AddLabel(LabelLocal, "VIN", Point{X: 100, Y: 110}, 0, "")
	sch.AddWire(Point{X: 100, Y: 96.19}, Point{X: 100, Y: 90})
	sch.AddLabel(LabelLocal, "VOUT", Point{X: 100, Y: 90}, 0, "")

	nets, err := sch.Netlist()
	if err != nil {
		t.Fatalf("Netlist: %v", err)
	}
	if len(nets) != 2 {
		t.Fatalf("nets = %d, want 2: %+v", len(nets), nets)
	}

	vin := netByName(nets, "VIN")
	if vin == nil {
		t.Fatal("no VIN net")
	}
	if len(vin.Nodes) != 1 || vin.Nodes[0] != (NetNode{Reference: "R1", Pin: "1"}) {
		t.Errorf("VIN nodes = %+v, want R1.1", vin.Nodes)
	}
	vout := netByName(nets, "VOUT")
	if vout == nil {
		t.Fatal("no VOUT net")
	}
	if len(vout.Nodes) != 1 || vout.Nodes[0] != (NetNode{Reference: "R1", Pin: "2"}) {
		t.Errorf("VOUT nodes = %+v, want R1.2", vout.Nodes)
	}
}

func TestNetlistJunctionMergesNets(t *testing.T) {
	sch := New(WithSymbolProvider(testProvider()))
	sch.AddComponent("Device:R", "R1", "10k", Point{X: 100, Y: 100})
	sch.AddComponent("Device:R", "R2", "10k", Point{X: 120, Y: 100})

	// Horizontal rail through both pin-1 positions, with R2's pin landing
	// mid-segment; the junction makes the T-connection electrical.
	sch.AddWire(Point{X: 90, Y: 103.81}, Point{X: 130, Y: 103.81})
	sch.AddJunction(Point{X: 120, Y: 103.81}, 0)
	sch.AddLabel(LabelGlobal, "RAIL", Point{X: 90, Y: 103.81}, 0, "input")

	nets, err := sch.Netlist()
	if err != nil {
		t.Fatal(err)
	}
	rail := netByName(nets, "RAIL")
	if rail == nil {
		t.Fatalf("no RAIL net in %+v", nets)
	}
	if len(rail.Nodes) != 2 {
		t.Fatalf("RAIL nodes = %+v, want R1.1 and R2.1", rail.Nodes)
	}
	if rail.Nodes[0].Reference != "R1" || rail.Nodes[1].Reference != "R2" {
		t.Errorf("RAIL nodes = %+v", rail.Nodes)
	}
}

func TestNetlistLabelPriority(t *testing.T) {
	sch := New(WithSymbolProvider(testProvider()))
	sch.AddWire(Point{X: 100, Y: 100}, Point{X: 110, Y: 100})
	sch.AddLabel(LabelLocal, "local_name", Point{X: 100, Y: 100}, 0, "")
	sch.AddLabel(LabelGlobal, "GLOBAL_NAME", Point{X: 110, Y: 100}, 0, "input")

	nets, err := sch.Netlist()
	if err != nil {
		t.Fatal(err)
	}
	if len(nets) != 1 {
		t.Fatalf("nets = %d, want 1 merged net", len(nets))
	}
	if nets[0].Name != "GLOBAL_NAME" {
		t.Errorf("net name = %q, global label should win", nets[0].Name)
	}
}

func TestNetlistUnnamed(t *testing.T) {
	sch := New(WithSymbolProvider(testProvider()))
	sch.AddComponent("Device:R", "R1", "10k", Point{X: 100, Y: 100})
	sch.AddComponent("Device:R", "R2", "10k", Point{X: 100, Y: 120})

	// R1 pin 1 (100, 103.81) to R2 pin 2 (100, 116.19), no label anywhere.
	if _, err := sch.ConnectPins("R1", "1", "R2", "2"); err != nil {
		t.Fatal(err)
	}

	nets, err := sch.Netlist()
	if err != nil {
		t.Fatal(err)
	}
	if len(nets) != 1 {
		t.Fatalf("nets = %d, want 1", len(nets))
	}
	if nets[0].Name != "N$1" {
		t.Errorf("net name = %q, want synthetic N$1", nets[0].Name)
	}
	if len(nets[0].Nodes) != 2 {
		t.Errorf("nodes = %+v", nets[0].Nodes)
	}
}

func TestBOMGroupsAndOrders(t *testing.T) {
	sch := New(WithSymbolProvider(testProvider()))
	sch.AddComponent("Device:R", "R2", "10k", Point{X: 110, Y: 100})
	sch.AddComponent("Device:R", "R10", "10k", Point{X: 120, Y: 100})
	sch.AddComponent("Device:R", "R1", "22k", Point{X: 100, Y: 100})
	sch.AddComponent("Device:C", "C1", "100n", Point{X: 130, Y: 100})

	rows := sch.BOM()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3: %+v", len(rows), rows)
	}

	// Sorted by first reference: C1, then R1 (22k), then R2+R10 (10k).
	if rows[0].References[0] != "C1" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Value != "22k" || rows[1].References[0] != "R1" {
		t.Errorf("22k row = %+v", rows[1])
	}
	tenK := rows[2]
	if tenK.Value != "10k" || tenK.Quantity != 2 {
		t.Fatalf("10k row = %+v", tenK)
	}
	// Natural ordering: R2 before R10.
	if tenK.References[0] != "R2" || tenK.References[1] != "R10" {
		t.Errorf("10k references = %v, want [R2 R10]", tenK.References)
	}
}
