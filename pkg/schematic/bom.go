package schematic

import (
	"sort"
	"strconv"
)

// BOMRow is one line of a grouped bill of materials: every populated
// component sharing a library symbol, value and footprint.
type BOMRow struct {
	References []string
	Value      string
	Footprint  string
	LibID      string
	Quantity   int
}

type bomKey struct {
	libID     string
	value     string
	footprint string
}

// BOM groups the document's components into bill-of-materials rows.
// Components flagged dnp or excluded from BOM are skipped. Rows sort by
// first reference; references within a row sort naturally (R2 before
// R10).
func (s *Schematic) BOM() []BOMRow {
	groups := make(map[bomKey]*BOMRow)
	var order []bomKey
	for _, c := range s.components.Items() {
		if !c.InBOM() || c.DNP() {
			continue
		}
		key := bomKey{libID: c.LibID(), value: c.Value(), footprint: c.Footprint()}
		row, ok := groups[key]
		if !ok {
			row = &BOMRow{Value: key.value, Footprint: key.footprint, LibID: key.libID}
			groups[key] = row
			order = append(order, key)
		}
		row.References = append(row.References, c.Reference())
		row.Quantity++
	}

	rows := make([]BOMRow, 0, len(order))
	for _, key := range order {
		row := groups[key]
		sort.Slice(row.References, func(i, j int) bool {
			return refLess(row.References[i], row.References[j])
		})
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return refLess(rows[i].References[0], rows[j].References[0])
	})
	return rows
}

// refLess orders reference designators naturally: prefix first, then the
// numeric suffix as a number.
func refLess(a, b string) bool {
	pa, na := splitRef(a)
	pb, nb := splitRef(b)
	if pa != pb {
		return pa < pb
	}
	if na != nb {
		return na < nb
	}
	return a < b
}

func splitRef(ref string) (string, int) {
	i := len(ref)
	for i > 0 && ref[i-1] >= '0' && ref[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(ref[i:])
	if err != nil {
		return ref, -1
	}
	return ref[:i], n
}
