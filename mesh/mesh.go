// Package mesh holds the canonical in-memory mesh representation shared by
// all format codecs: points, cells grouped by canonical type, and the
// point/cell/field data attached to them.
package mesh

// CellBlock groups all cells of one canonical type. Node indices refer to
// rows of Mesh.Points.
type CellBlock struct {
	Type  string
	Nodes [][]int64
}

// Mesh is the format-independent mesh artifact. Cells is ordered: codecs
// preserve the first-seen order of distinct cell types, which Go maps
// cannot, so the type-to-cells mapping is a block list.
type Mesh struct {
	Points    [][]float64
	Cells     []CellBlock
	PointData map[string]*Array
	CellData  map[string][]*Array
	FieldData map[string][]int64
}

// New returns an empty mesh with the data maps allocated.
func New() *Mesh {
	return &Mesh{
		PointData: make(map[string]*Array),
		CellData:  make(map[string][]*Array),
		FieldData: make(map[string][]int64),
	}
}

// Block returns the cell block of the given type, or nil.
func (m *Mesh) Block(cellType string) *CellBlock {
	for i := range m.Cells {
		if m.Cells[i].Type == cellType {
			return &m.Cells[i]
		}
	}
	return nil
}

// AddCells appends cells of one type, merging into an existing block of the
// same type and otherwise appending a new block.
func (m *Mesh) AddCells(cellType string, nodes [][]int64) {
	if b := m.Block(cellType); b != nil {
		b.Nodes = append(b.Nodes, nodes...)
		return
	}
	m.Cells = append(m.Cells, CellBlock{Type: cellType, Nodes: nodes})
}

// NumCells is the total cell count across all blocks.
func (m *Mesh) NumCells() int {
	return NumCells(m.Cells)
}

// NumCells is the total cell count across the given blocks.
func NumCells(cells []CellBlock) int {
	n := 0
	for _, b := range cells {
		n += len(b.Nodes)
	}
	return n
}

// CellDataFromRaw splits arrays spanning all cells in block order into
// per-block arrays aligned with cells.
func CellDataFromRaw(cells []CellBlock, raw map[string]*Array) (map[string][]*Array, error) {
	out := make(map[string][]*Array, len(raw))
	for name, a := range raw {
		parts := make([]*Array, 0, len(cells))
		offset := 0
		for _, b := range cells {
			part, err := a.SliceRows(offset, offset+len(b.Nodes))
			if err != nil {
				return nil, Formatf("cell data %q covers %d cells, mesh has more", name, a.Rows())
			}
			parts = append(parts, part)
			offset += len(b.Nodes)
		}
		if offset != a.Rows() {
			return nil, Formatf("cell data %q covers %d cells, mesh has %d", name, a.Rows(), offset)
		}
		out[name] = parts
	}
	return out, nil
}

// RawFromCellData concatenates per-block cell data back into one array per
// name, in block order.
func RawFromCellData(cellData map[string][]*Array) (map[string]*Array, error) {
	out := make(map[string]*Array, len(cellData))
	for name, parts := range cellData {
		a, err := Concat(parts)
		if err != nil {
			return nil, Writef("cell data %q: %s", name, err)
		}
		out[name] = a
	}
	return out, nil
}
