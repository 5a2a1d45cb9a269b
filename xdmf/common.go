// Package xdmf reads and writes XDMF 3 time-series files: an XML document
// describing a temporal collection of grids over one static mesh, with the
// heavy array data inline, in raw binary sidecar files, or in an HDF5 store.
package xdmf

import (
	"github.com/notargets/meshio/mesh"
)

// xdmfToType maps XDMF topology-type names to canonical cell types,
// accepting both the long and the abbreviated spellings found in the wild.
var xdmfToType = map[string]string{
	"Polyvertex":       "vertex",
	"Polyline":         "line",
	"Triangle":         "triangle",
	"Quadrilateral":    "quad",
	"Tetrahedron":      "tetra",
	"Pyramid":          "pyramid",
	"Wedge":            "wedge",
	"Hexahedron":       "hexahedron",
	"Edge_3":           "line3",
	"Triangle_6":       "triangle6",
	"Tri_6":            "triangle6",
	"Quadrilateral_8":  "quad8",
	"Quad_8":           "quad8",
	"Quadrilateral_9":  "quad9",
	"Tetrahedron_10":   "tetra10",
	"Tet_10":           "tetra10",
	"Pyramid_13":       "pyramid13",
	"Wedge_15":         "wedge15",
	"Wedge_18":         "wedge18",
	"Hexahedron_20":    "hexahedron20",
	"Hex_20":           "hexahedron20",
	"Hexahedron_24":    "hexahedron24",
	"Hexahedron_27":    "hexahedron27",
	"Hexahedron_64":    "hexahedron64",
	"Hexahedron_125":   "hexahedron125",
	"Hexahedron_216":   "hexahedron216",
	"Hexahedron_343":   "hexahedron343",
	"Hexahedron_512":   "hexahedron512",
	"Hexahedron_729":   "hexahedron729",
	"Hexahedron_1000":  "hexahedron1000",
}

// typeToXdmf holds the primary spelling used on write.
var typeToXdmf = map[string]string{
	"vertex":         "Polyvertex",
	"line":           "Polyline",
	"triangle":       "Triangle",
	"quad":           "Quadrilateral",
	"tetra":          "Tetrahedron",
	"pyramid":        "Pyramid",
	"wedge":          "Wedge",
	"hexahedron":     "Hexahedron",
	"line3":          "Edge_3",
	"triangle6":      "Triangle_6",
	"quad8":          "Quadrilateral_8",
	"quad9":          "Quadrilateral_9",
	"tetra10":        "Tetrahedron_10",
	"pyramid13":      "Pyramid_13",
	"wedge15":        "Wedge_15",
	"wedge18":        "Wedge_18",
	"hexahedron20":   "Hexahedron_20",
	"hexahedron24":   "Hexahedron_24",
	"hexahedron27":   "Hexahedron_27",
	"hexahedron64":   "Hexahedron_64",
	"hexahedron125":  "Hexahedron_125",
	"hexahedron216":  "Hexahedron_216",
	"hexahedron343":  "Hexahedron_343",
	"hexahedron512":  "Hexahedron_512",
	"hexahedron729":  "Hexahedron_729",
	"hexahedron1000": "Hexahedron_1000",
}

// Mixed-topology element ids, per the XDMF format reference.
var xdmfIndexToType = map[int64]string{
	0x1:  "vertex",
	0x2:  "line",
	0x4:  "triangle",
	0x5:  "quad",
	0x6:  "tetra",
	0x7:  "pyramid",
	0x8:  "wedge",
	0x9:  "hexahedron",
	0x22: "line3",
	0x23: "quad9",
	0x24: "triangle6",
	0x25: "quad8",
	0x26: "tetra10",
	0x27: "pyramid13",
	0x28: "wedge15",
	0x29: "wedge18",
	0x30: "hexahedron20",
	0x31: "hexahedron24",
	0x32: "hexahedron27",
	0x33: "hexahedron64",
	0x34: "hexahedron125",
	0x35: "hexahedron216",
	0x36: "hexahedron343",
	0x37: "hexahedron512",
	0x38: "hexahedron729",
	0x39: "hexahedron1000",
}

var typeToXdmfIndex = make(map[string]int64, len(xdmfIndexToType))

func init() {
	for idx, name := range xdmfIndexToType {
		typeToXdmfIndex[name] = idx
	}
}

// xdmfToDtype indexes the wire (DataType, Precision) pair to the concrete
// numeric representation.
var xdmfToDtype = map[[2]string]mesh.Dtype{
	{"Int", "4"}:   mesh.Int32,
	{"Int", "8"}:   mesh.Int64,
	{"UInt", "4"}:  mesh.Uint32,
	{"UInt", "8"}:  mesh.Uint64,
	{"Float", "4"}: mesh.Float32,
	{"Float", "8"}: mesh.Float64,
	{"Char", "1"}:  mesh.Int8,
	{"UChar", "1"}: mesh.Uint8,
}

var dtypeToXdmf = map[mesh.Dtype][2]string{
	mesh.Int32:   {"Int", "4"},
	mesh.Int64:   {"Int", "8"},
	mesh.Uint32:  {"UInt", "4"},
	mesh.Uint64:  {"UInt", "8"},
	mesh.Float32: {"Float", "4"},
	mesh.Float64: {"Float", "8"},
	mesh.Int8:    {"Char", "1"},
	mesh.Uint8:   {"UChar", "1"},
}

// translateMixedCells groups a flat mixed-topology stream of
// (type-id, nodes...) records into cell blocks, preserving the first-seen
// order of distinct types. Polyline records carry an explicit node count,
// which is stripped.
func translateMixedCells(data []int64) ([]mesh.CellBlock, error) {
	var blocks []mesh.CellBlock
	add := func(name string, cell []int64) {
		for i := range blocks {
			if blocks[i].Type == name {
				blocks[i].Nodes = append(blocks[i].Nodes, cell)
				return
			}
		}
		blocks = append(blocks, mesh.CellBlock{Type: name, Nodes: [][]int64{cell}})
	}

	r := 0
	for r < len(data) {
		idx := data[r]
		name, ok := xdmfIndexToType[idx]
		if !ok {
			return nil, &mesh.UnsupportedCellTypeError{Code: int(idx)}
		}
		var numNodes int
		if idx == 0x2 {
			// Polylines declare their own arity.
			if r+1 >= len(data) {
				return nil, mesh.Formatf("mixed topology stream truncated at polyline header")
			}
			numNodes = int(data[r+1])
			if numNodes != 2 {
				return nil, mesh.Formatf("polyline with %d nodes has no canonical cell type", numNodes)
			}
			r++
		} else {
			var err error
			if numNodes, err = mesh.NumNodes(name); err != nil {
				return nil, err
			}
		}
		if r+1+numNodes > len(data) {
			return nil, mesh.Formatf("mixed topology stream truncated inside a %s cell", name)
		}
		cell := make([]int64, numNodes)
		copy(cell, data[r+1:r+1+numNodes])
		add(name, cell)
		r += 1 + numNodes
	}
	return blocks, nil
}

// flattenMixedCells concatenates cell blocks into one flat mixed-topology
// stream in block order, prefixing each cell with its type id and line
// cells additionally with their arity. The returned length is the declared
// dimension of the stream.
func flattenMixedCells(cells []mesh.CellBlock) ([]int64, error) {
	var data []int64
	for _, b := range cells {
		idx, ok := typeToXdmfIndex[b.Type]
		if !ok {
			return nil, &mesh.UnsupportedCellTypeError{Name: b.Type}
		}
		for _, cell := range b.Nodes {
			data = append(data, idx)
			if b.Type == "line" {
				data = append(data, int64(len(cell)))
			}
			data = append(data, cell...)
		}
	}
	return data, nil
}

// attributeType classifies an array for the AttributeType attribute by its
// trailing shape.
func attributeType(a *mesh.Array) (string, error) {
	shape := a.Shape()
	switch {
	case len(shape) == 1 || (len(shape) == 2 && shape[1] == 1):
		return "Scalar", nil
	case len(shape) == 2 && (shape[1] == 2 || shape[1] == 3):
		return "Vector", nil
	case (len(shape) == 2 && shape[1] == 9) ||
		(len(shape) == 3 && shape[1] == 3 && shape[2] == 3):
		return "Tensor", nil
	case len(shape) == 2:
		return "Matrix", nil
	}
	return "", mesh.Writef("cannot classify data of shape %v as an attribute", shape)
}
