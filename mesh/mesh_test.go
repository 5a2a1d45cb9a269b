package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddCells(t *testing.T) {
	m := New()
	m.AddCells("triangle", [][]int64{{0, 1, 2}})
	m.AddCells("quad", [][]int64{{0, 1, 2, 3}})
	m.AddCells("triangle", [][]int64{{1, 2, 3}})

	// Blocks keep first-seen order and same-type cells merge
	assert.Equal(t, 2, len(m.Cells))
	assert.Equal(t, "triangle", m.Cells[0].Type)
	assert.Equal(t, 2, len(m.Cells[0].Nodes))
	assert.Equal(t, "quad", m.Cells[1].Type)
	assert.Equal(t, 3, m.NumCells())
	assert.Nil(t, m.Block("hexahedron"))
}

func TestCellDataRaw(t *testing.T) {
	cells := []CellBlock{
		{Type: "triangle", Nodes: [][]int64{{0, 1, 2}, {1, 2, 3}}},
		{Type: "quad", Nodes: [][]int64{{0, 1, 2, 3}}},
	}
	raw := map[string]*Array{}
	raw["pressure"], _ = NewFloat64([]int{3}, []float64{1, 2, 3})

	split, err := CellDataFromRaw(cells, raw)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(split["pressure"]))
	assert.Equal(t, []float64{1, 2}, split["pressure"][0].Data().([]float64))
	assert.Equal(t, []float64{3}, split["pressure"][1].Data().([]float64))

	// Round back
	joined, err := RawFromCellData(split)
	assert.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, joined["pressure"].Data().([]float64))

	// Mismatched cell counts fail
	raw["bad"], _ = NewFloat64([]int{5}, []float64{1, 2, 3, 4, 5})
	_, err = CellDataFromRaw(cells, raw)
	assert.IsType(t, &FormatError{}, err)
}

func TestCellTypes(t *testing.T) {
	n, err := NumNodes("tetra10")
	assert.NoError(t, err)
	assert.Equal(t, 10, n)

	info, err := CellType("hexahedron27")
	assert.NoError(t, err)
	assert.Equal(t, 27, info.NumNodes)
	assert.Equal(t, 3, info.Dim)

	_, err = NumNodes("dodecahedron")
	assert.IsType(t, &UnsupportedCellTypeError{}, err)
}
