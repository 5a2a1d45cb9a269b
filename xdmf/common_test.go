package xdmf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshio/mesh"
)

func TestMixedCells(t *testing.T) {
	{ // Flatten then translate restores the blocks
		cells := []mesh.CellBlock{
			{Type: "triangle", Nodes: [][]int64{{0, 1, 2}, {1, 3, 2}}},
			{Type: "line", Nodes: [][]int64{{0, 1}}},
			{Type: "hexahedron", Nodes: [][]int64{{0, 1, 2, 3, 4, 5, 6, 7}}},
		}
		flat, err := flattenMixedCells(cells)
		require.NoError(t, err)
		// Triangles carry the bare type id, lines an explicit arity.
		want := []int64{
			0x4, 0, 1, 2,
			0x4, 1, 3, 2,
			0x2, 2, 0, 1,
			0x9, 0, 1, 2, 3, 4, 5, 6, 7,
		}
		assert.Equal(t, want, flat)

		back, err := translateMixedCells(flat)
		require.NoError(t, err)
		assert.Equal(t, cells, back)
	}
	{ // Polylines with more than two nodes have no canonical type
		_, err := translateMixedCells([]int64{0x2, 3, 0, 1, 2})
		assert.IsType(t, &mesh.FormatError{}, err)
	}
	{ // Truncated streams fail
		_, err := translateMixedCells([]int64{0x4, 0, 1})
		assert.IsType(t, &mesh.FormatError{}, err)
		_, err = translateMixedCells([]int64{0x2})
		assert.IsType(t, &mesh.FormatError{}, err)
	}
	{ // Unknown topology ids fail
		_, err := translateMixedCells([]int64{0x99, 0, 1})
		assert.IsType(t, &mesh.UnsupportedCellTypeError{}, err)
	}
}

func TestAttributeType(t *testing.T) {
	cases := []struct {
		shape []int
		want  string
	}{
		{[]int{4}, "Scalar"},
		{[]int{4, 1}, "Scalar"},
		{[]int{4, 3}, "Vector"},
		{[]int{4, 9}, "Tensor"},
		{[]int{4, 3, 3}, "Tensor"},
		{[]int{4, 5}, "Matrix"},
	}
	for _, c := range cases {
		a := mesh.NewZero(mesh.Float64, c.shape)
		got, err := attributeType(a)
		assert.NoError(t, err)
		assert.Equal(t, c.want, got, "shape %v", c.shape)
	}

	bad := mesh.NewZero(mesh.Float64, []int{2, 2, 2})
	_, err := attributeType(bad)
	assert.IsType(t, &mesh.WriteError{}, err)
}

func TestResolveDtype(t *testing.T) {
	{ // Defaults are four-byte floats
		dt, err := resolveDtype(&dataItem{})
		assert.NoError(t, err)
		assert.Equal(t, mesh.Float32, dt)
	}
	{ // NumberType is the alternate spelling
		dt, err := resolveDtype(&dataItem{NumberType: "Int", Precision: "8"})
		assert.NoError(t, err)
		assert.Equal(t, mesh.Int64, dt)
	}
	{ // Both spellings at once is malformed
		_, err := resolveDtype(&dataItem{DataType: "Float", NumberType: "Float"})
		assert.IsType(t, &mesh.FormatError{}, err)
	}
	{ // Unknown pairs name the offending values
		_, err := resolveDtype(&dataItem{DataType: "Float", Precision: "2"})
		var ute *mesh.UnsupportedTypeError
		require.ErrorAs(t, err, &ute)
		assert.Equal(t, "Float", ute.DataType)
		assert.Equal(t, "2", ute.Precision)
	}
}
