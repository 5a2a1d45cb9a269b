package formats

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/meshio/mesh"
)

func TestExtensionDispatch(t *testing.T) {
	{ // Known extensions resolve
		for _, name := range []string{"a.msh", "a.xdmf", "a.xmf", "A.MSH"} {
			_, err := lookup(name, "")
			assert.NoError(t, err, name)
		}
	}
	{ // Unknown extensions and formats fail
		_, err := lookup("mesh.obj", "")
		assert.IsType(t, &mesh.FormatError{}, err)
		_, err = lookup("mesh.msh", "nastran")
		assert.IsType(t, &mesh.FormatError{}, err)
	}
	{ // Explicit format wins over the extension
		_, err := lookup("mesh.obj", "gmsh")
		assert.NoError(t, err)
	}
	assert.Contains(t, Names(), "gmsh2-ascii")
}

func TestConvertGmshToXdmf(t *testing.T) {
	m := mesh.New()
	m.Points = [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	m.AddCells("triangle", [][]int64{{0, 1, 2}})
	var err error
	m.PointData["temperature"], err = mesh.NewFloat64([]int{3}, []float64{1, 2, 3})
	require.NoError(t, err)

	dir := t.TempDir()
	mshFile := filepath.Join(dir, "mesh.msh")
	xdmfFile := filepath.Join(dir, "mesh.xdmf")

	require.NoError(t, Write(mshFile, "", m, &Options{GmshVersion: "4.1", ASCII: true}))
	read, err := Read(mshFile, "")
	require.NoError(t, err)

	require.NoError(t, Write(xdmfFile, "", read, &Options{XdmfDataFormat: "XML"}))
	got, err := Read(xdmfFile, "")
	require.NoError(t, err)

	require.Equal(t, 3, len(got.Points))
	for i := range m.Points {
		assert.True(t, floats.EqualApprox(m.Points[i], got.Points[i], 1e-15))
	}
	assert.Equal(t, m.Cells, got.Cells)
	temp, ok := got.PointData["temperature"]
	require.True(t, ok)
	assert.True(t, floats.EqualApprox([]float64{1, 2, 3}, temp.Float64s(), 1e-15))
}
