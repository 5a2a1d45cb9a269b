package gmsh

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/meshio/mesh"
)

func TestReadV2ASCII(t *testing.T) {
	m, err := ReadBuffer(bytes.NewReader(inputV2ASCII))
	require.NoError(t, err)

	assert.Equal(t, 4, len(m.Points))
	assert.Equal(t, []float64{1, 0, 0}, m.Points[1])

	// Element tags beyond the type are dropped; same-type cells merge in
	// first-seen order.
	require.Equal(t, 2, len(m.Cells))
	assert.Equal(t, "triangle", m.Cells[0].Type)
	assert.Equal(t, [][]int64{{0, 1, 2}, {1, 3, 2}}, m.Cells[0].Nodes)
	assert.Equal(t, "line", m.Cells[1].Type)
	assert.Equal(t, [][]int64{{0, 1}}, m.Cells[1].Nodes)

	assert.Equal(t, []int64{1, 2}, m.FieldData["surface"])

	temp, ok := m.PointData["temperature"]
	require.True(t, ok)
	// One-component data collapses to a flat shape.
	assert.Equal(t, []int{4}, temp.Shape())
	assert.True(t, floats.EqualApprox(
		[]float64{1.5, 2.5, 3.5, 4.5}, temp.Float64s(), 1e-15))
}

func TestRoundTrip(t *testing.T) {
	m := buildMesh(t)
	dir := t.TempDir()
	for _, version := range []string{"2", "4.0", "4.1"} {
		for _, binaryMode := range []bool{false, true} {
			filename := filepath.Join(dir, "out.msh")
			require.NoError(t, Write(filename, m, version, binaryMode),
				"version %s binary %v", version, binaryMode)
			got, err := Read(filename)
			require.NoError(t, err, "version %s binary %v", version, binaryMode)
			assertMeshEqual(t, m, got)
		}
	}
}

func TestVersionDispatch(t *testing.T) {
	{ // A bare major 4 resolves on read
		_, err := lookupReader("4")
		assert.NoError(t, err)
		_, err = lookupReader("4.0")
		assert.NoError(t, err)
	}
	{ // Unknown versions carry the supported set
		_, err := lookupReader("9.9")
		var uve *mesh.UnsupportedVersionError
		require.ErrorAs(t, err, &uve)
		assert.Equal(t, "9.9", uve.Version)
		assert.NotEmpty(t, uve.Supported)
	}
	{ // Unknown write version fails before touching the file
		filename := filepath.Join(t.TempDir(), "out.msh")
		err := Write(filename, mesh.New(), "5.0", false)
		var uve *mesh.UnsupportedVersionError
		assert.ErrorAs(t, err, &uve)
		_, err = os.Stat(filename)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestEndiannessSentinel(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("$MeshFormat\n2.2 1 8\n")
	binary.Write(&buf, binary.LittleEndian, int32(1<<24)) // wrong byte order
	buf.WriteString("\n$EndMeshFormat\n")

	_, err := ReadBuffer(&buf)
	assert.IsType(t, &mesh.FormatError{}, err)
}

func TestBinaryDataIndexSequence(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("$MeshFormat\n2.2 1 8\n")
	binary.Write(&buf, binary.LittleEndian, int32(1))
	buf.WriteString("\n$EndMeshFormat\n")
	buf.WriteString("$NodeData\n1\n\"f\"\n1\n0.0\n3\n0\n1\n2\n")
	binary.Write(&buf, binary.LittleEndian, int32(1))
	binary.Write(&buf, binary.LittleEndian, float64(1.0))
	binary.Write(&buf, binary.LittleEndian, int32(3)) // should be 2
	binary.Write(&buf, binary.LittleEndian, float64(2.0))
	buf.WriteString("\n$EndNodeData\n")

	_, err := ReadBuffer(&buf)
	assert.IsType(t, &mesh.FormatError{}, err)
}

func TestWriteValidation(t *testing.T) {
	m := mesh.New()
	m.Points = [][]float64{{0, 0, 0}, {1, 0, 0}}
	m.PointData["velocity"], _ = mesh.NewFloat64([]int{2, 2}, []float64{1, 2, 3, 4})

	filename := filepath.Join(t.TempDir(), "out.msh")
	err := Write(filename, m, "4.1", false)
	assert.IsType(t, &mesh.WriteError{}, err)

	// Validation failed before the file was created
	_, err = os.Stat(filename)
	assert.True(t, os.IsNotExist(err))

	m.PointData["velocity"], _ = mesh.NewFloat64([]int{2, 5}, make([]float64, 10))
	err = Write(filename, m, "2", true)
	assert.IsType(t, &mesh.WriteError{}, err)
	_, err = os.Stat(filename)
	assert.True(t, os.IsNotExist(err))
}

func TestReadV41WithEntities(t *testing.T) {
	// Files from the gmsh tool open with a $Comments block and carry an
	// $Entities section; both contribute nothing to the mesh.
	m, err := ReadBuffer(bytes.NewReader(inputV41Entities))
	require.NoError(t, err)

	require.Equal(t, 3, len(m.Points))
	assert.Equal(t, []float64{1, 0, 0}, m.Points[1])
	require.Equal(t, 1, len(m.Cells))
	assert.Equal(t, "triangle", m.Cells[0].Type)
	assert.Equal(t, [][]int64{{0, 1, 2}}, m.Cells[0].Nodes)
}

func TestUnbalancedSectionMarker(t *testing.T) {
	// A skipped section whose $End marker never arrives is malformed.
	input := []byte(`$MeshFormat
4.1 0 8
$EndMeshFormat
$Periodic
1
0 1 2
`)
	_, err := ReadBuffer(bytes.NewReader(input))
	var fe *mesh.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "$EndPeriodic")
}

func TestRewriteStability(t *testing.T) {
	// A one-component field collapses to a flat array on read and must
	// produce the identical section when written again.
	m := buildMesh(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.msh")
	second := filepath.Join(dir, "second.msh")

	require.NoError(t, Write(first, m, "4.1", false))
	read, err := Read(first)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, read.PointData["temperature"].Shape())

	require.NoError(t, Write(second, read, "4.1", false))
	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPhysicalNamesOrder(t *testing.T) {
	m := mesh.New()
	m.Points = [][]float64{{0, 0, 0}}
	m.FieldData["outer"] = []int64{2, 2}
	m.FieldData["inner"] = []int64{1, 2}
	m.FieldData["volume"] = []int64{1, 3}
	m.FieldData["junk"] = []int64{1, 2, 3} // not an (id, dim) pair, skipped

	filename := filepath.Join(t.TempDir(), "out.msh")
	require.NoError(t, Write(filename, m, "2", false))
	raw, err := os.ReadFile(filename)
	require.NoError(t, err)

	want := "$PhysicalNames\n3\n2 1 \"inner\"\n2 2 \"outer\"\n3 1 \"volume\"\n$EndPhysicalNames\n"
	assert.Contains(t, string(raw), want)

	got, err := Read(filename)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got.FieldData["inner"])
	assert.NotContains(t, got.FieldData, "junk")
}

func buildMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.New()
	m.Points = [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0.5},
	}
	m.AddCells("triangle", [][]int64{{0, 1, 2}, {1, 3, 2}})
	m.AddCells("line", [][]int64{{0, 1}})

	var err error
	m.PointData["temperature"], err = mesh.NewFloat64([]int{4}, []float64{1.5, 2.5, 3.5, 4.5})
	require.NoError(t, err)
	m.PointData["velocity"], err = mesh.NewFloat64([]int{4, 3}, []float64{
		1, 0, 0, 0, 1, 0, 0, 0, 1, 1, 1, 1,
	})
	require.NoError(t, err)

	tri, err := mesh.NewFloat64([]int{2}, []float64{10, 20})
	require.NoError(t, err)
	line, err := mesh.NewFloat64([]int{1}, []float64{30})
	require.NoError(t, err)
	m.CellData["pressure"] = []*mesh.Array{tri, line}

	m.FieldData["surface"] = []int64{1, 2}
	return m
}

func assertMeshEqual(t *testing.T, want, got *mesh.Mesh) {
	t.Helper()
	require.Equal(t, len(want.Points), len(got.Points))
	for i := range want.Points {
		assert.True(t, floats.EqualApprox(want.Points[i], got.Points[i], 1e-15),
			"point %d: want %v, got %v", i, want.Points[i], got.Points[i])
	}
	require.Equal(t, len(want.Cells), len(got.Cells))
	for i := range want.Cells {
		assert.Equal(t, want.Cells[i].Type, got.Cells[i].Type)
		assert.Equal(t, want.Cells[i].Nodes, got.Cells[i].Nodes)
	}
	require.Equal(t, len(want.PointData), len(got.PointData))
	for name, a := range want.PointData {
		b, ok := got.PointData[name]
		require.True(t, ok, "missing point data %q", name)
		assert.Equal(t, a.Shape(), b.Shape())
		assert.True(t, floats.EqualApprox(a.Float64s(), b.Float64s(), 1e-15))
	}
	require.Equal(t, len(want.CellData), len(got.CellData))
	for name, parts := range want.CellData {
		gotParts, ok := got.CellData[name]
		require.True(t, ok, "missing cell data %q", name)
		require.Equal(t, len(parts), len(gotParts))
		for i := range parts {
			assert.True(t, floats.EqualApprox(
				parts[i].Float64s(), gotParts[i].Float64s(), 1e-15))
		}
	}
	assert.Equal(t, want.FieldData, got.FieldData)
}

var inputV41Entities = []byte(`$Comments
unit triangle, generated by hand
$EndComments
$MeshFormat
4.1 0 8
$EndMeshFormat
$Entities
0 0 1 0
1 0 0 0 1 1 0 0 0
$EndEntities
$Nodes
1 3 1 3
2 1 0 3
1
2
3
0.0 0.0 0.0
1.0 0.0 0.0
0.0 1.0 0.0
$EndNodes
$Elements
1 1 1 1
2 1 2 1
1 1 2 3
$EndElements
`)

var inputV2ASCII = []byte(`$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
1
2 1 "surface"
$EndPhysicalNames
$Nodes
4
1 0.0 0.0 0.0
2 1.0 0.0 0.0
3 0.0 1.0 0.0
4 1.0 1.0 0.0
$EndNodes
$Elements
3
1 2 2 1 1 1 2 3
2 2 2 1 1 2 4 3
3 1 2 1 1 1 2
$EndElements
$NodeData
1
"temperature"
1
0.0
3
0
1
4
1 1.5
2 2.5
3 3.5
4 4.5
$EndNodeData
`)
