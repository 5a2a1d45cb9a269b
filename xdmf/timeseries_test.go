package xdmf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/meshio/mesh"
)

func TestTimeSeriesRoundTrip(t *testing.T) {
	points := [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0.5},
	}
	cells := []mesh.CellBlock{
		{Type: "triangle", Nodes: [][]int64{{0, 1, 2}, {1, 3, 2}}},
		{Type: "line", Nodes: [][]int64{{0, 1}}},
	}
	times := []float64{0, 0.5}

	for _, format := range []string{"XML", "Binary", "HDF"} {
		dir := t.TempDir()
		filename := filepath.Join(dir, "out.xdmf")

		w, err := NewTimeSeriesWriter(filename, format)
		require.NoError(t, err, format)
		require.NoError(t, w.WritePointsCells(points, cells), format)
		for k, tv := range times {
			require.NoError(t, w.WriteData(tv, stepPointData(t, k), stepCellData(t, k)), format)
		}
		require.NoError(t, w.Close(), format)

		r, err := NewTimeSeriesReader(filename)
		require.NoError(t, err, format)
		assert.Equal(t, 2, r.NumSteps, format)

		gotPoints, gotCells, err := r.ReadPointsCells()
		require.NoError(t, err, format)
		require.Equal(t, len(points), len(gotPoints), format)
		for i := range points {
			assert.True(t, floats.EqualApprox(points[i], gotPoints[i], 1e-15), format)
		}
		assert.Equal(t, cells, gotCells, format)

		for k, tv := range times {
			gotT, pd, cd, err := r.ReadData(k)
			require.NoError(t, err, format)
			assert.Equal(t, tv, gotT, format)

			wantPD := stepPointData(t, k)
			require.Equal(t, len(wantPD), len(pd), format)
			for name, a := range wantPD {
				b, ok := pd[name]
				require.True(t, ok, "%s: missing point data %q", format, name)
				assert.Equal(t, a.Shape(), b.Shape(), format)
				assert.True(t, floats.EqualApprox(a.Float64s(), b.Float64s(), 1e-15), format)
			}
			wantCD := stepCellData(t, k)
			require.Equal(t, len(wantCD), len(cd), format)
			for name, parts := range wantCD {
				gotParts, ok := cd[name]
				require.True(t, ok, "%s: missing cell data %q", format, name)
				require.Equal(t, len(parts), len(gotParts), format)
				for i := range parts {
					assert.True(t, floats.EqualApprox(
						parts[i].Float64s(), gotParts[i].Float64s(), 1e-15), format)
				}
			}
		}
		require.NoError(t, r.Close(), format)
	}
}

func TestSingleTypeTopology(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "tri.xdmf")
	points := [][]float64{{0, 0}, {1, 0}, {0, 1}}
	cells := []mesh.CellBlock{
		{Type: "triangle", Nodes: [][]int64{{0, 1, 2}}},
	}

	w, err := NewTimeSeriesWriter(filename, "XML")
	require.NoError(t, err)
	require.NoError(t, w.WritePointsCells(points, cells))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(filename)
	require.NoError(t, err)
	// A single cell block keeps its named topology instead of Mixed.
	assert.Contains(t, string(raw), `TopologyType="Triangle"`)
	assert.Contains(t, string(raw), `GeometryType="XY"`)

	r, err := NewTimeSeriesReader(filename)
	require.NoError(t, err)
	gotPoints, gotCells, err := r.ReadPointsCells()
	require.NoError(t, err)
	assert.Equal(t, cells, gotCells)
	require.Equal(t, 3, len(gotPoints))
	assert.Equal(t, 2, len(gotPoints[0]))
	require.NoError(t, r.Close())
}

func TestMixedTopologyDimensions(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "mixed.xdmf")
	cells := []mesh.CellBlock{
		{Type: "triangle", Nodes: [][]int64{{0, 1, 2}, {1, 3, 2}}},
		{Type: "line", Nodes: [][]int64{{0, 1}}},
	}

	w, err := NewTimeSeriesWriter(filename, "XML")
	require.NoError(t, err)
	require.NoError(t, w.WritePointsCells(
		[][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}, cells))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(filename)
	require.NoError(t, err)
	// Two triangles at 4 values each plus one line at 4 (id, arity, nodes).
	assert.Contains(t, string(raw), `TopologyType="Mixed"`)
	assert.Contains(t, string(raw), `NumberOfElements="3"`)
	assert.Contains(t, string(raw), `Dimensions="12"`)
}

func TestWriterOrdering(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out.xdmf")
	w, err := NewTimeSeriesWriter(filename, "XML")
	require.NoError(t, err)
	defer w.Close()

	err = w.WriteData(0, nil, nil)
	assert.IsType(t, &mesh.WriteError{}, err)
}

func TestReaderOrdering(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out.xdmf")
	w, err := NewTimeSeriesWriter(filename, "XML")
	require.NoError(t, err)
	require.NoError(t, w.WritePointsCells(
		[][]float64{{0, 0}, {1, 0}, {0, 1}},
		[]mesh.CellBlock{{Type: "triangle", Nodes: [][]int64{{0, 1, 2}}}}))
	require.NoError(t, w.WriteData(0, nil, nil))
	require.NoError(t, w.Close())

	r, err := NewTimeSeriesReader(filename)
	require.NoError(t, err)
	defer r.Close()

	// The mesh must come first
	_, _, _, err = r.ReadData(0)
	assert.IsType(t, &mesh.FormatError{}, err)
}

func TestVersionMajor(t *testing.T) {
	// Only major version 3 documents are supported; a leading 3 digit in a
	// higher major must not slip through.
	filename := filepath.Join(t.TempDir(), "future.xdmf")
	doc := `<?xml version="1.0"?>
<Xdmf Version="30.1">
  <Domain></Domain>
</Xdmf>`
	require.NoError(t, os.WriteFile(filename, []byte(doc), 0644))

	_, err := NewTimeSeriesReader(filename)
	var uve *mesh.UnsupportedVersionError
	require.ErrorAs(t, err, &uve)
	assert.Equal(t, "30.1", uve.Version)
}

func TestUnknownDataFormat(t *testing.T) {
	_, err := NewTimeSeriesWriter(filepath.Join(t.TempDir(), "out.xdmf"), "YAML")
	assert.IsType(t, &mesh.WriteError{}, err)
}

func stepPointData(t *testing.T, k int) map[string]*mesh.Array {
	t.Helper()
	base := float64(k + 1)
	scalar, err := mesh.NewFloat64([]int{4}, []float64{base, base + 1, base + 2, base + 3})
	require.NoError(t, err)
	vector, err := mesh.NewFloat64([]int{4, 3}, []float64{
		base, 0, 0, 0, base, 0, 0, 0, base, base, base, base,
	})
	require.NoError(t, err)
	return map[string]*mesh.Array{"temperature": scalar, "velocity": vector}
}

func stepCellData(t *testing.T, k int) map[string][]*mesh.Array {
	t.Helper()
	base := float64(10 * (k + 1))
	tri, err := mesh.NewFloat64([]int{2}, []float64{base, base + 1})
	require.NoError(t, err)
	line, err := mesh.NewFloat64([]int{1}, []float64{base + 2})
	require.NoError(t, err)
	return map[string][]*mesh.Array{"pressure": {tri, line}}
}
