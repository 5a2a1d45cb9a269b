package gmsh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/meshio/mesh"
)

// codeToType maps the Gmsh element-type code to the canonical cell-type
// name, per the MSH reference up to the 1000-node hexahedron.
var codeToType = map[int]string{
	1:   "line",
	2:   "triangle",
	3:   "quad",
	4:   "tetra",
	5:   "hexahedron",
	6:   "wedge",
	7:   "pyramid",
	8:   "line3",
	9:   "triangle6",
	10:  "quad9",
	11:  "tetra10",
	12:  "hexahedron27",
	13:  "wedge18",
	14:  "pyramid14",
	15:  "vertex",
	16:  "quad8",
	17:  "hexahedron20",
	21:  "triangle10",
	23:  "triangle15",
	25:  "triangle21",
	26:  "line4",
	27:  "line5",
	28:  "line6",
	29:  "tetra20",
	30:  "tetra35",
	31:  "tetra56",
	36:  "quad16",
	37:  "quad25",
	38:  "quad36",
	42:  "triangle28",
	43:  "triangle36",
	44:  "triangle45",
	45:  "triangle55",
	46:  "triangle66",
	47:  "quad49",
	48:  "quad64",
	49:  "quad81",
	50:  "quad100",
	51:  "quad121",
	62:  "line7",
	63:  "line8",
	64:  "line9",
	65:  "line10",
	66:  "line11",
	71:  "tetra84",
	72:  "tetra120",
	73:  "tetra165",
	74:  "tetra220",
	75:  "tetra286",
	90:  "wedge40",
	91:  "wedge75",
	92:  "hexahedron64",
	93:  "hexahedron125",
	94:  "hexahedron216",
	95:  "hexahedron343",
	96:  "hexahedron512",
	97:  "hexahedron729",
	98:  "hexahedron1000",
	106: "wedge126",
	107: "wedge196",
	108: "wedge288",
	109: "wedge405",
	110: "wedge550",
}

var typeToCode = make(map[string]int, len(codeToType))

func init() {
	for code, name := range codeToType {
		typeToCode[name] = code
	}
}

// cellTypeForCode resolves an element-type code to its canonical name and
// node count.
func cellTypeForCode(code int) (name string, numNodes int, err error) {
	name, ok := codeToType[code]
	if !ok {
		return "", 0, &mesh.UnsupportedCellTypeError{Code: code}
	}
	numNodes, err = mesh.NumNodes(name)
	return name, numNodes, err
}

// readPhysicalNames parses the $PhysicalNames section into field data as
// (id, dimension) pairs keyed by name.
func readPhysicalNames(s *scanner, fieldData map[string][]int64) error {
	n, err := s.intLine()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		line, err := s.line()
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return mesh.Formatf("malformed physical name line %q", line)
		}
		dim, err1 := strconv.ParseInt(fields[0], 10, 64)
		id, err2 := strconv.ParseInt(fields[1], 10, 64)
		if err1 != nil || err2 != nil {
			return mesh.Formatf("malformed physical name line %q", line)
		}
		name := strings.ReplaceAll(strings.Join(fields[2:], " "), `"`, "")
		fieldData[name] = []int64{id, dim}
	}
	line, err := s.line()
	if err != nil || line != "$EndPhysicalNames" {
		return mesh.Formatf("missing $EndPhysicalNames")
	}
	return nil
}

// writePhysicalNames emits field data as a $PhysicalNames section, sorted
// by (dimension, id). Entries that are not (id, dimension) pairs are
// skipped with a warning rather than aborting the write.
func writePhysicalNames(w *bufio.Writer, fieldData map[string][]int64) error {
	type entry struct {
		dim, id int64
		name    string
	}
	var entries []entry
	for name, v := range fieldData {
		if len(v) != 2 {
			log.Printf("gmsh: field data entry %q cannot be written as a physical name, skipping", name)
			continue
		}
		entries = append(entries, entry{dim: v[1], id: v[0], name: name})
	}
	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].dim != entries[j].dim {
			return entries[i].dim < entries[j].dim
		}
		if entries[i].id != entries[j].id {
			return entries[i].id < entries[j].id
		}
		return entries[i].name < entries[j].name
	})
	fmt.Fprintf(w, "$PhysicalNames\n%d\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(w, "%d %d \"%s\"\n", e.dim, e.id, e.name)
	}
	_, err := w.WriteString("$EndPhysicalNames\n")
	return err
}

// readDataSection parses one $NodeData or $ElementData section. Tag blocks
// are positional: the first string tag names the field, real tags carry a
// time value that is not modeled here, and the second and third integer
// tags give the component and item counts.
func readDataSection(s *scanner, section string, dataDict map[string]*mesh.Array, isASCII bool) error {
	numStringTags, err := s.intLine()
	if err != nil {
		return err
	}
	stringTags := make([]string, numStringTags)
	for i := range stringTags {
		line, err := s.line()
		if err != nil {
			return err
		}
		stringTags[i] = strings.ReplaceAll(line, `"`, "")
	}
	if len(stringTags) == 0 {
		return mesh.Formatf("$%s section carries no name tag", section)
	}

	numRealTags, err := s.intLine()
	if err != nil {
		return err
	}
	for i := 0; i < numRealTags; i++ {
		if _, err := s.line(); err != nil {
			return err
		}
	}

	numIntTags, err := s.intLine()
	if err != nil {
		return err
	}
	intTags := make([]int, numIntTags)
	for i := range intTags {
		if intTags[i], err = s.intLine(); err != nil {
			return err
		}
	}
	if numIntTags < 3 {
		return mesh.Formatf("$%s section has %d integer tags, need at least 3", section, numIntTags)
	}
	numComponents := intTags[1]
	numItems := intTags[2]

	values := make([]float64, numItems*numComponents)
	if isASCII {
		// Token stream of numItems rows, each an index followed by the
		// component values. The leading index is dropped.
		need := numItems * (1 + numComponents)
		got := 0
		for got < need {
			line, err := s.line()
			if err != nil {
				return mesh.Formatf("$%s section ends after %d of %d values", section, got, need)
			}
			for _, tok := range strings.Fields(line) {
				if got >= need {
					return mesh.Formatf("$%s section has surplus values", section)
				}
				v, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return mesh.Formatf("bad value %q in $%s", tok, section)
				}
				if got%(1+numComponents) != 0 {
					row := got / (1 + numComponents)
					comp := got%(1+numComponents) - 1
					values[row*numComponents+comp] = v
				}
				got++
			}
		}
	} else {
		for i := 0; i < numItems; i++ {
			idx, err := s.int32()
			if err != nil {
				return fmt.Errorf("reading $%s record %d: %w", section, i+1, err)
			}
			if int(idx) != i+1 {
				return mesh.Formatf("$%s indices out of sequence: record %d has index %d", section, i+1, idx)
			}
			row, err := s.float64s(numComponents)
			if err != nil {
				return fmt.Errorf("reading $%s record %d: %w", section, i+1, err)
			}
			copy(values[i*numComponents:], row)
		}
	}

	if err := s.expect("$End" + section); err != nil {
		return err
	}

	// The format cannot distinguish (n,) from (n,1); collapse the trailing
	// singleton dimension.
	shape := []int{numItems, numComponents}
	if numComponents == 1 {
		shape = []int{numItems}
	}
	a, err := mesh.NewFloat64(shape, values)
	if err != nil {
		return err
	}
	dataDict[stringTags[0]] = a
	return nil
}

// writeDataSection emits one data field as a $NodeData or $ElementData
// section.
func writeDataSection(w *bufio.Writer, section, name string, a *mesh.Array, binaryMode bool) error {
	numComponents := a.Cols()
	switch numComponents {
	case 1, 3, 9:
	default:
		return mesh.Writef("data field %q has %d components, Gmsh permits 1, 3, or 9", name, numComponents)
	}
	values := a.Float64s()
	numItems := a.Rows()

	fmt.Fprintf(w, "$%s\n", section)
	// One string tag (the field name), one real tag (the time value), and
	// three integer tags (time step, components, item count).
	fmt.Fprintf(w, "1\n\"%s\"\n", name)
	fmt.Fprintf(w, "1\n0.0\n")
	fmt.Fprintf(w, "3\n0\n%d\n%d\n", numComponents, numItems)

	if binaryMode {
		for i := 0; i < numItems; i++ {
			if err := binary.Write(w, binary.LittleEndian, int32(i+1)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, values[i*numComponents:(i+1)*numComponents]); err != nil {
				return err
			}
		}
		w.WriteString("\n")
	} else {
		for i := 0; i < numItems; i++ {
			fmt.Fprintf(w, "%d", i+1)
			for c := 0; c < numComponents; c++ {
				fmt.Fprintf(w, " %s", strconv.FormatFloat(values[i*numComponents+c], 'g', -1, 64))
			}
			w.WriteString("\n")
		}
	}
	_, err := fmt.Fprintf(w, "$End%s\n", section)
	return err
}

// writeDataSections writes all point and cell data in deterministic name
// order.
func writeDataSections(w *bufio.Writer, m *mesh.Mesh, binaryMode bool) error {
	for _, name := range sortedKeys(m.PointData) {
		if err := writeDataSection(w, "NodeData", name, m.PointData[name], binaryMode); err != nil {
			return err
		}
	}
	if len(m.CellData) == 0 {
		return nil
	}
	raw, err := mesh.RawFromCellData(m.CellData)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(raw) {
		if err := writeDataSection(w, "ElementData", name, raw[name], binaryMode); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]*mesh.Array) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// paddedPoints returns the coordinates as three columns, zero-filling z for
// planar meshes: the node sections always carry three coordinates.
func paddedPoints(points [][]float64) [][]float64 {
	if len(points) == 0 || len(points[0]) == 3 {
		return points
	}
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = []float64{p[0], p[1], 0}
	}
	return out
}

// maxCellDim is the highest topological dimension present, used to label
// the synthetic entity block on write.
func maxCellDim(m *mesh.Mesh) int {
	dim := 0
	for _, b := range m.Cells {
		if info, err := mesh.CellType(b.Type); err == nil && info.Dim > dim {
			dim = info.Dim
		}
	}
	return dim
}
