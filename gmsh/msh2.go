package gmsh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/notargets/meshio/mesh"
)

// readV2 decodes the MSH 2.2 body: flat node and element lists with
// 1-based, possibly sparse ids.
func readV2(s *scanner, isASCII bool, dataSize int) (*mesh.Mesh, error) {
	m := mesh.New()
	cellDataRaw := make(map[string]*mesh.Array)
	var nodeIDs map[int64]int64

	for {
		line, err := s.line()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "$") {
			return nil, mesh.Formatf("expected section marker, got %q", line)
		}
		section := line[1:]
		switch section {
		case "PhysicalNames":
			err = readPhysicalNames(s, m.FieldData)
		case "Nodes":
			nodeIDs, err = readNodesV2(s, isASCII, m)
		case "Elements":
			err = readElementsV2(s, isASCII, m, nodeIDs)
		case "NodeData":
			err = readDataSection(s, "NodeData", m.PointData, isASCII)
		case "ElementData":
			err = readDataSection(s, "ElementData", cellDataRaw, isASCII)
		default:
			err = s.expect("$End" + section)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(cellDataRaw) > 0 {
		var err error
		if m.CellData, err = mesh.CellDataFromRaw(m.Cells, cellDataRaw); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func readNodesV2(s *scanner, isASCII bool, m *mesh.Mesh) (map[int64]int64, error) {
	n, err := s.intLine()
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]int64, n)
	m.Points = make([][]float64, 0, n)

	if isASCII {
		for i := 0; i < n; i++ {
			line, err := s.line()
			if err != nil {
				return nil, err
			}
			var id int64
			var x, y, z float64
			if cnt, err := fmt.Sscanf(line, "%d %f %f %f", &id, &x, &y, &z); err != nil || cnt != 4 {
				return nil, mesh.Formatf("malformed node line %q", line)
			}
			ids[id] = int64(i)
			m.Points = append(m.Points, []float64{x, y, z})
		}
	} else {
		for i := 0; i < n; i++ {
			id, err := s.int32()
			if err != nil {
				return nil, fmt.Errorf("reading node record %d: %w", i+1, err)
			}
			xyz, err := s.float64s(3)
			if err != nil {
				return nil, fmt.Errorf("reading node record %d: %w", i+1, err)
			}
			ids[int64(id)] = int64(i)
			m.Points = append(m.Points, xyz)
		}
	}
	return ids, s.expect("$EndNodes")
}

func readElementsV2(s *scanner, isASCII bool, m *mesh.Mesh, nodeIDs map[int64]int64) error {
	if nodeIDs == nil {
		return mesh.Formatf("$Elements section precedes $Nodes")
	}
	n, err := s.intLine()
	if err != nil {
		return err
	}

	if isASCII {
		for i := 0; i < n; i++ {
			line, err := s.line()
			if err != nil {
				return err
			}
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return mesh.Formatf("malformed element line %q", line)
			}
			code, err1 := strconv.Atoi(fields[1])
			numTags, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil {
				return mesh.Formatf("malformed element line %q", line)
			}
			name, numNodes, err := cellTypeForCode(code)
			if err != nil {
				return err
			}
			if len(fields) != 3+numTags+numNodes {
				return mesh.Formatf("element line %q carries %d fields, want %d",
					line, len(fields), 3+numTags+numNodes)
			}
			nodes, err := remapNodes(fields[3+numTags:], nodeIDs)
			if err != nil {
				return err
			}
			m.AddCells(name, [][]int64{nodes})
		}
	} else {
		for read := 0; read < n; {
			var header [3]int32 // element type, block length, tag count
			if err := binary.Read(s.r, binary.LittleEndian, &header); err != nil {
				return fmt.Errorf("reading element block header: %w", err)
			}
			name, numNodes, err := cellTypeForCode(int(header[0]))
			if err != nil {
				return err
			}
			numTags := int(header[2])
			rec := make([]int32, 1+numTags+numNodes)
			for e := 0; e < int(header[1]); e++ {
				if err := binary.Read(s.r, binary.LittleEndian, rec); err != nil {
					return fmt.Errorf("reading element record: %w", err)
				}
				nodes := make([]int64, numNodes)
				for k := 0; k < numNodes; k++ {
					row, ok := nodeIDs[int64(rec[1+numTags+k])]
					if !ok {
						return mesh.Formatf("element references unknown node %d", rec[1+numTags+k])
					}
					nodes[k] = row
				}
				m.AddCells(name, [][]int64{nodes})
			}
			read += int(header[1])
		}
	}
	return s.expect("$EndElements")
}

func remapNodes(fields []string, nodeIDs map[int64]int64) ([]int64, error) {
	nodes := make([]int64, len(fields))
	for k, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, mesh.Formatf("bad node reference %q", f)
		}
		row, ok := nodeIDs[v]
		if !ok {
			return nil, mesh.Formatf("element references unknown node %d", v)
		}
		nodes[k] = row
	}
	return nodes, nil
}

// writeV2 encodes the mesh as MSH 2.2.
func writeV2(w *bufio.Writer, m *mesh.Mesh, binaryMode bool) error {
	w.WriteString("$MeshFormat\n")
	if binaryMode {
		w.WriteString("2.2 1 8\n")
		if err := binary.Write(w, binary.LittleEndian, int32(1)); err != nil {
			return err
		}
		w.WriteString("\n")
	} else {
		w.WriteString("2.2 0 8\n")
	}
	w.WriteString("$EndMeshFormat\n")

	if err := writePhysicalNames(w, m.FieldData); err != nil {
		return err
	}

	points := paddedPoints(m.Points)
	fmt.Fprintf(w, "$Nodes\n%d\n", len(points))
	if binaryMode {
		for i, p := range points {
			if err := binary.Write(w, binary.LittleEndian, int32(i+1)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, p); err != nil {
				return err
			}
		}
		w.WriteString("\n")
	} else {
		for i, p := range points {
			fmt.Fprintf(w, "%d %s %s %s\n", i+1,
				strconv.FormatFloat(p[0], 'g', -1, 64),
				strconv.FormatFloat(p[1], 'g', -1, 64),
				strconv.FormatFloat(p[2], 'g', -1, 64))
		}
	}
	w.WriteString("$EndNodes\n")

	fmt.Fprintf(w, "$Elements\n%d\n", m.NumCells())
	id := 1
	for _, b := range m.Cells {
		code := typeToCode[b.Type]
		if binaryMode {
			header := [3]int32{int32(code), int32(len(b.Nodes)), 0}
			if err := binary.Write(w, binary.LittleEndian, header); err != nil {
				return err
			}
			for _, cell := range b.Nodes {
				rec := make([]int32, 1+len(cell))
				rec[0] = int32(id)
				for k, v := range cell {
					rec[1+k] = int32(v + 1)
				}
				if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
					return err
				}
				id++
			}
		} else {
			for _, cell := range b.Nodes {
				fmt.Fprintf(w, "%d %d 0", id, code)
				for _, v := range cell {
					fmt.Fprintf(w, " %d", v+1)
				}
				w.WriteString("\n")
				id++
			}
		}
	}
	if binaryMode {
		w.WriteString("\n")
	}
	w.WriteString("$EndElements\n")

	return writeDataSections(w, m, binaryMode)
}
