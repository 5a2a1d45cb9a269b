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

// The two 4.x revisions share the entity-block layout but disagree on the
// block-header field order (4.0 leads with the entity tag, 4.1 with the
// dimension), on whether node tags and coordinates are interleaved, and on
// the width of tags in binary mode (int32 in 4.0, the declared word size in
// 4.1).

func readV40(s *scanner, isASCII bool, dataSize int) (*mesh.Mesh, error) {
	return readV4(s, isASCII, dataSize, false)
}

func readV41(s *scanner, isASCII bool, dataSize int) (*mesh.Mesh, error) {
	return readV4(s, isASCII, dataSize, true)
}

func readV4(s *scanner, isASCII bool, dataSize int, v41 bool) (*mesh.Mesh, error) {
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
			nodeIDs, err = readNodesV4(s, isASCII, dataSize, v41, m)
		case "Elements":
			err = readElementsV4(s, isASCII, dataSize, v41, m, nodeIDs)
		case "NodeData":
			err = readDataSection(s, "NodeData", m.PointData, isASCII)
		case "ElementData":
			err = readDataSection(s, "ElementData", cellDataRaw, isASCII)
		default:
			// $Entities, $Periodic and friends contribute nothing to the
			// canonical mesh.
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

func readNodesV4(s *scanner, isASCII bool, dataSize int, v41 bool, m *mesh.Mesh) (map[int64]int64, error) {
	ids := make(map[int64]int64)

	if isASCII {
		header, err := s.line()
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(header)
		want := 2
		if v41 {
			want = 4
		}
		if len(fields) < want {
			return nil, mesh.Formatf("malformed $Nodes header %q", header)
		}
		numBlocks, err1 := strconv.Atoi(fields[0])
		numNodes, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return nil, mesh.Formatf("malformed $Nodes header %q", header)
		}
		m.Points = make([][]float64, 0, numNodes)

		for b := 0; b < numBlocks; b++ {
			line, err := s.line()
			if err != nil {
				return nil, err
			}
			var tag, dim, parametric, n int
			var cnt int
			if v41 {
				cnt, err = fmt.Sscanf(line, "%d %d %d %d", &dim, &tag, &parametric, &n)
			} else {
				cnt, err = fmt.Sscanf(line, "%d %d %d %d", &tag, &dim, &parametric, &n)
			}
			if err != nil || cnt != 4 {
				return nil, mesh.Formatf("malformed node block header %q", line)
			}
			if parametric != 0 {
				return nil, mesh.Formatf("parametric nodes are not supported")
			}
			if v41 {
				// Tags first, then coordinates.
				tags := make([]int64, n)
				for i := range tags {
					v, err := s.intLine()
					if err != nil {
						return nil, err
					}
					tags[i] = int64(v)
				}
				for i := 0; i < n; i++ {
					line, err := s.line()
					if err != nil {
						return nil, err
					}
					var x, y, z float64
					if cnt, err := fmt.Sscanf(line, "%f %f %f", &x, &y, &z); err != nil || cnt != 3 {
						return nil, mesh.Formatf("malformed coordinate line %q", line)
					}
					ids[tags[i]] = int64(len(m.Points))
					m.Points = append(m.Points, []float64{x, y, z})
				}
			} else {
				for i := 0; i < n; i++ {
					line, err := s.line()
					if err != nil {
						return nil, err
					}
					var nodeTag int64
					var x, y, z float64
					if cnt, err := fmt.Sscanf(line, "%d %f %f %f", &nodeTag, &x, &y, &z); err != nil || cnt != 4 {
						return nil, mesh.Formatf("malformed node line %q", line)
					}
					ids[nodeTag] = int64(len(m.Points))
					m.Points = append(m.Points, []float64{x, y, z})
				}
			}
		}
	} else {
		numBlocks, err := s.uint(dataSize)
		if err != nil {
			return nil, fmt.Errorf("reading $Nodes header: %w", err)
		}
		numNodes, err := s.uint(dataSize)
		if err != nil {
			return nil, fmt.Errorf("reading $Nodes header: %w", err)
		}
		if v41 {
			if _, err := s.uint(dataSize); err != nil { // min tag
				return nil, err
			}
			if _, err := s.uint(dataSize); err != nil { // max tag
				return nil, err
			}
		}
		m.Points = make([][]float64, 0, numNodes)

		for b := uint64(0); b < numBlocks; b++ {
			var hdr [3]int32 // dim/tag order differs, parametric flag last
			if err := binary.Read(s.r, binary.LittleEndian, &hdr); err != nil {
				return nil, fmt.Errorf("reading node block header: %w", err)
			}
			if hdr[2] != 0 {
				return nil, mesh.Formatf("parametric nodes are not supported")
			}
			n, err := s.uint(dataSize)
			if err != nil {
				return nil, err
			}
			if v41 {
				tags := make([]int64, n)
				for i := range tags {
					t, err := s.uint(dataSize)
					if err != nil {
						return nil, err
					}
					tags[i] = int64(t)
				}
				coords, err := s.float64s(int(n) * 3)
				if err != nil {
					return nil, err
				}
				for i := uint64(0); i < n; i++ {
					ids[tags[i]] = int64(len(m.Points))
					m.Points = append(m.Points, coords[i*3:i*3+3])
				}
			} else {
				for i := uint64(0); i < n; i++ {
					tag, err := s.int32()
					if err != nil {
						return nil, err
					}
					xyz, err := s.float64s(3)
					if err != nil {
						return nil, err
					}
					ids[int64(tag)] = int64(len(m.Points))
					m.Points = append(m.Points, xyz)
				}
			}
		}
	}
	return ids, s.expect("$EndNodes")
}

func readElementsV4(s *scanner, isASCII bool, dataSize int, v41 bool, m *mesh.Mesh, nodeIDs map[int64]int64) error {
	if nodeIDs == nil {
		return mesh.Formatf("$Elements section precedes $Nodes")
	}

	if isASCII {
		header, err := s.line()
		if err != nil {
			return err
		}
		fields := strings.Fields(header)
		if len(fields) < 2 {
			return mesh.Formatf("malformed $Elements header %q", header)
		}
		numBlocks, err := strconv.Atoi(fields[0])
		if err != nil {
			return mesh.Formatf("malformed $Elements header %q", header)
		}

		for b := 0; b < numBlocks; b++ {
			line, err := s.line()
			if err != nil {
				return err
			}
			var tag, dim, code, n int
			var cnt int
			if v41 {
				cnt, err = fmt.Sscanf(line, "%d %d %d %d", &dim, &tag, &code, &n)
			} else {
				cnt, err = fmt.Sscanf(line, "%d %d %d %d", &tag, &dim, &code, &n)
			}
			if err != nil || cnt != 4 {
				return mesh.Formatf("malformed element block header %q", line)
			}
			name, numNodes, err := cellTypeForCode(code)
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				line, err := s.line()
				if err != nil {
					return err
				}
				fields := strings.Fields(line)
				if len(fields) != 1+numNodes {
					return mesh.Formatf("element line %q carries %d fields, want %d",
						line, len(fields), 1+numNodes)
				}
				nodes, err := remapNodes(fields[1:], nodeIDs)
				if err != nil {
					return err
				}
				m.AddCells(name, [][]int64{nodes})
			}
		}
	} else {
		numBlocks, err := s.uint(dataSize)
		if err != nil {
			return fmt.Errorf("reading $Elements header: %w", err)
		}
		if _, err := s.uint(dataSize); err != nil { // total element count
			return err
		}
		if v41 {
			if _, err := s.uint(dataSize); err != nil {
				return err
			}
			if _, err := s.uint(dataSize); err != nil {
				return err
			}
		}

		for b := uint64(0); b < numBlocks; b++ {
			var hdr [3]int32 // dim/tag order differs, element type last
			if err := binary.Read(s.r, binary.LittleEndian, &hdr); err != nil {
				return fmt.Errorf("reading element block header: %w", err)
			}
			code := int(hdr[2])
			n, err := s.uint(dataSize)
			if err != nil {
				return err
			}
			name, numNodes, err := cellTypeForCode(code)
			if err != nil {
				return err
			}
			for i := uint64(0); i < n; i++ {
				nodes := make([]int64, numNodes)
				for k := -1; k < numNodes; k++ {
					var v int64
					if v41 {
						u, err := s.uint(dataSize)
						if err != nil {
							return err
						}
						v = int64(u)
					} else {
						u, err := s.int32()
						if err != nil {
							return err
						}
						v = int64(u)
					}
					if k < 0 {
						continue // element tag
					}
					row, ok := nodeIDs[v]
					if !ok {
						return mesh.Formatf("element references unknown node %d", v)
					}
					nodes[k] = row
				}
				m.AddCells(name, [][]int64{nodes})
			}
		}
	}
	return s.expect("$EndElements")
}

func writeV40(w *bufio.Writer, m *mesh.Mesh, binaryMode bool) error {
	return writeV4(w, m, binaryMode, false)
}

func writeV41(w *bufio.Writer, m *mesh.Mesh, binaryMode bool) error {
	return writeV4(w, m, binaryMode, true)
}

// writeV4 emits the mesh as a single synthetic entity block per section:
// dense 1-based node tags and consecutive element tags across blocks.
func writeV4(w *bufio.Writer, m *mesh.Mesh, binaryMode, v41 bool) error {
	version := "4.0"
	if v41 {
		version = "4.1"
	}
	mode := 0
	if binaryMode {
		mode = 1
	}
	fmt.Fprintf(w, "$MeshFormat\n%s %d 8\n", version, mode)
	if binaryMode {
		if err := binary.Write(w, binary.LittleEndian, int32(1)); err != nil {
			return err
		}
		w.WriteString("\n")
	}
	w.WriteString("$EndMeshFormat\n")

	if err := writePhysicalNames(w, m.FieldData); err != nil {
		return err
	}

	points := paddedPoints(m.Points)
	dim := maxCellDim(m)
	n := len(points)

	w.WriteString("$Nodes\n")
	if binaryMode {
		counts := []uint64{1, uint64(n)}
		if v41 {
			counts = append(counts, 1, uint64(n))
		}
		if err := binary.Write(w, binary.LittleEndian, counts); err != nil {
			return err
		}
		hdr := [3]int32{int32(dim), 1, 0}
		if !v41 {
			hdr = [3]int32{1, int32(dim), 0}
		}
		if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(n)); err != nil {
			return err
		}
		if v41 {
			for i := 0; i < n; i++ {
				if err := binary.Write(w, binary.LittleEndian, uint64(i+1)); err != nil {
					return err
				}
			}
			for _, p := range points {
				if err := binary.Write(w, binary.LittleEndian, p); err != nil {
					return err
				}
			}
		} else {
			for i, p := range points {
				if err := binary.Write(w, binary.LittleEndian, int32(i+1)); err != nil {
					return err
				}
				if err := binary.Write(w, binary.LittleEndian, p); err != nil {
					return err
				}
			}
		}
		w.WriteString("\n")
	} else {
		if v41 {
			fmt.Fprintf(w, "1 %d 1 %d\n", n, n)
			fmt.Fprintf(w, "%d 1 0 %d\n", dim, n)
			for i := 0; i < n; i++ {
				fmt.Fprintf(w, "%d\n", i+1)
			}
			for _, p := range points {
				fmt.Fprintf(w, "%s %s %s\n",
					strconv.FormatFloat(p[0], 'g', -1, 64),
					strconv.FormatFloat(p[1], 'g', -1, 64),
					strconv.FormatFloat(p[2], 'g', -1, 64))
			}
		} else {
			fmt.Fprintf(w, "1 %d\n", n)
			fmt.Fprintf(w, "1 %d 0 %d\n", dim, n)
			for i, p := range points {
				fmt.Fprintf(w, "%d %s %s %s\n", i+1,
					strconv.FormatFloat(p[0], 'g', -1, 64),
					strconv.FormatFloat(p[1], 'g', -1, 64),
					strconv.FormatFloat(p[2], 'g', -1, 64))
			}
		}
	}
	w.WriteString("$EndNodes\n")

	total := m.NumCells()
	w.WriteString("$Elements\n")
	if binaryMode {
		counts := []uint64{uint64(len(m.Cells)), uint64(total)}
		if v41 {
			counts = append(counts, 1, uint64(total))
		}
		if err := binary.Write(w, binary.LittleEndian, counts); err != nil {
			return err
		}
	} else {
		if v41 {
			fmt.Fprintf(w, "%d %d 1 %d\n", len(m.Cells), total, total)
		} else {
			fmt.Fprintf(w, "%d %d\n", len(m.Cells), total)
		}
	}
	id := 1
	for _, b := range m.Cells {
		code := typeToCode[b.Type]
		info, err := mesh.CellType(b.Type)
		if err != nil {
			return err
		}
		if binaryMode {
			hdr := [3]int32{int32(info.Dim), 1, int32(code)}
			if !v41 {
				hdr = [3]int32{1, int32(info.Dim), int32(code)}
			}
			if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, uint64(len(b.Nodes))); err != nil {
				return err
			}
			for _, cell := range b.Nodes {
				if v41 {
					rec := make([]uint64, 1+len(cell))
					rec[0] = uint64(id)
					for k, v := range cell {
						rec[1+k] = uint64(v + 1)
					}
					if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
						return err
					}
				} else {
					rec := make([]int32, 1+len(cell))
					rec[0] = int32(id)
					for k, v := range cell {
						rec[1+k] = int32(v + 1)
					}
					if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
						return err
					}
				}
				id++
			}
		} else {
			if v41 {
				fmt.Fprintf(w, "%d 1 %d %d\n", info.Dim, code, len(b.Nodes))
			} else {
				fmt.Fprintf(w, "1 %d %d %d\n", info.Dim, code, len(b.Nodes))
			}
			for _, cell := range b.Nodes {
				fmt.Fprintf(w, "%d", id)
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
