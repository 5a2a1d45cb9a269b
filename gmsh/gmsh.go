// Package gmsh reads and writes Gmsh .msh files, versions 2.2, 4.0 and 4.1,
// in ASCII and binary encodings.
package gmsh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/meshio/mesh"
)

type readFunc func(s *scanner, isASCII bool, dataSize int) (*mesh.Mesh, error)
type writeFunc func(w *bufio.Writer, m *mesh.Mesh, binary bool) error

// Version dispatch tables. A bare major version resolves to the newest
// codec of that line on write and to the oldest on read, matching how the
// format evolved in the wild.
var (
	readers = map[string]readFunc{
		"2":   readV2,
		"4":   readV40,
		"4.0": readV40,
		"4.1": readV41,
	}
	writers = map[string]writeFunc{
		"2":   writeV2,
		"4":   writeV41,
		"4.0": writeV40,
		"4.1": writeV41,
	}
)

// Read reads a Gmsh .msh file.
func Read(filename string) (*mesh.Mesh, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	defer f.Close()
	return ReadBuffer(f)
}

// ReadBuffer reads a Gmsh mesh from a byte stream positioned at the start
// of the file.
func ReadBuffer(r io.Reader) (*mesh.Mesh, error) {
	s := newScanner(r)

	line, err := s.line()
	if err != nil {
		return nil, err
	}
	// Skip any $Comments sections preceding the format declaration.
	for line == "$Comments" {
		for line != "$EndComments" {
			if line, err = s.line(); err != nil {
				return nil, err
			}
		}
		if line, err = s.line(); err != nil {
			return nil, err
		}
	}
	if line != "$MeshFormat" {
		return nil, mesh.Formatf("expected $MeshFormat, got %q", line)
	}

	version, dataSize, isASCII, err := readHeader(s)
	if err != nil {
		return nil, err
	}
	reader, err := lookupReader(version)
	if err != nil {
		return nil, err
	}
	return reader(s, isASCII, dataSize)
}

func lookupReader(version string) (readFunc, error) {
	if r, ok := readers[version]; ok {
		return r, nil
	}
	if r, ok := readers[strings.SplitN(version, ".", 2)[0]]; ok {
		return r, nil
	}
	return nil, &mesh.UnsupportedVersionError{Version: version, Supported: keys(readers)}
}

// readHeader parses the format declaration
//
//	version file-type data-size
//
// keeping the version as text for exact dispatch. In binary mode the line
// is followed by the integer 1, which doubles as an endianness check.
func readHeader(s *scanner) (version string, dataSize int, isASCII bool, err error) {
	line, err := s.line()
	if err != nil {
		return "", 0, false, err
	}
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", 0, false, mesh.Formatf("malformed $MeshFormat line %q", line)
	}
	version = fields[0]
	switch fields[1] {
	case "0":
		isASCII = true
	case "1":
		isASCII = false
	default:
		return "", 0, false, mesh.Formatf("file type must be 0 or 1, got %q", fields[1])
	}
	if dataSize, err = strconv.Atoi(fields[2]); err != nil {
		return "", 0, false, mesh.Formatf("bad data size %q", fields[2])
	}
	if !isASCII {
		var one int32
		if err = binary.Read(s.r, binary.LittleEndian, &one); err != nil {
			return "", 0, false, fmt.Errorf("reading endianness sentinel: %w", err)
		}
		if one != 1 {
			return "", 0, false, mesh.Formatf("endianness sentinel is %d, want 1", one)
		}
	}
	// Fast forward to the section terminator, tolerating unknown content.
	for {
		line, err = s.line()
		if err != nil {
			return "", 0, false, err
		}
		if line == "$EndMeshFormat" {
			return version, dataSize, isASCII, nil
		}
	}
}

// Write writes mesh m to filename in the requested format version. The
// mesh is validated first so that a WriteError leaves the file untouched.
func Write(filename string, m *mesh.Mesh, version string, binaryMode bool) error {
	writer, ok := writers[version]
	if !ok {
		writer, ok = writers[strings.SplitN(version, ".", 2)[0]]
	}
	if !ok {
		return &mesh.UnsupportedVersionError{Version: version, Supported: keys(writers)}
	}
	if err := validateWrite(m); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	w := bufio.NewWriter(f)
	if err := writer(w, m, binaryMode); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// validateWrite applies the output constraints that must fail before any
// bytes are produced.
func validateWrite(m *mesh.Mesh) error {
	if len(m.Points) > 0 {
		if d := len(m.Points[0]); d != 2 && d != 3 {
			return mesh.Writef("points must be 2- or 3-dimensional, got %d", d)
		}
	}
	for name, a := range m.PointData {
		if err := checkComponents(name, a); err != nil {
			return err
		}
	}
	for name, parts := range m.CellData {
		for _, a := range parts {
			if err := checkComponents(name, a); err != nil {
				return err
			}
		}
	}
	for _, b := range m.Cells {
		if _, ok := typeToCode[b.Type]; !ok {
			return &mesh.UnsupportedCellTypeError{Name: b.Type}
		}
	}
	return nil
}

func checkComponents(name string, a *mesh.Array) error {
	switch a.Cols() {
	case 1, 3, 9:
		return nil
	}
	return mesh.Writef("data field %q has %d components, Gmsh permits 1, 3, or 9", name, a.Cols())
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// scanner couples line-oriented reading with raw binary record reads over
// one buffered stream, which is how the binary .msh encodings interleave
// text markers with fixed-width records.
type scanner struct {
	r *bufio.Reader
}

func newScanner(r io.Reader) *scanner {
	return &scanner{r: bufio.NewReader(r)}
}

// line reads the next line, stripped of the newline and surrounding space.
func (s *scanner) line() (string, error) {
	line, err := s.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		if err == io.EOF {
			return "", io.EOF
		}
		return "", fmt.Errorf("reading line: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// intLine reads a line holding a single integer.
func (s *scanner) intLine() (int, error) {
	line, err := s.line()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, mesh.Formatf("expected integer line, got %q", line)
	}
	return n, nil
}

// expect consumes lines until the given section terminator, failing on end
// of input so that unbalanced markers surface as format errors.
func (s *scanner) expect(terminator string) error {
	for {
		line, err := s.line()
		if err != nil {
			return mesh.Formatf("missing %s", terminator)
		}
		if line == terminator {
			return nil
		}
	}
}

// uint reads one unsigned integer of the given word size in binary mode.
func (s *scanner) uint(wordSize int) (uint64, error) {
	if wordSize == 4 {
		var v uint32
		if err := binary.Read(s.r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	}
	var v uint64
	if err := binary.Read(s.r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *scanner) int32() (int32, error) {
	var v int32
	err := binary.Read(s.r, binary.LittleEndian, &v)
	return v, err
}

func (s *scanner) float64s(n int) ([]float64, error) {
	out := make([]float64, n)
	if err := binary.Read(s.r, binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}
