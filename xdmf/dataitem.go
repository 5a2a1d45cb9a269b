package xdmf

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/notargets/meshio/mesh"
)

// resolveDtype determines the numeric representation from the attribute
// pair on a data item. DataType is the XDMF3 key and NumberType the XDMF2
// one; exactly one may be present, and the defaults are Float with a
// four-byte precision.
func resolveDtype(item *dataItem) (mesh.Dtype, error) {
	dataType := item.DataType
	if item.NumberType != "" {
		if dataType != "" {
			return 0, mesh.Formatf("data item declares both DataType and NumberType")
		}
		dataType = item.NumberType
	}
	if dataType == "" {
		dataType = "Float"
	}
	precision := item.Precision
	if precision == "" {
		precision = "4"
	}
	dt, ok := xdmfToDtype[[2]string{dataType, precision}]
	if !ok {
		return 0, &mesh.UnsupportedTypeError{DataType: dataType, Precision: precision}
	}
	return dt, nil
}

func parseDims(item *dataItem) ([]int, error) {
	fields := strings.Fields(item.Dimensions)
	if len(fields) == 0 {
		return nil, mesh.Formatf("data item carries no Dimensions")
	}
	dims := make([]int, len(fields))
	for i, f := range fields {
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, mesh.Formatf("bad dimension %q", f)
		}
		dims[i] = d
	}
	return dims, nil
}

// itemReader materializes data items for one reader session. HDF store
// handles are opened at most once and owned by the session.
type itemReader struct {
	dir      string // directory of the XDMF document
	hdfFiles map[string]*hdf5.File
}

func newItemReader(dir string) *itemReader {
	return &itemReader{dir: dir, hdfFiles: make(map[string]*hdf5.File)}
}

func (r *itemReader) read(item *dataItem) (*mesh.Array, error) {
	dims, err := parseDims(item)
	if err != nil {
		return nil, err
	}
	dt, err := resolveDtype(item)
	if err != nil {
		return nil, err
	}

	switch item.Format {
	case "XML":
		return mesh.ParseArray(dt, dims, strings.Fields(item.Text))
	case "Binary":
		return r.readBinary(strings.TrimSpace(item.Text), dt, dims)
	case "HDF":
		return r.readHDF(strings.TrimSpace(item.Text), dims)
	}
	return nil, mesh.Formatf("unknown XDMF Format %q", item.Format)
}

func (r *itemReader) readBinary(filename string, dt mesh.Dtype, dims []int) (*mesh.Array, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening binary data %s: %w", filename, err)
	}
	defer f.Close()
	a, err := mesh.ReadBinary(f, dt, dims)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return a, nil
}

func (r *itemReader) readHDF(token string, dims []int) (*mesh.Array, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return nil, mesh.Formatf("HDF data item %q is not of the form file.h5:/path", token)
	}
	filename, h5path := parts[0], parts[1]
	if !strings.HasPrefix(h5path, "/") {
		return nil, mesh.Formatf("HDF dataset path %q must start with /", h5path)
	}

	// The store path is relative to the XDMF document.
	full := filepath.Join(r.dir, filename)
	f, ok := r.hdfFiles[full]
	if !ok {
		var err error
		if f, err = hdf5.Open(full); err != nil {
			return nil, fmt.Errorf("opening HDF store %s: %w", full, err)
		}
		r.hdfFiles[full] = f
	}

	ds, err := f.OpenDataset(h5path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s in %s: %w", h5path, filename, err)
	}
	return datasetToArray(ds, dims)
}

func datasetToArray(ds *hdf5.Dataset, dims []int) (*mesh.Array, error) {
	t, err := ds.GoType()
	if err != nil {
		return nil, fmt.Errorf("resolving dataset type: %w", err)
	}
	switch t.Kind() {
	case reflect.Float64:
		v, err := ds.ReadFloat64()
		if err != nil {
			return nil, err
		}
		return mesh.NewFloat64(dims, v)
	case reflect.Float32:
		v, err := ds.ReadFloat32()
		if err != nil {
			return nil, err
		}
		return mesh.NewFloat32(dims, v)
	case reflect.Int64:
		v, err := ds.ReadInt64()
		if err != nil {
			return nil, err
		}
		return mesh.NewInt64(dims, v)
	case reflect.Int32:
		v, err := ds.ReadInt32()
		if err != nil {
			return nil, err
		}
		return mesh.NewInt32(dims, v)
	case reflect.Uint64:
		v, err := ds.ReadUint64()
		if err != nil {
			return nil, err
		}
		return mesh.NewUint64(dims, v)
	case reflect.Uint32:
		v, err := ds.ReadUint32()
		if err != nil {
			return nil, err
		}
		return mesh.NewUint32(dims, v)
	case reflect.Int8:
		v, err := ds.ReadInt8()
		if err != nil {
			return nil, err
		}
		return mesh.NewInt8(dims, v)
	case reflect.Uint8:
		v, err := ds.ReadUint8()
		if err != nil {
			return nil, err
		}
		return mesh.NewUint8(dims, v)
	}
	return nil, &mesh.UnsupportedTypeError{DataType: t.String(), Precision: strconv.Itoa(ds.DtypeSize())}
}

// close releases every store handle the session opened, exactly once.
func (r *itemReader) close() error {
	var first error
	for path, f := range r.hdfFiles {
		if err := f.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing %s: %w", path, err)
		}
	}
	r.hdfFiles = make(map[string]*hdf5.File)
	return first
}

// itemWriter serializes arrays for one writer session. The counter makes
// destination names unique across all calls within the session and never
// resets.
type itemWriter struct {
	format     string
	filename   string // the XDMF document path
	h5Filename string
	h5File     *hdf5.File
	counter    int
}

func newItemWriter(filename, format string) (*itemWriter, error) {
	switch format {
	case "XML", "Binary":
		return &itemWriter{format: format, filename: filename}, nil
	case "HDF":
	default:
		return nil, mesh.Writef("unknown XDMF data format %q (use XML, Binary, or HDF)", format)
	}
	h5Filename := stem(filename) + ".h5"
	h5File, err := hdf5.Create(h5Filename)
	if err != nil {
		return nil, fmt.Errorf("creating HDF store %s: %w", h5Filename, err)
	}
	return &itemWriter{
		format:     format,
		filename:   filename,
		h5Filename: h5Filename,
		h5File:     h5File,
	}, nil
}

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// write serializes one array and returns the data item describing it.
func (w *itemWriter) write(a *mesh.Array) (*dataItem, error) {
	wire := dtypeToXdmf[a.Dtype()]
	dims := make([]string, len(a.Shape()))
	for i, d := range a.Shape() {
		dims[i] = strconv.Itoa(d)
	}
	item := &dataItem{
		Dimensions: strings.Join(dims, " "),
		DataType:   wire[0],
		Precision:  wire[1],
		Format:     w.format,
	}

	switch w.format {
	case "XML":
		item.Text = "\n" + a.FormatText()
	case "Binary":
		name := fmt.Sprintf("%s%d.bin", stem(w.filename), w.counter)
		w.counter++
		f, err := os.Create(name)
		if err != nil {
			return nil, fmt.Errorf("creating binary data %s: %w", name, err)
		}
		if err := a.WriteBinary(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		item.Text = name
	case "HDF":
		name := fmt.Sprintf("data%d", w.counter)
		w.counter++
		if _, err := w.h5File.Root().CreateDataset(name, nestedData(a)); err != nil {
			return nil, fmt.Errorf("creating dataset %s: %w", name, err)
		}
		item.Text = filepath.Base(w.h5Filename) + ":/" + name
	}
	return item, nil
}

// close releases the session's store handle. Safe to call more than once.
func (w *itemWriter) close() error {
	if w.h5File == nil {
		return nil
	}
	f := w.h5File
	w.h5File = nil
	return f.Close()
}

// nestedData shapes the flat backing slice into nested rows so that the
// store records the logical dimensions.
func nestedData(a *mesh.Array) interface{} {
	if len(a.Shape()) < 2 {
		return a.Data()
	}
	rows, cols := a.Shape()[0], a.Cols()
	switch d := a.Data().(type) {
	case []float64:
		return chunkRows(d, rows, cols)
	case []float32:
		return chunkRows(d, rows, cols)
	case []int64:
		return chunkRows(d, rows, cols)
	case []int32:
		return chunkRows(d, rows, cols)
	case []uint64:
		return chunkRows(d, rows, cols)
	case []uint32:
		return chunkRows(d, rows, cols)
	case []int8:
		return chunkRows(d, rows, cols)
	default:
		return chunkRows(a.Data().([]uint8), rows, cols)
	}
}

func chunkRows[T any](d []T, rows, cols int) [][]T {
	out := make([][]T, rows)
	for i := 0; i < rows; i++ {
		out[i] = d[i*cols : (i+1)*cols]
	}
	return out
}
