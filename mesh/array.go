package mesh

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
)

// Dtype enumerates the numeric element types an Array can hold. The set
// mirrors what the supported wire formats can express.
type Dtype int

const (
	Float64 Dtype = iota
	Float32
	Int64
	Int32
	Uint64
	Uint32
	Int8
	Uint8
)

// Size returns the on-wire size of one element in bytes.
func (d Dtype) Size() int {
	switch d {
	case Float64, Int64, Uint64:
		return 8
	case Float32, Int32, Uint32:
		return 4
	default:
		return 1
	}
}

func (d Dtype) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	case Int32:
		return "int32"
	case Uint64:
		return "uint64"
	case Uint32:
		return "uint32"
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Array is a dense numeric array with an explicit element type and logical
// shape. It stands in for the loosely typed array payloads of the wire
// formats: the data slice is flat, row-major, and always one of the eight
// supported element types.
type Array struct {
	dtype Dtype
	shape []int
	data  interface{}
}

func newArray(dtype Dtype, shape []int, data interface{}, n int) (*Array, error) {
	if size(shape) != n {
		return nil, fmt.Errorf("array shape %v does not hold %d elements", shape, n)
	}
	return &Array{dtype: dtype, shape: append([]int(nil), shape...), data: data}, nil
}

func size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func NewFloat64(shape []int, data []float64) (*Array, error) {
	return newArray(Float64, shape, data, len(data))
}

func NewFloat32(shape []int, data []float32) (*Array, error) {
	return newArray(Float32, shape, data, len(data))
}

func NewInt64(shape []int, data []int64) (*Array, error) {
	return newArray(Int64, shape, data, len(data))
}

func NewInt32(shape []int, data []int32) (*Array, error) {
	return newArray(Int32, shape, data, len(data))
}

func NewUint64(shape []int, data []uint64) (*Array, error) {
	return newArray(Uint64, shape, data, len(data))
}

func NewUint32(shape []int, data []uint32) (*Array, error) {
	return newArray(Uint32, shape, data, len(data))
}

func NewInt8(shape []int, data []int8) (*Array, error) {
	return newArray(Int8, shape, data, len(data))
}

func NewUint8(shape []int, data []uint8) (*Array, error) {
	return newArray(Uint8, shape, data, len(data))
}

// NewZero allocates a zero-filled array of the given dtype and shape.
func NewZero(dtype Dtype, shape []int) *Array {
	n := size(shape)
	var data interface{}
	switch dtype {
	case Float64:
		data = make([]float64, n)
	case Float32:
		data = make([]float32, n)
	case Int64:
		data = make([]int64, n)
	case Int32:
		data = make([]int32, n)
	case Uint64:
		data = make([]uint64, n)
	case Uint32:
		data = make([]uint32, n)
	case Int8:
		data = make([]int8, n)
	default:
		data = make([]uint8, n)
	}
	return &Array{dtype: dtype, shape: append([]int(nil), shape...), data: data}
}

func (a *Array) Dtype() Dtype { return a.dtype }

// Shape returns the logical dimensions. A collapsed one-component field has
// a single dimension.
func (a *Array) Shape() []int { return a.shape }

// Len is the total number of elements across all dimensions.
func (a *Array) Len() int { return size(a.shape) }

// Rows is the length of the leading dimension.
func (a *Array) Rows() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

// Cols is the number of trailing elements per row, 1 for flat arrays.
func (a *Array) Cols() int {
	if len(a.shape) < 2 {
		return 1
	}
	n := 1
	for _, s := range a.shape[1:] {
		n *= s
	}
	return n
}

// Reshape replaces the logical dimensions in place. The element count must
// be preserved.
func (a *Array) Reshape(shape []int) error {
	if size(shape) != a.Len() {
		return Formatf("cannot reshape %d elements to %v", a.Len(), shape)
	}
	a.shape = append([]int(nil), shape...)
	return nil
}

// Data returns the flat backing slice, one of []float64, []float32,
// []int64, []int32, []uint64, []uint32, []int8, []uint8.
func (a *Array) Data() interface{} { return a.data }

// Float64s returns the elements converted to float64. The slice is shared
// when the dtype already is Float64.
func (a *Array) Float64s() []float64 {
	if d, ok := a.data.([]float64); ok {
		return d
	}
	out := make([]float64, a.Len())
	v := reflect.ValueOf(a.data)
	switch a.dtype {
	case Float32:
		for i := range out {
			out[i] = float64(v.Index(i).Interface().(float32))
		}
	case Int64, Int32, Int8:
		for i := range out {
			out[i] = float64(v.Index(i).Int())
		}
	default:
		for i := range out {
			out[i] = float64(v.Index(i).Uint())
		}
	}
	return out
}

// Int64s returns the elements converted to int64. The slice is shared when
// the dtype already is Int64.
func (a *Array) Int64s() []int64 {
	if d, ok := a.data.([]int64); ok {
		return d
	}
	out := make([]int64, a.Len())
	v := reflect.ValueOf(a.data)
	switch a.dtype {
	case Float64, Float32:
		for i := range out {
			out[i] = int64(v.Index(i).Float())
		}
	case Int32, Int8:
		for i := range out {
			out[i] = v.Index(i).Int()
		}
	default:
		for i := range out {
			out[i] = int64(v.Index(i).Uint())
		}
	}
	return out
}

// SliceRows returns a view onto rows [i, j) sharing the backing slice.
func (a *Array) SliceRows(i, j int) (*Array, error) {
	cols := a.Cols()
	if i < 0 || j < i || j > a.Rows() {
		return nil, fmt.Errorf("row slice [%d:%d) out of range for %d rows", i, j, a.Rows())
	}
	v := reflect.ValueOf(a.data)
	sub := v.Slice(i*cols, j*cols).Interface()
	shape := append([]int{j - i}, a.shape[1:]...)
	return &Array{dtype: a.dtype, shape: shape, data: sub}, nil
}

// Concat joins arrays of identical dtype and trailing shape along the
// leading dimension.
func Concat(arrays []*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}
	first := arrays[0]
	rows := 0
	out := reflect.MakeSlice(reflect.TypeOf(first.data), 0, 0)
	for _, a := range arrays {
		if a.dtype != first.dtype {
			return nil, fmt.Errorf("cannot concatenate %s with %s", first.dtype, a.dtype)
		}
		if a.Cols() != first.Cols() {
			return nil, fmt.Errorf("cannot concatenate %d columns with %d", first.Cols(), a.Cols())
		}
		rows += a.Rows()
		out = reflect.AppendSlice(out, reflect.ValueOf(a.data))
	}
	shape := append([]int{rows}, first.shape[1:]...)
	return &Array{dtype: first.dtype, shape: shape, data: out.Interface()}, nil
}

// ParseArray builds an array of the given dtype and shape from
// whitespace-separated text fields.
func ParseArray(dtype Dtype, shape []int, fields []string) (*Array, error) {
	n := size(shape)
	if len(fields) != n {
		return nil, Formatf("expected %d values for shape %v, got %d", n, shape, len(fields))
	}
	a := NewZero(dtype, shape)
	switch data := a.data.(type) {
	case []float64:
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, Formatf("bad float value %q", f)
			}
			data[i] = v
		}
	case []float32:
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, Formatf("bad float value %q", f)
			}
			data[i] = float32(v)
		}
	case []int64:
		for i, f := range fields {
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, Formatf("bad integer value %q", f)
			}
			data[i] = v
		}
	case []int32:
		for i, f := range fields {
			v, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return nil, Formatf("bad integer value %q", f)
			}
			data[i] = int32(v)
		}
	case []uint64:
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, Formatf("bad unsigned value %q", f)
			}
			data[i] = v
		}
	case []uint32:
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, Formatf("bad unsigned value %q", f)
			}
			data[i] = uint32(v)
		}
	case []int8:
		for i, f := range fields {
			v, err := strconv.ParseInt(f, 10, 8)
			if err != nil {
				return nil, Formatf("bad integer value %q", f)
			}
			data[i] = int8(v)
		}
	case []uint8:
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return nil, Formatf("bad unsigned value %q", f)
			}
			data[i] = uint8(v)
		}
	}
	return a, nil
}

// FormatText renders the flattened elements as text, one value per line.
func (a *Array) FormatText() string {
	var b strings.Builder
	v := reflect.ValueOf(a.data)
	for i := 0; i < a.Len(); i++ {
		switch a.dtype {
		case Float64:
			fmt.Fprintf(&b, "%.16e\n", v.Index(i).Float())
		case Float32:
			fmt.Fprintf(&b, "%.7e\n", v.Index(i).Float())
		case Int64, Int32, Int8:
			fmt.Fprintf(&b, "%d\n", v.Index(i).Int())
		default:
			fmt.Fprintf(&b, "%d\n", v.Index(i).Uint())
		}
	}
	return b.String()
}

// ReadBinary reads a flat little-endian dump of the given dtype and shape.
func ReadBinary(r io.Reader, dtype Dtype, shape []int) (*Array, error) {
	a := NewZero(dtype, shape)
	if err := binary.Read(r, binary.LittleEndian, a.data); err != nil {
		return nil, fmt.Errorf("reading %s array: %w", dtype, err)
	}
	return a, nil
}

// WriteBinary writes the elements as a flat little-endian dump.
func (a *Array) WriteBinary(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, a.data)
}
