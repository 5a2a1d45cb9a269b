package mesh

import (
	"fmt"
	"sort"
	"strings"
)

// FormatError reports a structural violation in a mesh file: bad or missing
// section markers, mismatched tag counts, a bad endianness sentinel, or
// binary records out of sequence.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	if e.Msg == "" {
		return "malformed mesh file"
	}
	return e.Msg
}

// Formatf builds a FormatError with a formatted message.
func Formatf(format string, args ...interface{}) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// WriteError reports caller-supplied data that violates an output
// constraint, such as a wrong component count or a missing prerequisite
// step. It is raised before any bytes are emitted.
type WriteError struct {
	Msg string
}

func (e *WriteError) Error() string {
	if e.Msg == "" {
		return "invalid mesh write"
	}
	return e.Msg
}

func Writef(format string, args ...interface{}) *WriteError {
	return &WriteError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedVersionError reports a well-formed format version outside the
// supported set.
type UnsupportedVersionError struct {
	Version   string
	Supported []string
}

func (e *UnsupportedVersionError) Error() string {
	s := append([]string(nil), e.Supported...)
	sort.Strings(s)
	return fmt.Sprintf("unsupported format version %q, need one of [%s]",
		e.Version, strings.Join(s, " "))
}

// UnsupportedCellTypeError reports a cell type outside the static tables,
// either by numeric code or by canonical name.
type UnsupportedCellTypeError struct {
	Code int
	Name string
}

func (e *UnsupportedCellTypeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unsupported cell type %q", e.Name)
	}
	return fmt.Sprintf("unsupported cell type code %d", e.Code)
}

// UnsupportedTypeError reports a numeric type/precision pair outside the
// static dtype tables.
type UnsupportedTypeError struct {
	DataType  string
	Precision string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported data type %s with precision %s",
		e.DataType, e.Precision)
}
