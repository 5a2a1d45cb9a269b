package xdmf

import "encoding/xml"

// XML schema of an XDMF 3 time-series document. One struct set serves both
// decoding and encoding; element order on output follows field order.

const xiNamespace = "https://www.w3.org/2001/XInclude/"

type xdmfFile struct {
	XMLName xml.Name  `xml:"Xdmf"`
	Version string    `xml:"Version,attr"`
	XmlnsXI string    `xml:"xmlns:xi,attr,omitempty"`
	Domains []*domain `xml:"Domain"`
}

type domain struct {
	Grids []*grid `xml:"Grid"`
}

type grid struct {
	Name           string `xml:"Name,attr,omitempty"`
	GridType       string `xml:"GridType,attr,omitempty"`
	CollectionType string `xml:"CollectionType,attr,omitempty"`

	Include    *include     `xml:"include"`
	Time       *timeValue   `xml:"Time"`
	Topology   *topology    `xml:"Topology"`
	Geometry   *geometry    `xml:"Geometry"`
	Attributes []*attribute `xml:"Attribute"`
	Grids      []*grid      `xml:"Grid"`
}

// include is the cross-reference pointing a frame grid at the static mesh.
// XMLName carries the literal prefixed name so that encoding produces
// <xi:include>, while decoding matches on the local name via the field tag.
type include struct {
	XMLName  xml.Name
	XPointer string `xml:"xpointer,attr"`
}

func newInclude(xpointer string) *include {
	return &include{
		XMLName:  xml.Name{Local: "xi:include"},
		XPointer: xpointer,
	}
}

type timeValue struct {
	Value string `xml:"Value,attr"`
}

type topology struct {
	// TopologyType is the XDMF2 spelling, Type the XDMF3 one; files in the
	// wild use either.
	Type             string      `xml:"Type,attr,omitempty"`
	TopologyType     string      `xml:"TopologyType,attr,omitempty"`
	NumberOfElements string      `xml:"NumberOfElements,attr,omitempty"`
	DataItems        []*dataItem `xml:"DataItem"`
}

type geometry struct {
	GeometryType string      `xml:"GeometryType,attr,omitempty"`
	DataItems    []*dataItem `xml:"DataItem"`
}

type attribute struct {
	Name          string      `xml:"Name,attr"`
	AttributeType string      `xml:"AttributeType,attr,omitempty"`
	Center        string      `xml:"Center,attr,omitempty"`
	DataItems     []*dataItem `xml:"DataItem"`
}

// dataItem describes where and how one array's bytes live.
type dataItem struct {
	Dimensions string `xml:"Dimensions,attr"`
	DataType   string `xml:"DataType,attr,omitempty"`
	NumberType string `xml:"NumberType,attr,omitempty"`
	Precision  string `xml:"Precision,attr,omitempty"`
	Format     string `xml:"Format,attr"`
	Text       string `xml:",chardata"`
}
