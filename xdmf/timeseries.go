package xdmf

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/meshio/mesh"
)

// TimeSeriesReader reads one time step at a time from an XDMF3 temporal
// collection. The shared mesh is read once with ReadPointsCells; each call
// to ReadData then pulls the attributes of a single step.
type TimeSeriesReader struct {
	filename   string
	items      *itemReader
	collection []*grid
	meshGrid   *grid
	cells      []mesh.CellBlock

	// NumSteps is the number of grids in the temporal collection.
	NumSteps int
}

// NewTimeSeriesReader parses the XDMF document at filename and locates its
// temporal collection.
func NewTimeSeriesReader(filename string) (*TimeSeriesReader, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var doc xdmfFile
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, mesh.Formatf("parsing %s: %v", filename, err)
	}
	if strings.SplitN(doc.Version, ".", 2)[0] != "3" {
		return nil, &mesh.UnsupportedVersionError{Version: doc.Version, Supported: []string{"3.x"}}
	}
	if len(doc.Domains) != 1 {
		return nil, mesh.Formatf("XDMF file has %d domains, need exactly 1", len(doc.Domains))
	}
	domain := doc.Domains[0]

	var collection *grid
	for _, g := range domain.Grids {
		if g.GridType == "Collection" {
			collection = g
		}
	}
	if collection == nil {
		return nil, mesh.Formatf("no collection grid in XDMF file")
	}
	if collection.CollectionType != "Temporal" {
		return nil, mesh.Formatf("collection type is %q, need Temporal", collection.CollectionType)
	}

	// The mesh lives either in a uniform grid next to the collection or in
	// the first uniform grid of the collection itself.
	var meshGrid *grid
	for _, g := range domain.Grids {
		if g.GridType == "Uniform" {
			meshGrid = g
		}
	}
	if meshGrid == nil {
		for _, g := range collection.Grids {
			if g.GridType == "" || g.GridType == "Uniform" {
				meshGrid = g
				break
			}
		}
	}
	if meshGrid == nil {
		return nil, mesh.Formatf("no uniform grid holding the mesh")
	}

	return &TimeSeriesReader{
		filename:   filename,
		items:      newItemReader(filepath.Dir(filename)),
		collection: collection.Grids,
		meshGrid:   meshGrid,
		NumSteps:   len(collection.Grids),
	}, nil
}

// ReadPointsCells reads the shared geometry and topology. It must run
// before any ReadData call.
func (r *TimeSeriesReader) ReadPointsCells() ([][]float64, []mesh.CellBlock, error) {
	cells, err := r.readCells(r.meshGrid.Topology)
	if err != nil {
		return nil, nil, err
	}
	points, err := r.readPoints(r.meshGrid.Geometry)
	if err != nil {
		return nil, nil, err
	}
	r.cells = cells
	return points, cells, nil
}

func (r *TimeSeriesReader) readCells(topo *topology) ([]mesh.CellBlock, error) {
	if topo == nil {
		return nil, mesh.Formatf("mesh grid carries no Topology")
	}
	if len(topo.DataItems) != 1 {
		return nil, mesh.Formatf("topology has %d data items, need exactly 1", len(topo.DataItems))
	}
	topoType := topo.TopologyType
	if topo.Type != "" {
		if topoType != "" {
			return nil, mesh.Formatf("topology declares both Type and TopologyType")
		}
		topoType = topo.Type
	}

	conn, err := r.items.read(topo.DataItems[0])
	if err != nil {
		return nil, err
	}
	values := conn.Int64s()

	if topoType == "Mixed" {
		return translateMixedCells(values)
	}
	name, ok := xdmfToType[topoType]
	if !ok {
		return nil, mesh.Formatf("unknown topology type %q", topoType)
	}
	arity, err := mesh.NumNodes(name)
	if err != nil {
		return nil, err
	}
	if len(values)%arity != 0 {
		return nil, mesh.Formatf("%d connectivity values do not divide into %s cells", len(values), name)
	}
	nodes := make([][]int64, len(values)/arity)
	for i := range nodes {
		nodes[i] = values[i*arity : (i+1)*arity]
	}
	return []mesh.CellBlock{{Type: name, Nodes: nodes}}, nil
}

func (r *TimeSeriesReader) readPoints(geom *geometry) ([][]float64, error) {
	if geom == nil {
		return nil, mesh.Formatf("mesh grid carries no Geometry")
	}
	var dim int
	switch geom.GeometryType {
	case "XY":
		dim = 2
	case "XYZ":
		dim = 3
	default:
		return nil, mesh.Formatf("unknown geometry type %q", geom.GeometryType)
	}
	if len(geom.DataItems) != 1 {
		return nil, mesh.Formatf("geometry has %d data items, need exactly 1", len(geom.DataItems))
	}
	a, err := r.items.read(geom.DataItems[0])
	if err != nil {
		return nil, err
	}
	flat := a.Float64s()
	if len(flat)%dim != 0 {
		return nil, mesh.Formatf("%d coordinates do not divide into %d-vectors", len(flat), dim)
	}
	points := make([][]float64, len(flat)/dim)
	for i := range points {
		points[i] = flat[i*dim : (i+1)*dim]
	}
	return points, nil
}

// ReadData reads the time value and the point and cell attributes of
// step k.
func (r *TimeSeriesReader) ReadData(k int) (float64, map[string]*mesh.Array, map[string][]*mesh.Array, error) {
	if r.cells == nil {
		return 0, nil, nil, mesh.Formatf("ReadPointsCells must run before ReadData")
	}
	if k < 0 || k >= len(r.collection) {
		return 0, nil, nil, mesh.Formatf("step %d out of range [0,%d)", k, len(r.collection))
	}
	g := r.collection[k]
	if g.Time == nil {
		return 0, nil, nil, mesh.Formatf("step grid carries no Time")
	}
	t, err := strconv.ParseFloat(g.Time.Value, 64)
	if err != nil {
		return 0, nil, nil, mesh.Formatf("bad time value %q", g.Time.Value)
	}

	pointData := make(map[string]*mesh.Array)
	cellDataRaw := make(map[string]*mesh.Array)
	for _, attr := range g.Attributes {
		if len(attr.DataItems) != 1 {
			return 0, nil, nil, mesh.Formatf("attribute %q has %d data items, need exactly 1", attr.Name, len(attr.DataItems))
		}
		a, err := r.items.read(attr.DataItems[0])
		if err != nil {
			return 0, nil, nil, err
		}
		switch attr.Center {
		case "Node":
			pointData[attr.Name] = a
		case "Cell":
			cellDataRaw[attr.Name] = a
		default:
			return 0, nil, nil, mesh.Formatf("unknown attribute center %q", attr.Center)
		}
	}

	cellData, err := mesh.CellDataFromRaw(r.cells, cellDataRaw)
	if err != nil {
		return 0, nil, nil, err
	}
	return t, pointData, cellData, nil
}

// Close releases the data stores the reader opened.
func (r *TimeSeriesReader) Close() error {
	return r.items.close()
}

// TimeSeriesWriter writes an XDMF3 temporal collection incrementally. The
// document is reserialized after every mutating call, so the file on disk
// is valid between steps.
type TimeSeriesWriter struct {
	filename   string
	items      *itemWriter
	doc        *xdmfFile
	domain     *domain
	collection *grid
	hasMesh    bool
}

// NewTimeSeriesWriter creates a writer targeting filename. dataFormat is
// one of XML, Binary, or HDF and fixes where the heavy arrays go.
func NewTimeSeriesWriter(filename, dataFormat string) (*TimeSeriesWriter, error) {
	items, err := newItemWriter(filename, dataFormat)
	if err != nil {
		return nil, err
	}
	collection := &grid{
		Name:           "TimeSeries_meshio",
		GridType:       "Collection",
		CollectionType: "Temporal",
	}
	dom := &domain{Grids: []*grid{collection}}
	doc := &xdmfFile{
		Version: "3.0",
		XmlnsXI: xiNamespace,
		Domains: []*domain{dom},
	}
	return &TimeSeriesWriter{
		filename:   filename,
		items:      items,
		doc:        doc,
		domain:     dom,
		collection: collection,
	}, nil
}

// WritePointsCells writes the shared mesh. It must run before any
// WriteData call.
func (w *TimeSeriesWriter) WritePointsCells(points [][]float64, cells []mesh.CellBlock) error {
	g := &grid{Name: "mesh", GridType: "Uniform"}

	geom, err := w.writeGeometry(points)
	if err != nil {
		return err
	}
	g.Geometry = geom

	if mesh.NumCells(cells) > 0 {
		topo, err := w.writeTopology(cells)
		if err != nil {
			return err
		}
		g.Topology = topo
	}

	w.domain.Grids = append(w.domain.Grids, g)
	w.hasMesh = true
	return w.writeXML()
}

func (w *TimeSeriesWriter) writeGeometry(points [][]float64) (*geometry, error) {
	if len(points) == 0 {
		return nil, mesh.Writef("cannot write a mesh without points")
	}
	var geomType string
	switch len(points[0]) {
	case 2:
		geomType = "XY"
	case 3:
		geomType = "XYZ"
	default:
		return nil, mesh.Writef("can only write 2-D or 3-D points, got dimension %d", len(points[0]))
	}
	flat := make([]float64, 0, len(points)*len(points[0]))
	for _, p := range points {
		flat = append(flat, p...)
	}
	a, err := mesh.NewFloat64([]int{len(points), len(points[0])}, flat)
	if err != nil {
		return nil, err
	}
	item, err := w.items.write(a)
	if err != nil {
		return nil, err
	}
	return &geometry{GeometryType: geomType, DataItems: []*dataItem{item}}, nil
}

func (w *TimeSeriesWriter) writeTopology(cells []mesh.CellBlock) (*topology, error) {
	if len(cells) == 1 {
		block := cells[0]
		topoType, ok := typeToXdmf[block.Type]
		if !ok {
			return nil, mesh.Writef("cannot express cell type %q in XDMF", block.Type)
		}
		arity, err := mesh.NumNodes(block.Type)
		if err != nil {
			return nil, err
		}
		flat := make([]int64, 0, len(block.Nodes)*arity)
		for _, c := range block.Nodes {
			flat = append(flat, c...)
		}
		a, err := mesh.NewInt64([]int{len(block.Nodes), arity}, flat)
		if err != nil {
			return nil, err
		}
		item, err := w.items.write(a)
		if err != nil {
			return nil, err
		}
		return &topology{
			TopologyType:     topoType,
			NumberOfElements: strconv.Itoa(len(block.Nodes)),
			DataItems:        []*dataItem{item},
		}, nil
	}

	flat, err := flattenMixedCells(cells)
	if err != nil {
		return nil, err
	}
	a, err := mesh.NewInt64([]int{len(flat)}, flat)
	if err != nil {
		return nil, err
	}
	item, err := w.items.write(a)
	if err != nil {
		return nil, err
	}
	return &topology{
		TopologyType:     "Mixed",
		NumberOfElements: strconv.Itoa(mesh.NumCells(cells)),
		DataItems:        []*dataItem{item},
	}, nil
}

// WriteData appends one time step with its point and cell attributes.
func (w *TimeSeriesWriter) WriteData(t float64, pointData map[string]*mesh.Array, cellData map[string][]*mesh.Array) error {
	if !w.hasMesh {
		return mesh.Writef("WritePointsCells must run before WriteData")
	}
	g := &grid{
		Include: newInclude(`xpointer(//Grid[@Name="mesh"]/*[self::Topology or self::Geometry])`),
		Time:    &timeValue{Value: strconv.FormatFloat(t, 'g', -1, 64)},
	}

	for _, name := range sortedDataKeys(pointData) {
		attr, err := w.writeAttribute(name, "Node", pointData[name])
		if err != nil {
			return err
		}
		g.Attributes = append(g.Attributes, attr)
	}

	raw, err := mesh.RawFromCellData(cellData)
	if err != nil {
		return err
	}
	for _, name := range sortedDataKeys(raw) {
		attr, err := w.writeAttribute(name, "Cell", raw[name])
		if err != nil {
			return err
		}
		g.Attributes = append(g.Attributes, attr)
	}

	w.collection.Grids = append(w.collection.Grids, g)
	return w.writeXML()
}

func (w *TimeSeriesWriter) writeAttribute(name, center string, a *mesh.Array) (*attribute, error) {
	attrType, err := attributeType(a)
	if err != nil {
		return nil, err
	}
	item, err := w.items.write(a)
	if err != nil {
		return nil, err
	}
	return &attribute{
		Name:          name,
		AttributeType: attrType,
		Center:        center,
		DataItems:     []*dataItem{item},
	}, nil
}

func (w *TimeSeriesWriter) writeXML() error {
	out, err := xml.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing XDMF document: %w", err)
	}
	return os.WriteFile(w.filename, append([]byte(xml.Header), out...), 0644)
}

// Close releases the writer's data store.
func (w *TimeSeriesWriter) Close() error {
	return w.items.close()
}

func sortedDataKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
