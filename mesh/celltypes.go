package mesh

// CellTypeInfo describes one canonical cell type: the fixed number of nodes
// per cell and the topological dimension.
type CellTypeInfo struct {
	NumNodes int
	Dim      int
}

// cellTypes is the static descriptor table for every canonical cell type
// the codecs can produce. Numeric suffixes name the high-order variants by
// node count.
var cellTypes = map[string]CellTypeInfo{
	"vertex": {1, 0},

	"line":   {2, 1},
	"line3":  {3, 1},
	"line4":  {4, 1},
	"line5":  {5, 1},
	"line6":  {6, 1},
	"line7":  {7, 1},
	"line8":  {8, 1},
	"line9":  {9, 1},
	"line10": {10, 1},
	"line11": {11, 1},

	"triangle":   {3, 2},
	"triangle6":  {6, 2},
	"triangle10": {10, 2},
	"triangle15": {15, 2},
	"triangle21": {21, 2},
	"triangle28": {28, 2},
	"triangle36": {36, 2},
	"triangle45": {45, 2},
	"triangle55": {55, 2},
	"triangle66": {66, 2},

	"quad":    {4, 2},
	"quad8":   {8, 2},
	"quad9":   {9, 2},
	"quad16":  {16, 2},
	"quad25":  {25, 2},
	"quad36":  {36, 2},
	"quad49":  {49, 2},
	"quad64":  {64, 2},
	"quad81":  {81, 2},
	"quad100": {100, 2},
	"quad121": {121, 2},

	"tetra":    {4, 3},
	"tetra10":  {10, 3},
	"tetra20":  {20, 3},
	"tetra35":  {35, 3},
	"tetra56":  {56, 3},
	"tetra84":  {84, 3},
	"tetra120": {120, 3},
	"tetra165": {165, 3},
	"tetra220": {220, 3},
	"tetra286": {286, 3},

	"hexahedron":     {8, 3},
	"hexahedron20":   {20, 3},
	"hexahedron24":   {24, 3},
	"hexahedron27":   {27, 3},
	"hexahedron64":   {64, 3},
	"hexahedron125":  {125, 3},
	"hexahedron216":  {216, 3},
	"hexahedron343":  {343, 3},
	"hexahedron512":  {512, 3},
	"hexahedron729":  {729, 3},
	"hexahedron1000": {1000, 3},

	"wedge":    {6, 3},
	"wedge15":  {15, 3},
	"wedge18":  {18, 3},
	"wedge40":  {40, 3},
	"wedge75":  {75, 3},
	"wedge126": {126, 3},
	"wedge196": {196, 3},
	"wedge288": {288, 3},
	"wedge405": {405, 3},
	"wedge550": {550, 3},

	"pyramid":   {5, 3},
	"pyramid13": {13, 3},
	"pyramid14": {14, 3},
}

// CellType looks up the descriptor for a canonical name.
func CellType(name string) (CellTypeInfo, error) {
	info, ok := cellTypes[name]
	if !ok {
		return CellTypeInfo{}, &UnsupportedCellTypeError{Name: name}
	}
	return info, nil
}

// NumNodes returns the fixed node count for a canonical cell type.
func NumNodes(name string) (int, error) {
	info, err := CellType(name)
	if err != nil {
		return 0, err
	}
	return info.NumNodes, nil
}
