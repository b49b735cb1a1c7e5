package entity

type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
	DiagonalA  Orientation = "diagonal_a"
	DiagonalB  Orientation = "diagonal_b"
)

// Position is a board coordinate, X is the column and Y is the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Line is one of the fixed winning combinations. Center is the cell the winner is read from.
type Line struct {
	Cells       [3]Position `json:"cells"`
	Center      Position    `json:"center"`
	Orientation Orientation `json:"orientation"`
}

// Lines is scanned in order, the first complete line decides the winner.
var Lines = [8]Line{
	{Cells: [3]Position{{0, 0}, {1, 0}, {2, 0}}, Center: Position{1, 0}, Orientation: Horizontal},
	{Cells: [3]Position{{0, 1}, {1, 1}, {2, 1}}, Center: Position{1, 1}, Orientation: Horizontal},
	{Cells: [3]Position{{0, 2}, {1, 2}, {2, 2}}, Center: Position{1, 2}, Orientation: Horizontal},
	{Cells: [3]Position{{0, 0}, {0, 1}, {0, 2}}, Center: Position{0, 1}, Orientation: Vertical},
	{Cells: [3]Position{{1, 0}, {1, 1}, {1, 2}}, Center: Position{1, 1}, Orientation: Vertical},
	{Cells: [3]Position{{2, 0}, {2, 1}, {2, 2}}, Center: Position{2, 1}, Orientation: Vertical},
	{Cells: [3]Position{{0, 0}, {1, 1}, {2, 2}}, Center: Position{1, 1}, Orientation: DiagonalA},
	{Cells: [3]Position{{0, 2}, {1, 1}, {2, 0}}, Center: Position{1, 1}, Orientation: DiagonalB},
}

// Contains reports whether pos is one of the line's cells.
func (that Line) Contains(pos Position) bool {
	for _, cell := range that.Cells {
		if cell == pos {
			return true
		}
	}

	return false
}
