package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CellSize is the world-unit extent of one grid cell. Positions are in world
// units, so cell (cx,cy) covers [cx, cx+1) x [cy, cy+1).
const CellSize = 1.0

// CellKind distinguishes passable from solid cells
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellWall
)

// Cell is one entry of the occupancy grid
type Cell struct {
	Kind     CellKind
	WallID   int
	Height   float64
	Material string
}

// boundaryCell is returned for out-of-bounds reads so every ray and every
// movement query terminates at the map edge.
var boundaryCell = Cell{Kind: CellWall, WallID: 0, Height: 1, Material: "boundary"}

// SpawnPoint is a cell-centered respawn location
type SpawnPoint struct {
	X, Y float64
}

// GridMap is the static occupancy grid for one session. It is immutable after
// load; all peers must share the same MapID before play starts.
type GridMap struct {
	Width  int
	Height int
	cells  []Cell
	spawns []SpawnPoint
	mapID  string
}

// CellAt returns the cell at grid coordinates (cx, cy). Out-of-bounds
// coordinates read as a solid boundary wall.
func (m *GridMap) CellAt(cx, cy int) Cell {
	if cx < 0 || cy < 0 || cx >= m.Width || cy >= m.Height {
		return boundaryCell
	}
	return m.cells[cy*m.Width+cx]
}

// Solid reports whether the cell at (cx, cy) blocks movement and rays
func (m *GridMap) Solid(cx, cy int) bool {
	return m.CellAt(cx, cy).Kind == CellWall
}

// MapID is the content hash shared by peers at join time
func (m *GridMap) MapID() string {
	return m.mapID
}

// Spawns returns the spawn point list in declaration order
func (m *GridMap) Spawns() []SpawnPoint {
	return m.spawns
}

// ParseMap builds a GridMap from ASCII rows. '#' and digits 1-9 are walls
// (the digit is the wall id, '#' maps to id 1), '.' and ' ' are empty, 'S'
// marks a spawn cell. Rows must be non-empty and equal length.
func ParseMap(rows []string) (*GridMap, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("map has no rows")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("map has empty rows")
	}

	m := &GridMap{
		Width:  width,
		Height: len(rows),
		cells:  make([]Cell, width*len(rows)),
	}

	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("map row %d has width %d, want %d", y, len(row), width)
		}
		for x, ch := range row {
			switch {
			case ch == '#':
				m.cells[y*width+x] = Cell{Kind: CellWall, WallID: 1, Height: 1, Material: "brick"}
			case ch >= '1' && ch <= '9':
				m.cells[y*width+x] = Cell{Kind: CellWall, WallID: int(ch - '0'), Height: 1, Material: "brick"}
			case ch == 'S':
				m.spawns = append(m.spawns, SpawnPoint{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			case ch == '.' || ch == ' ':
				// empty
			default:
				return nil, fmt.Errorf("map row %d: unknown cell %q", y, ch)
			}
		}
	}

	if len(m.spawns) == 0 {
		return nil, fmt.Errorf("map has no spawn points")
	}

	sum := sha256.Sum256([]byte(strings.Join(rows, "\n")))
	m.mapID = hex.EncodeToString(sum[:8])
	return m, nil
}

// DefaultMap is the built-in 20x20 arena: a closed outer wall, two corner
// structures and a hollow center block, with four spawn corners.
func DefaultMap() *GridMap {
	rows := []string{
		"####################",
		"#..................#",
		"#..................#",
		"#..................#",
		"#..................#",
		"#....S####.........#",
		"#....#.............#",
		"#....#.............#",
		"#........2222......#",
		"#........2..2......#",
		"#........2..2......#",
		"#........22.2......#",
		"#...........3333...#",
		"#...........3......#",
		"#....S......3..S...#",
		"#...........3......#",
		"#..................#",
		"#..............S...#",
		"#..................#",
		"####################",
	}
	m, err := ParseMap(rows)
	if err != nil {
		panic("default map invalid: " + err.Error())
	}
	return m
}
