package main

import "math"

const (
	// DefaultFOV matches the original 60 degree horizontal field of view
	DefaultFOV = 60.0 * math.Pi / 180.0
	// MaxRayDistance caps traversal for open test grids; a closed map always
	// terminates on the boundary wall before reaching it
	MaxRayDistance = 64.0
	// MinWallDistance keeps the projected slice height finite near a wall
	MinWallDistance = 1e-4
)

// SideX and SideY identify which cell face a ray crossed. X means the ray
// crossed a vertical grid line (an E/W facing wall), Y a horizontal one.
const (
	SideX = 0
	SideY = 1
)

// RayHit describes the nearest wall intersection along a single ray
type RayHit struct {
	Dist   float64 // euclidean distance along the ray
	WallID int
	Side   int
	CellX  int
	CellY  int
}

// ColumnHit is the per-screen-column output consumed by the render boundary
type ColumnHit struct {
	PerpDist    float64 // fisheye-corrected distance
	WallID      int
	Side        int
	SliceHeight float64 // projected wall slice height in pixels
}

// RayCaster casts one ray per screen column against a GridMap
type RayCaster struct {
	grid         *GridMap
	fov          float64
	screenWidth  int
	screenHeight int
	columns      []ColumnHit
}

// NewRayCaster creates a caster for the given grid and screen geometry
func NewRayCaster(grid *GridMap, fov float64, screenWidth, screenHeight int) *RayCaster {
	return &RayCaster{
		grid:         grid,
		fov:          fov,
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
		columns:      make([]ColumnHit, screenWidth),
	}
}

// CastRay walks the grid from (px, py) along angle using incremental cell
// traversal (DDA), so walls one cell thick are never stepped over regardless
// of distance. A zero direction component means the ray never crosses that
// axis; the corresponding step distance is +Inf and no division happens.
func CastRay(grid *GridMap, px, py, angle float64) RayHit {
	dirX := math.Cos(angle)
	dirY := math.Sin(angle)

	cellX := int(math.Floor(px))
	cellY := int(math.Floor(py))

	deltaX := math.Inf(1)
	if dirX != 0 {
		deltaX = math.Abs(1 / dirX)
	}
	deltaY := math.Inf(1)
	if dirY != 0 {
		deltaY = math.Abs(1 / dirY)
	}

	var stepX, stepY int
	var sideX, sideY float64 // distance along the ray to the next x/y gridline

	if dirX < 0 {
		stepX = -1
		sideX = (px - float64(cellX)) * deltaX
	} else {
		stepX = 1
		sideX = (float64(cellX) + 1 - px) * deltaX
	}
	if dirY < 0 {
		stepY = -1
		sideY = (py - float64(cellY)) * deltaY
	} else {
		stepY = 1
		sideY = (float64(cellY) + 1 - py) * deltaY
	}

	side := SideX
	dist := 0.0
	for dist <= MaxRayDistance {
		if sideX < sideY {
			dist = sideX
			sideX += deltaX
			cellX += stepX
			side = SideX
		} else {
			dist = sideY
			sideY += deltaY
			cellY += stepY
			side = SideY
		}
		cell := grid.CellAt(cellX, cellY)
		if cell.Kind == CellWall {
			return RayHit{Dist: dist, WallID: cell.WallID, Side: side, CellX: cellX, CellY: cellY}
		}
	}

	// Unreachable on a closed map: the boundary cell is solid. Report the cap
	// so open test grids still terminate.
	return RayHit{Dist: MaxRayDistance, WallID: 0, Side: side, CellX: cellX, CellY: cellY}
}

// RenderColumns casts one ray per screen column for a camera at (px, py)
// facing heading, and returns the per-column hit buffer. The buffer is reused
// between calls; callers needing a stable copy must clone it.
func (rc *RayCaster) RenderColumns(px, py, heading float64) []ColumnHit {
	w := float64(rc.screenWidth)
	for c := 0; c < rc.screenWidth; c++ {
		rayAngle := heading - rc.fov/2 + rc.fov*(float64(c)/w)
		hit := CastRay(rc.grid, px, py, rayAngle)

		// Perpendicular distance removes the fisheye distortion that the raw
		// euclidean distance would produce at the screen edges.
		perp := hit.Dist * math.Cos(rayAngle-heading)
		if perp < MinWallDistance {
			perp = MinWallDistance
		}

		h := float64(rc.screenHeight) / perp
		if h > float64(rc.screenHeight) {
			h = float64(rc.screenHeight)
		}

		rc.columns[c] = ColumnHit{
			PerpDist:    perp,
			WallID:      hit.WallID,
			Side:        hit.Side,
			SliceHeight: h,
		}
	}
	return rc.columns
}
