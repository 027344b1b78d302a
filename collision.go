package main

import "math"

// circleIntersectsCell reports whether a circle at (cx, cy) with radius r
// overlaps the unit cell at grid coordinates (gx, gy). Uses the closest-point
// test between the circle center and the cell rectangle.
func circleIntersectsCell(cx, cy, r float64, gx, gy int) bool {
	nearX := Clamp(cx, float64(gx), float64(gx)+CellSize)
	nearY := Clamp(cy, float64(gy), float64(gy)+CellSize)
	dx := cx - nearX
	dy := cy - nearY
	return dx*dx+dy*dy <= r*r
}

// CircleBlocked reports whether a circular footprint centered at (x, y)
// overlaps any wall cell of the grid.
func CircleBlocked(grid *GridMap, x, y, radius float64) bool {
	minX := int(math.Floor(x - radius))
	maxX := int(math.Floor(x + radius))
	minY := int(math.Floor(y - radius))
	maxY := int(math.Floor(y + radius))
	for gy := minY; gy <= maxY; gy++ {
		for gx := minX; gx <= maxX; gx++ {
			if grid.Solid(gx, gy) && circleIntersectsCell(x, y, radius, gx, gy) {
				return true
			}
		}
	}
	return false
}

// ResolveMove converts a desired movement delta into the allowed delta for a
// circular footprint. Each axis is resolved independently: a blocked axis is
// zeroed while the other is kept, which makes diagonal movement into a wall
// slide along it instead of stopping dead. Pure function of its inputs.
func ResolveMove(grid *GridMap, x, y, dx, dy, radius float64) (float64, float64) {
	if CircleBlocked(grid, x+dx, y, radius) {
		dx = 0
	}
	if CircleBlocked(grid, x, y+dy, radius) {
		dy = 0
	}
	// The combined destination can still clip an exact corner that neither
	// single-axis probe saw; drop one axis, then both if that isn't enough.
	if (dx != 0 || dy != 0) && CircleBlocked(grid, x+dx, y+dy, radius) {
		dy = 0
		if CircleBlocked(grid, x+dx, y, radius) {
			dx = 0
		}
	}
	return dx, dy
}

// RayCircleNearest returns the smallest t >= 0 such that the point
// (ox + t*cos(angle), oy + t*sin(angle)) lies on the circle at (cx, cy) with
// radius r, and whether such t exists. Used by hit-scan resolution against
// entity footprints.
func RayCircleNearest(ox, oy, angle, cx, cy, r float64) (float64, bool) {
	dx := math.Cos(angle)
	dy := math.Sin(angle)
	fx := ox - cx
	fy := oy - cy

	// |f + t*d|^2 = r^2 with |d| = 1
	b := 2 * (fx*dx + fy*dy)
	c := fx*fx + fy*fy - r*r
	disc := b*b - 4*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t1 := (-b - sq) / 2
	t2 := (-b + sq) / 2
	if t1 >= 0 {
		return t1, true
	}
	if t2 >= 0 {
		return t2, true
	}
	return 0, false
}

// SegmentCircleIntersect reports whether the segment (x1,y1)-(x2,y2)
// intersects the circle at (cx, cy) with radius r. Used by projectile sweeps.
func SegmentCircleIntersect(x1, y1, x2, y2, cx, cy, r float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	fx := x1 - cx
	fy := y1 - cy
	a := dx*dx + dy*dy
	if a == 0 {
		return fx*fx+fy*fy <= r*r
	}
	b := 2 * (fx*dx + fy*dy)
	c := fx*fx + fy*fy - r*r
	disc := b*b - 4*a*c
	if disc < 0 {
		return false
	}
	disc = math.Sqrt(disc)
	t1 := (-b - disc) / (2 * a)
	t2 := (-b + disc) / (2 * a)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}
