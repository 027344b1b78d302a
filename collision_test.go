package main

import (
	"math"
	"testing"
)

func openArena(t *testing.T) *GridMap {
	t.Helper()
	m, err := ParseMap([]string{
		"########",
		"#......#",
		"#......#",
		"#..S...#",
		"#......#",
		"#......#",
		"########",
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestResolveMoveUnobstructed(t *testing.T) {
	m := openArena(t)
	dx, dy := ResolveMove(m, 3.5, 3.5, 0.2, -0.3, PlayerRadius)
	if dx != 0.2 || dy != -0.3 {
		t.Errorf("free move altered: got (%v, %v), want (0.2, -0.3)", dx, dy)
	}
}

func TestResolveMoveSlidesAlongWall(t *testing.T) {
	m := openArena(t)
	// Diagonal into the top wall: the blocked y axis is zeroed, the free x
	// axis is kept, so the player slides along the wall.
	dx, dy := ResolveMove(m, 3.5, 1.5, 0.5, -1.0, PlayerRadius)
	if dy != 0 {
		t.Errorf("dy = %v, want 0 (blocked by wall)", dy)
	}
	if dx != 0.5 {
		t.Errorf("dx = %v, want 0.5 (free axis preserved)", dx)
	}
}

func TestResolveMoveHeadOnStops(t *testing.T) {
	m := openArena(t)
	dx, dy := ResolveMove(m, 3.5, 1.5, 0, -1.0, PlayerRadius)
	if dx != 0 || dy != 0 {
		t.Errorf("head-on move into wall: got (%v, %v), want (0, 0)", dx, dy)
	}
}

func TestResolveMoveRespectsFootprintRadius(t *testing.T) {
	m := openArena(t)
	// Center would still be in an empty cell, but the footprint edge would
	// overlap the wall.
	dx, _ := ResolveMove(m, 1.5, 3.5, -0.3, 0, PlayerRadius)
	if dx != 0 {
		t.Errorf("dx = %v, want 0: footprint would clip the wall", dx)
	}
}

func TestCircleBlocked(t *testing.T) {
	m := openArena(t)
	if CircleBlocked(m, 3.5, 3.5, PlayerRadius) {
		t.Error("center of open arena reported blocked")
	}
	if !CircleBlocked(m, 3.5, 0.9, PlayerRadius) {
		t.Error("footprint overlapping wall row not reported blocked")
	}
	if !CircleBlocked(m, -5, -5, PlayerRadius) {
		t.Error("out-of-bounds position not reported blocked")
	}
}

func TestRayCircleNearest(t *testing.T) {
	// Circle dead ahead: nearest intersection is at distance minus radius.
	tHit, ok := RayCircleNearest(0, 0, 0, 5, 0, 1)
	if !ok {
		t.Fatal("expected hit on circle dead ahead")
	}
	if math.Abs(tHit-4) > 1e-9 {
		t.Errorf("t = %v, want 4", tHit)
	}

	// Circle far off the ray line: miss.
	if _, ok := RayCircleNearest(0, 0, 0, 5, 3, 1); ok {
		t.Error("expected miss on offset circle")
	}

	// Circle behind the origin: no t >= 0.
	if _, ok := RayCircleNearest(0, 0, 0, -5, 0, 1); ok {
		t.Error("expected miss on circle behind the ray")
	}

	// Origin inside the circle: the exit point still counts.
	tHit, ok = RayCircleNearest(0, 0, 0, 0.2, 0, 1)
	if !ok || tHit < 0 {
		t.Errorf("origin inside circle: ok=%v t=%v, want a forward hit", ok, tHit)
	}
}

func TestSegmentCircleIntersect(t *testing.T) {
	if !SegmentCircleIntersect(0, 0, 10, 0, 5, 0, 1) {
		t.Error("segment through circle center should intersect")
	}
	if SegmentCircleIntersect(0, 0, 10, 0, 5, 3, 1) {
		t.Error("segment passing wide of the circle should miss")
	}
	if SegmentCircleIntersect(0, 0, 2, 0, 5, 0, 1) {
		t.Error("segment stopping short of the circle should miss")
	}
	// Degenerate zero-length segment inside the circle.
	if !SegmentCircleIntersect(5, 0.5, 5, 0.5, 5, 0, 1) {
		t.Error("point inside circle should intersect")
	}
	// Segment entirely inside the circle.
	if !SegmentCircleIntersect(4.8, 0, 5.2, 0, 5, 0, 1) {
		t.Error("segment contained in circle should intersect")
	}
}
