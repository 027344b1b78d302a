package main

import "math"

const (
	ProjectileLifetime = 3.0 // seconds
	ProjectileRadius   = 0.1 // world units
)

// Projectile is one simulated bullet for weapons in ModeProjectile. Unlike
// hit-scan pellets these have finite travel speed and are stepped each tick.
type Projectile struct {
	ID      string
	OwnerID string
	X, Y    float64
	VX, VY  float64
	Damage  int
	Life    float64
	Alive   bool
}

// NewProjectile spawns a bullet just outside the shooter's footprint so it
// cannot immediately collide with its owner.
func NewProjectile(owner *EntityState, dir float64, spec WeaponSpec) *Projectile {
	offset := PlayerRadius + ProjectileRadius + 0.05
	return &Projectile{
		ID:      GenerateID(3),
		OwnerID: owner.ID,
		X:       owner.X + math.Cos(dir)*offset,
		Y:       owner.Y + math.Sin(dir)*offset,
		VX:      math.Cos(dir) * spec.ProjSpeed,
		VY:      math.Sin(dir) * spec.ProjSpeed,
		Damage:  spec.Damage,
		Life:    ProjectileLifetime,
		Alive:   true,
	}
}

// Update advances the projectile one tick, sweeping the traveled segment
// against walls so fast bullets cannot tunnel through a one-cell wall.
func (p *Projectile) Update(dt float64, grid *GridMap) {
	if !p.Alive {
		return
	}
	nx := p.X + p.VX*dt
	ny := p.Y + p.VY*dt

	dist := Distance(p.X, p.Y, nx, ny)
	if dist > 0 {
		angle := math.Atan2(p.VY, p.VX)
		if hit := CastRay(grid, p.X, p.Y, angle); hit.Dist <= dist {
			p.Alive = false
			return
		}
	}

	p.X = nx
	p.Y = ny
	p.Life -= dt
	if p.Life <= 0 {
		p.Alive = false
	}
}

// HitsEntity sweeps the last movement step against an entity footprint
func (p *Projectile) HitsEntity(prevX, prevY float64, e *EntityState) bool {
	if !p.Alive || !e.Alive || e.ID == p.OwnerID {
		return false
	}
	return SegmentCircleIntersect(prevX, prevY, p.X, p.Y, e.X, e.Y, PlayerRadius+ProjectileRadius)
}

// ProjectileField owns all live projectiles for one game
type ProjectileField struct {
	projectiles map[string]*Projectile
}

// NewProjectileField creates an empty field
func NewProjectileField() *ProjectileField {
	return &ProjectileField{projectiles: make(map[string]*Projectile)}
}

// Spawn adds projectiles for every pellet direction of a shot event
func (f *ProjectileField) Spawn(owner *EntityState, dirs []float64, spec WeaponSpec) {
	for _, dir := range dirs {
		p := NewProjectile(owner, dir, spec)
		f.projectiles[p.ID] = p
	}
}

// Count returns the number of live projectiles
func (f *ProjectileField) Count() int {
	return len(f.projectiles)
}

// Update steps every projectile and resolves hits against the given entities,
// applying damage through the same TakeDamage path as hit-scan. Returns the
// hits applied this tick.
func (f *ProjectileField) Update(dt float64, grid *GridMap, entities []*EntityState) []HitRecord {
	var hits []HitRecord
	for id, p := range f.projectiles {
		prevX, prevY := p.X, p.Y
		p.Update(dt, grid)
		if p.Alive {
			for _, e := range entities {
				if p.HitsEntity(prevX, prevY, e) {
					killed := e.TakeDamage(p.Damage)
					hits = append(hits, HitRecord{TargetID: e.ID, Damage: p.Damage, Killed: killed})
					p.Alive = false
					break
				}
			}
		}
		if !p.Alive {
			delete(f.projectiles, id)
		}
	}
	return hits
}
