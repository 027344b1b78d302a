package main

import "math/rand"

// WeaponKind is the closed set of weapon variants. Dispatch happens on the
// kind through the shared WeaponSpec table instead of per-type methods.
type WeaponKind int

const (
	WeaponPistol WeaponKind = iota
	WeaponRifle
	WeaponShotgun
	WeaponCount
)

// FireMode selects how a shot is resolved
type FireMode int

const (
	ModeHitScan FireMode = iota
	ModeProjectile
)

// WeaponSpec is the shared attribute record for one weapon variant
type WeaponSpec struct {
	Name       string
	Damage     int     // per hit (per pellet for the shotgun)
	MaxAmmo    int
	RateOfFire float64 // minimum seconds between shots
	ReloadTime float64 // seconds firing is blocked during a reload
	Mode       FireMode
	Spread     float64 // max deviation in radians, 0 for precise weapons
	Pellets    int     // rays per shot, 1 except for the shotgun
	ProjSpeed  float64 // world units/s, projectile mode only
}

// WeaponTable holds the tuning for every variant
var WeaponTable = [WeaponCount]WeaponSpec{
	WeaponPistol:  {Name: "pistol", Damage: 25, MaxAmmo: 12, RateOfFire: 0.5, ReloadTime: 1.2, Mode: ModeHitScan, Spread: 0.05, Pellets: 1, ProjSpeed: 40},
	WeaponRifle:   {Name: "rifle", Damage: 35, MaxAmmo: 30, RateOfFire: 0.1, ReloadTime: 1.8, Mode: ModeHitScan, Spread: 0.02, Pellets: 1, ProjSpeed: 60},
	WeaponShotgun: {Name: "shotgun", Damage: 15, MaxAmmo: 8, RateOfFire: 1.0, ReloadTime: 2.5, Mode: ModeHitScan, Spread: 0.3, Pellets: 8, ProjSpeed: 35},
}

// FireResult reports why a trigger pull did or did not fire. Unmet
// preconditions are ordinary results, not errors.
type FireResult int

const (
	FireOK FireResult = iota
	FireOutOfAmmo
	FireRateLimited
	FireReloading
	FireDead
)

func (r FireResult) String() string {
	switch r {
	case FireOK:
		return "ok"
	case FireOutOfAmmo:
		return "out_of_ammo"
	case FireRateLimited:
		return "rate_limited"
	case FireReloading:
		return "reloading"
	case FireDead:
		return "dead"
	}
	return "unknown"
}

// ShotEvent is the transient record of one fired shot, propagated exactly
// once to remote peers. Dirs carries the resolved per-pellet headings so all
// peers see the same spread.
type ShotEvent struct {
	ShooterID string
	Weapon    WeaponKind
	X, Y      float64
	Dirs      []float64
	Seq       uint64
}

// HitRecord names one entity hit during local shot resolution
type HitRecord struct {
	TargetID string
	Damage   int
	Killed   bool
}

// Fire attempts to fire the shooter's current weapon at time now (accumulated
// game seconds). On success it decrements ammo, resolves hit-scan pellets
// against walls and the other entities, applies damage to the hit entities in
// the shooter's local table, and returns the ShotEvent to propagate.
// Precondition failures return a nil event and the reason.
func Fire(shooter *EntityState, others []*EntityState, grid *GridMap, now float64, rng *rand.Rand) (FireResult, *ShotEvent, []HitRecord) {
	if !shooter.Alive {
		return FireDead, nil, nil
	}
	spec := WeaponTable[shooter.Weapon]
	if shooter.ReloadingT > 0 {
		return FireReloading, nil, nil
	}
	if shooter.Ammo[shooter.Weapon] <= 0 {
		return FireOutOfAmmo, nil, nil
	}
	if now-shooter.LastShotAt < spec.RateOfFire {
		return FireRateLimited, nil, nil
	}

	shooter.Ammo[shooter.Weapon]--
	shooter.LastShotAt = now

	pellets := spec.Pellets
	if pellets < 1 {
		pellets = 1
	}
	dirs := make([]float64, pellets)
	for i := range dirs {
		d := shooter.Heading
		if spec.Spread > 0 {
			d += (rng.Float64()*2 - 1) * spec.Spread
		}
		dirs[i] = NormalizeHeading(d)
	}

	event := &ShotEvent{
		ShooterID: shooter.ID,
		Weapon:    shooter.Weapon,
		X:         shooter.X,
		Y:         shooter.Y,
		Dirs:      dirs,
	}

	var hits []HitRecord
	if spec.Mode == ModeHitScan {
		for _, dir := range dirs {
			if rec, ok := resolvePellet(shooter, others, grid, dir, spec.Damage); ok {
				hits = append(hits, rec)
				if rec.Killed {
					shooter.Frags++
				}
			}
		}
	}
	return FireOK, event, hits
}

// resolvePellet traces one hit-scan ray: it stops at the first wall or the
// first entity footprint, whichever is nearer, and damages the entity if it
// won. Dead entities are transparent to pellets.
func resolvePellet(shooter *EntityState, others []*EntityState, grid *GridMap, dir float64, damage int) (HitRecord, bool) {
	wallDist := CastRay(grid, shooter.X, shooter.Y, dir).Dist

	var nearest *EntityState
	nearestT := wallDist
	for _, e := range others {
		if e == nil || e.ID == shooter.ID || !e.Alive {
			continue
		}
		t, ok := RayCircleNearest(shooter.X, shooter.Y, dir, e.X, e.Y, PlayerRadius)
		if ok && t < nearestT {
			nearestT = t
			nearest = e
		}
	}
	if nearest == nil {
		return HitRecord{}, false
	}
	killed := nearest.TakeDamage(damage)
	return HitRecord{TargetID: nearest.ID, Damage: damage, Killed: killed}, true
}

// ResolveShotAgainst resolves a remote ShotEvent against a single target
// entity, the receiver's own player. Only the receiving process is allowed to
// damage its own entity, so this recomputes the pellet geometry locally
// against the target's current hitbox. Returns the total damage applied and
// whether the target died.
func ResolveShotAgainst(shot ShotEvent, target *EntityState, grid *GridMap) (int, bool) {
	if !target.Alive || shot.ShooterID == target.ID {
		return 0, false
	}
	spec := WeaponTable[shot.Weapon]
	total := 0
	killed := false
	for _, dir := range shot.Dirs {
		t, ok := RayCircleNearest(shot.X, shot.Y, dir, target.X, target.Y, PlayerRadius)
		if !ok {
			continue
		}
		if wall := CastRay(grid, shot.X, shot.Y, dir); wall.Dist < t {
			continue // wall shadows the target on this pellet
		}
		total += spec.Damage
		if target.TakeDamage(spec.Damage) {
			killed = true
			break
		}
	}
	return total, killed
}

// StartReload begins a reload for the current weapon. Firing is blocked until
// the reload duration elapses; ammo refills when it does. Already-full or
// in-progress reloads are no-ops.
func StartReload(e *EntityState) bool {
	if !e.Alive || e.ReloadingT > 0 {
		return false
	}
	spec := WeaponTable[e.Weapon]
	if e.Ammo[e.Weapon] >= spec.MaxAmmo {
		return false
	}
	e.ReloadingT = spec.ReloadTime
	return true
}

// TickReload advances a pending reload by dt and completes it when due
func TickReload(e *EntityState, dt float64) {
	if e.ReloadingT <= 0 {
		return
	}
	e.ReloadingT -= dt
	if e.ReloadingT <= 0 {
		e.ReloadingT = 0
		e.Ammo[e.Weapon] = WeaponTable[e.Weapon].MaxAmmo
	}
}
