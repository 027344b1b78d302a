package main

const (
	PlayerRadius   = 0.3 // footprint radius in world units (cells)
	PlayerMaxHP    = 100
	PlayerMaxArmor = 100
	PlayerSpeed    = 5.0 // world units per second
	RespawnTime    = 3.0 // seconds before a dead player respawns
)

// EntityState is the per-player simulation state. The local entry is mutated
// by input and physics; remote entries are written only by SyncProtocol
// merges and by locally resolved remote shots.
type EntityState struct {
	ID      string
	Name    string
	X, Y    float64
	Heading float64 // radians, normalized to [0, 2π)
	VX, VY  float64 // derived per tick, never transmitted
	Health  int
	Armor   int
	Ammo    [WeaponCount]int
	Weapon  WeaponKind
	Alive   bool
	LastSeq uint64 // highest applied remote seq, strictly increasing
	Frags   int
	Deaths  int

	// Local combat timers, in accumulated game seconds
	LastShotAt float64
	ReloadingT float64 // remaining reload time, 0 when not reloading
	RespawnT   float64 // remaining dead time, 0 when alive
}

// NewEntityState creates a live entity at the given spawn point with the
// default loadout.
func NewEntityState(id, name string, spawn SpawnPoint) *EntityState {
	e := &EntityState{
		ID:     id,
		Name:   name,
		X:      spawn.X,
		Y:      spawn.Y,
		Health: PlayerMaxHP,
		Weapon: WeaponPistol,
		Alive:  true,
	}
	for w := WeaponKind(0); w < WeaponCount; w++ {
		e.Ammo[w] = WeaponTable[w].MaxAmmo
	}
	return e
}

// TakeDamage applies bullet damage, letting armor absorb half of it, clamps
// health to [0, 100] and returns true when this call killed the entity.
// Damage to an already dead entity is ignored: the alive flag is sticky
// until Respawn.
func (e *EntityState) TakeDamage(dmg int) bool {
	if !e.Alive || dmg <= 0 {
		return false
	}
	if e.Armor > 0 {
		absorbed := dmg / 2
		if absorbed > e.Armor {
			absorbed = e.Armor
		}
		e.Armor -= absorbed
		dmg -= absorbed
	}
	e.Health = ClampInt(e.Health-dmg, 0, PlayerMaxHP)
	if e.Health == 0 {
		e.Alive = false
		e.Deaths++
		e.RespawnT = RespawnTime
		return true
	}
	return false
}

// Heal restores health up to the cap
func (e *EntityState) Heal(amount int) {
	if !e.Alive {
		return
	}
	e.Health = ClampInt(e.Health+amount, 0, PlayerMaxHP)
}

// AddArmor restores armor up to the cap
func (e *EntityState) AddArmor(amount int) {
	if !e.Alive {
		return
	}
	e.Armor = ClampInt(e.Armor+amount, 0, PlayerMaxArmor)
}

// AddAmmo tops up one weapon slot
func (e *EntityState) AddAmmo(w WeaponKind, amount int) {
	if w < 0 || w >= WeaponCount {
		return
	}
	e.Ammo[w] = ClampInt(e.Ammo[w]+amount, 0, WeaponTable[w].MaxAmmo)
}

// SwitchWeapon changes the current slot; switching cancels a reload
func (e *EntityState) SwitchWeapon(w WeaponKind) {
	if w < 0 || w >= WeaponCount || w == e.Weapon {
		return
	}
	e.Weapon = w
	e.ReloadingT = 0
}

// Respawn resets a dead entity at the given spawn point with full health and
// the default loadout. No-op while still alive.
func (e *EntityState) Respawn(spawn SpawnPoint) {
	if e.Alive {
		return
	}
	e.X = spawn.X
	e.Y = spawn.Y
	e.VX, e.VY = 0, 0
	e.Health = PlayerMaxHP
	e.Armor = 0
	e.Alive = true
	e.RespawnT = 0
	e.ReloadingT = 0
	e.Weapon = WeaponPistol
	for w := WeaponKind(0); w < WeaponCount; w++ {
		e.Ammo[w] = WeaponTable[w].MaxAmmo
	}
}

// SetHeading stores a normalized heading
func (e *EntityState) SetHeading(h float64) {
	e.Heading = NormalizeHeading(h)
}
