package main

import "time"

// PickupKind is the closed set of item pickups
type PickupKind int

const (
	PickupHealth PickupKind = iota
	PickupArmor
	PickupAmmo
)

const (
	PickupRadius      = 0.4  // touch distance from the pickup center
	PickupRespawnTime = 15.0 // seconds before a taken pickup returns (host side)
	HealthPickupHeal  = 25
	ArmorPickupAmount = 50
	AmmoPickupRounds  = 12 // rounds added to the current weapon slot
)

// Pickup is one item on the map. The host owns Active and the respawn timer;
// clients mirror them from PickupStateMsg broadcasts.
type Pickup struct {
	ID       string
	Kind     PickupKind
	X, Y     float64
	Active   bool
	RespawnT float64
}

// PickupField owns all pickups for one session
type PickupField struct {
	pickups []*Pickup
	byID    map[string]*Pickup
}

// NewPickupField places one pickup of each kind at the given spawn-adjacent
// cells. Placement is deterministic from the map so host and clients agree on
// ids before the first broadcast.
func NewPickupField(grid *GridMap) *PickupField {
	f := &PickupField{byID: make(map[string]*Pickup)}
	kinds := []PickupKind{PickupHealth, PickupArmor, PickupAmmo}
	spawns := grid.Spawns()
	for i, kind := range kinds {
		if i >= len(spawns) {
			break
		}
		// Offset from the spawn cell so a respawning player doesn't stand on it
		p := &Pickup{
			ID:     pickupID(kind, i),
			Kind:   kind,
			X:      spawns[i].X + 1,
			Y:      spawns[i].Y,
			Active: true,
		}
		if grid.Solid(int(p.X), int(p.Y)) {
			p.X = spawns[i].X - 1
		}
		f.pickups = append(f.pickups, p)
		f.byID[p.ID] = p
	}
	return f
}

func pickupID(kind PickupKind, idx int) string {
	names := [...]string{"health", "armor", "ammo"}
	return names[kind] + "-" + string(rune('a'+idx))
}

// Pickups returns the field contents
func (f *PickupField) Pickups() []*Pickup { return f.pickups }

// TouchLocal checks the local entity against active pickups and applies the
// first touched one. Each peer is authoritative only for effects on itself,
// so the effect lands locally and the taken event is reported for broadcast.
func (f *PickupField) TouchLocal(e *EntityState) *Pickup {
	if !e.Alive {
		return nil
	}
	for _, p := range f.pickups {
		if !p.Active {
			continue
		}
		if Distance(e.X, e.Y, p.X, p.Y) <= PickupRadius+PlayerRadius {
			f.applyEffect(p, e)
			p.Active = false
			return p
		}
	}
	return nil
}

func (f *PickupField) applyEffect(p *Pickup, e *EntityState) {
	switch p.Kind {
	case PickupHealth:
		e.Heal(HealthPickupHeal)
	case PickupArmor:
		e.AddArmor(ArmorPickupAmount)
	case PickupAmmo:
		e.AddAmmo(e.Weapon, AmmoPickupRounds)
	}
}

// MarkTaken deactivates a pickup reported taken by any peer and, on the
// host, starts its respawn timer.
func (f *PickupField) MarkTaken(id string, host bool) {
	p := f.byID[id]
	if p == nil {
		return
	}
	p.Active = false
	if host {
		p.RespawnT = PickupRespawnTime
	}
}

// TickHost advances respawn timers; only the host calls this. Returns true
// when any pickup changed state so the host knows to rebroadcast.
func (f *PickupField) TickHost(dt float64) bool {
	changed := false
	for _, p := range f.pickups {
		if p.Active || p.RespawnT <= 0 {
			continue
		}
		p.RespawnT -= dt
		if p.RespawnT <= 0 {
			p.RespawnT = 0
			p.Active = true
			changed = true
		}
	}
	return changed
}

// ApplyState mirrors a host broadcast on a client
func (f *PickupField) ApplyState(msg PickupStateMsg) {
	for _, w := range msg.Pickups {
		p := f.byID[w.ID]
		if p == nil {
			p = &Pickup{ID: w.ID, Kind: PickupKind(w.Kind)}
			f.pickups = append(f.pickups, p)
			f.byID[p.ID] = p
		}
		p.X = w.X
		p.Y = w.Y
		p.Active = w.Active
	}
}

// WireState builds the host broadcast
func (f *PickupField) WireState() PickupStateMsg {
	msg := PickupStateMsg{Pickups: make([]PickupWire, 0, len(f.pickups))}
	for _, p := range f.pickups {
		msg.Pickups = append(msg.Pickups, PickupWire{
			ID:     p.ID,
			Kind:   int(p.Kind),
			X:      p.X,
			Y:      p.Y,
			Active: p.Active,
		})
	}
	return msg
}

// pickupBroadcastEvery is how often the host refreshes the pickup state even
// without changes, covering clients that missed an event.
const pickupBroadcastEvery = 2 * time.Second
