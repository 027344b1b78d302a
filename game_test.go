package main

import (
	"testing"
	"time"
)

const testDT = 1.0 / TickRate

func newLocalGame(t *testing.T) *Game {
	t.Helper()
	grid := DefaultMap()
	session, err := NewHostSession(grid, nil, "", "solo", time.Second, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return NewGame(DefaultSettings(), grid, session, nil)
}

func TestTickMovesLocalPlayer(t *testing.T) {
	g := newLocalGame(t)
	local := g.sync.LocalEntity()
	local.X, local.Y = 2.5, 2.5
	local.SetHeading(0)

	g.QueueInput(InputCommand{Forward: true})
	g.Tick(testDT, time.Now())

	wantX := 2.5 + PlayerSpeed*testDT
	if local.X != wantX {
		t.Errorf("x = %v, want %v", local.X, wantX)
	}
	if local.Y != 2.5 {
		t.Errorf("y = %v, want unchanged 2.5", local.Y)
	}
	if local.VX == 0 {
		t.Error("velocity should reflect the applied movement")
	}

	// No input this tick: velocity decays to zero, position holds.
	g.Tick(testDT, time.Now())
	if local.VX != 0 || local.X != wantX {
		t.Errorf("idle tick moved the player: x=%v vx=%v", local.X, local.VX)
	}
}

func TestTickBlocksMovementIntoWalls(t *testing.T) {
	g := newLocalGame(t)
	local := g.sync.LocalEntity()
	// Against the west wall, pushing further west.
	local.X, local.Y = 1.0+PlayerRadius, 2.5
	local.SetHeading(0)

	g.QueueInput(InputCommand{Back: true})
	g.Tick(testDT, time.Now())

	if local.X < 1.0+PlayerRadius-1e-9 {
		t.Errorf("x = %v, player pushed into the wall", local.X)
	}
}

func TestDeadPlayerIgnoresInputAndRespawns(t *testing.T) {
	g := newLocalGame(t)
	local := g.sync.LocalEntity()
	local.X, local.Y = 2.5, 2.5
	local.TakeDamage(500)

	x, y := local.X, local.Y
	g.QueueInput(InputCommand{Forward: true, Fire: true})
	g.Tick(testDT, time.Now())
	if local.X != x || local.Y != y {
		t.Error("dead player moved")
	}
	if local.Ammo[WeaponPistol] != WeaponTable[WeaponPistol].MaxAmmo {
		t.Error("dead player fired")
	}

	// Drive the respawn timer down.
	for i := 0; i < 8; i++ {
		g.Tick(0.5, time.Now())
	}
	if !local.Alive {
		t.Fatal("player did not respawn after the timer")
	}
	if local.Health != PlayerMaxHP {
		t.Errorf("respawned health = %d, want full", local.Health)
	}
}

func TestHeldTriggerFiresAndConsumesAmmo(t *testing.T) {
	g := newLocalGame(t)
	local := g.sync.LocalEntity()
	local.X, local.Y = 2.5, 2.5
	local.SetHeading(0)

	// The rate-of-fire window is measured from game time zero, so hold the
	// trigger across enough ticks to open it.
	for i := 0; i < 40; i++ {
		g.QueueInput(InputCommand{Fire: true})
		g.Tick(testDT, time.Now())
	}
	spent := WeaponTable[WeaponPistol].MaxAmmo - local.Ammo[WeaponPistol]
	if spent < 1 {
		t.Error("held trigger never fired")
	}
	if spent > 2 {
		t.Errorf("spent %d rounds in %v seconds, rate limit not applied", spent, 40*testDT)
	}
}

func TestWeaponSwitchInput(t *testing.T) {
	g := newLocalGame(t)
	local := g.sync.LocalEntity()

	g.QueueInput(InputCommand{Switch: true, SwitchTo: WeaponShotgun})
	g.Tick(testDT, time.Now())
	if local.Weapon != WeaponShotgun {
		t.Errorf("weapon = %v, want shotgun", local.Weapon)
	}

	// A command without the switch flag must not touch the slot even though
	// the zero SwitchTo value names the pistol.
	g.QueueInput(InputCommand{Forward: true})
	g.Tick(testDT, time.Now())
	if local.Weapon != WeaponShotgun {
		t.Error("implicit weapon switch from a movement command")
	}
}

func TestTurnInputScaledBySensitivity(t *testing.T) {
	g := newLocalGame(t)
	local := g.sync.LocalEntity()
	local.SetHeading(1.0)

	g.QueueInput(InputCommand{TurnDelta: 100})
	g.Tick(testDT, time.Now())

	want := NormalizeHeading(1.0 + 100*g.cfg.MouseSensitivity)
	if local.Heading != want {
		t.Errorf("heading = %v, want %v", local.Heading, want)
	}
}

func TestSnapshotPopulated(t *testing.T) {
	g := newLocalGame(t)
	g.Tick(testDT, time.Now())

	snap := g.Snapshot()
	if snap.Tick != 1 {
		t.Errorf("tick = %d, want 1", snap.Tick)
	}
	if len(snap.Columns) != g.cfg.ScreenWidth {
		t.Errorf("columns = %d, want %d", len(snap.Columns), g.cfg.ScreenWidth)
	}
	if len(snap.Entities) != 1 {
		t.Errorf("entities = %d, want 1", len(snap.Entities))
	}
	if snap.Local.ID != g.session.LocalID() {
		t.Errorf("local view id = %q", snap.Local.ID)
	}

	// The snapshot owns its column buffer: a later tick must not mutate it.
	first := snap.Columns[0]
	g.sync.LocalEntity().X += 3
	g.Tick(testDT, time.Now())
	if snap.Columns[0] != first {
		t.Error("snapshot columns aliased the caster's scratch buffer")
	}
}

func TestPickupTouchHealsDuringTick(t *testing.T) {
	g := newLocalGame(t)
	local := g.sync.LocalEntity()
	local.Health = 40

	var health *Pickup
	for _, p := range g.pickups.Pickups() {
		if p.Kind == PickupHealth {
			health = p
		}
	}
	if health == nil {
		t.Fatal("no health pickup on the default map")
	}
	health.X, health.Y = local.X, local.Y

	g.Tick(testDT, time.Now())
	if local.Health != 40+HealthPickupHeal {
		t.Errorf("health = %d, want %d", local.Health, 40+HealthPickupHeal)
	}
	if health.Active {
		t.Error("touched pickup still active")
	}
}
