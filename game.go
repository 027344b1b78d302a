package main

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	TickRate     = 60 // simulation ticks per second
	TickDuration = time.Second / TickRate
)

// InputCommand is one tick's worth of drained input. The presentation layer
// queues these; the tick loop consumes them in order, once per tick.
type InputCommand struct {
	Forward, Back   bool
	StrafeL, StrafeR bool
	Fire            bool
	Reload          bool
	TurnDelta       float64 // mouse delta, scaled by sensitivity on apply
	Switch          bool
	SwitchTo        WeaponKind
}

// EntityView is the read-only per-entity render data
type EntityView struct {
	ID      string
	Name    string
	X, Y    float64
	Heading float64
	Health  int
	Armor   int
	Alive   bool
	Frags   int
	Deaths  int
}

// FrameSnapshot is the per-frame read-only output consumed by the render
// boundary: wall columns for the local camera plus every entity's pose.
type FrameSnapshot struct {
	Tick     uint64
	Columns  []ColumnHit
	Entities []EntityView
	Local    EntityView
}

// Game couples the simulation subsystems and runs the fixed-order tick:
// input -> collision -> weapons -> send -> receive/merge -> snapshot. All
// state is mutated only on the tick goroutine; the input queue and the
// snapshot are the two mutex-guarded edges shared with other goroutines.
type Game struct {
	cfg     *Settings
	grid    *GridMap
	caster  *RayCaster
	session *SessionManager
	sync    *SyncProtocol

	pickups     *PickupField
	projectiles *ProjectileField
	analytics   *Analytics // optional, host side
	rng         *rand.Rand

	inputMu sync.Mutex
	inputs  []InputCommand

	snapMu   sync.RWMutex
	snapshot FrameSnapshot

	tick        uint64
	now         float64 // accumulated simulation seconds
	lastPickupB time.Time
	fireHeld    bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewGame wires a game around an established session
func NewGame(cfg *Settings, grid *GridMap, session *SessionManager, analytics *Analytics) *Game {
	g := &Game{
		cfg:         cfg,
		grid:        grid,
		caster:      NewRayCaster(grid, cfg.FOVRadians(), cfg.ScreenWidth, cfg.ScreenHeight),
		session:     session,
		sync:        session.Sync(),
		pickups:     NewPickupField(grid),
		projectiles: NewProjectileField(),
		analytics:   analytics,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:        make(chan struct{}),
	}
	g.sync.SetPickupHandlers(g.onPickupState, g.onPickupTaken)
	session.SetPeerGoneHandler(g.onPeerGone)
	return g
}

// QueueInput enqueues input from the presentation layer. Safe to call from
// any goroutine; drained once per tick.
func (g *Game) QueueInput(cmd InputCommand) {
	g.inputMu.Lock()
	g.inputs = append(g.inputs, cmd)
	g.inputMu.Unlock()
}

// Snapshot returns the latest frame snapshot for the render boundary
func (g *Game) Snapshot() FrameSnapshot {
	g.snapMu.RLock()
	defer g.snapMu.RUnlock()
	return g.snapshot
}

// Run drives the tick loop until the context is cancelled or Stop is called,
// then flushes a best-effort leave.
func (g *Game) Run(ctx context.Context) {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Tick(1.0/TickRate, time.Now())
		case <-ctx.Done():
			g.session.Leave()
			return
		case <-g.stop:
			g.session.Leave()
			return
		}
	}
}

// Stop terminates the loop from another goroutine
func (g *Game) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

// Tick runs one fixed-order simulation step. Exposed for tests, which drive
// it directly with a deterministic dt.
func (g *Game) Tick(dt float64, now time.Time) {
	g.tick++
	g.now += dt

	local := g.sync.LocalEntity()
	if local == nil {
		return
	}

	// 1. Input + collision-resolved movement
	g.applyInputs(local, dt)

	// 2. Local combat: timers, respawn, projectiles, pickups
	g.updateCombat(local, dt)

	// 3. Network send
	g.session.SendPhase(g.tick)

	// 4. Network receive and merge, then resolve remote shots against the
	//    local entity only: each process is authoritative for damage to
	//    itself.
	g.session.ReceivePhase(now)
	g.resolveRemoteShots(local)

	// 5. Host housekeeping for shared pickups
	g.hostPickupPhase(now, dt)

	// 6. Render snapshot
	g.buildSnapshot(local)
}

// applyInputs drains the queue and moves the local player. Movement input is
// ignored while dead; the respawn timer is the only thing that runs then.
func (g *Game) applyInputs(local *EntityState, dt float64) {
	g.inputMu.Lock()
	cmds := g.inputs
	g.inputs = nil
	g.inputMu.Unlock()

	if !local.Alive {
		g.fireHeld = false
		return
	}

	var dx, dy float64
	for _, cmd := range cmds {
		local.SetHeading(local.Heading + cmd.TurnDelta*g.cfg.MouseSensitivity)

		mx, my := moveVector(local.Heading, cmd)
		dx += mx * PlayerSpeed * dt
		dy += my * PlayerSpeed * dt

		if cmd.Switch && cmd.SwitchTo >= 0 && cmd.SwitchTo < WeaponCount {
			local.SwitchWeapon(cmd.SwitchTo)
		}
		if cmd.Reload {
			StartReload(local)
		}
		g.fireHeld = cmd.Fire
	}

	if dx != 0 || dy != 0 {
		adx, ady := ResolveMove(g.grid, local.X, local.Y, dx, dy, PlayerRadius)
		local.X += adx
		local.Y += ady
		local.VX = adx / dt
		local.VY = ady / dt
	} else {
		local.VX, local.VY = 0, 0
	}
}

// moveVector maps WASD-style input onto a unit direction in world space
func moveVector(heading float64, cmd InputCommand) (float64, float64) {
	var fx, fy float64
	if cmd.Forward {
		fx += math.Cos(heading)
		fy += math.Sin(heading)
	}
	if cmd.Back {
		fx -= math.Cos(heading)
		fy -= math.Sin(heading)
	}
	if cmd.StrafeL {
		fx += math.Cos(heading - math.Pi/2)
		fy += math.Sin(heading - math.Pi/2)
	}
	if cmd.StrafeR {
		fx += math.Cos(heading + math.Pi/2)
		fy += math.Sin(heading + math.Pi/2)
	}
	if fx == 0 && fy == 0 {
		return 0, 0
	}
	n := Distance(0, 0, fx, fy)
	return fx / n, fy / n
}

// updateCombat ticks weapon timers, fires if the trigger is held, steps
// projectiles and applies local pickup touches.
func (g *Game) updateCombat(local *EntityState, dt float64) {
	TickReload(local, dt)

	if !local.Alive {
		local.RespawnT -= dt
		if local.RespawnT <= 0 {
			local.Respawn(g.session.NextSpawn())
			g.track(EvtRespawn, local.ID, "")
		}
	} else if g.fireHeld {
		result, event, hits := Fire(local, g.sync.RemoteEntities(), g.grid, g.now, g.rng)
		if result == FireOK {
			spec := WeaponTable[local.Weapon]
			if spec.Mode == ModeProjectile {
				g.projectiles.Spawn(local, event.Dirs, spec)
			}
			g.session.QueueShot(*event)
			for _, h := range hits {
				if h.Killed {
					g.track(EvtFrag, local.ID, h.TargetID)
				}
			}
		}
	}

	for _, h := range g.projectiles.Update(dt, g.grid, g.sync.Entities()) {
		if h.Killed {
			g.track(EvtFrag, "", h.TargetID)
		}
	}

	if taken := g.pickups.TouchLocal(local); taken != nil {
		g.pickups.MarkTaken(taken.ID, g.session.Role == RoleHost)
		g.session.SendPickupTaken(taken.ID)
		g.track(EvtPickup, local.ID, taken.ID)
	}
}

// resolveRemoteShots applies queued remote ShotFired events against the
// local entity's current hitbox. Shots from this process were already
// resolved when fired and are never queued here.
func (g *Game) resolveRemoteShots(local *EntityState) {
	for _, sf := range g.sync.DrainShots() {
		if sf.Weapon < 0 || sf.Weapon >= int(WeaponCount) {
			log.Printf("game: dropping shot with unknown weapon %d", sf.Weapon)
			continue
		}
		shot := ShotEvent{
			ShooterID: sf.ShooterID,
			Weapon:    WeaponKind(sf.Weapon),
			X:         sf.X,
			Y:         sf.Y,
			Dirs:      sf.Dirs,
			Seq:       sf.Seq,
		}
		if dmg, killed := ResolveShotAgainst(shot, local, g.grid); dmg > 0 {
			g.track(EvtHit, sf.ShooterID, local.ID)
			if killed {
				g.track(EvtDeath, local.ID, sf.ShooterID)
			}
		}
	}
}

// hostPickupPhase respawns taken pickups and rebroadcasts the field
func (g *Game) hostPickupPhase(now time.Time, dt float64) {
	if g.session.Role != RoleHost {
		return
	}
	changed := g.pickups.TickHost(dt)
	if changed || now.Sub(g.lastPickupB) >= pickupBroadcastEvery {
		g.session.BroadcastPickups(g.pickups.WireState())
		g.lastPickupB = now
	}
}

func (g *Game) onPickupState(msg PickupStateMsg) {
	g.pickups.ApplyState(msg)
}

func (g *Game) onPickupTaken(msg PickupTakenMsg) {
	if msg.PeerID == g.session.LocalID() {
		return
	}
	g.pickups.MarkTaken(msg.PickupID, g.session.Role == RoleHost)
}

func (g *Game) onPeerGone(peerID string) {
	log.Printf("game: peer %s left the session", peerID)
	g.track(EvtLeave, peerID, "")
}

// buildSnapshot publishes the read-only frame state for the renderer
func (g *Game) buildSnapshot(local *EntityState) {
	cols := g.caster.RenderColumns(local.X, local.Y, local.Heading)
	columns := make([]ColumnHit, len(cols))
	copy(columns, cols)

	entities := g.sync.Entities()
	views := make([]EntityView, 0, len(entities))
	for _, e := range entities {
		views = append(views, entityView(e))
	}

	g.snapMu.Lock()
	g.snapshot = FrameSnapshot{
		Tick:     g.tick,
		Columns:  columns,
		Entities: views,
		Local:    entityView(local),
	}
	g.snapMu.Unlock()
}

func entityView(e *EntityState) EntityView {
	return EntityView{
		ID:      e.ID,
		Name:    e.Name,
		X:       e.X,
		Y:       e.Y,
		Heading: e.Heading,
		Health:  e.Health,
		Armor:   e.Armor,
		Alive:   e.Alive,
		Frags:   e.Frags,
		Deaths:  e.Deaths,
	}
}

func (g *Game) track(evtType, actor, subject string) {
	if g.analytics != nil {
		g.analytics.Track(evtType, g.session.SessionID, actor, subject)
	}
}
