package main

import (
	"log"
	"time"
)

// PeerStatus is the liveness state of a connected peer
type PeerStatus int

const (
	PeerConnected PeerStatus = iota
	PeerStale
	PeerLost
)

// PeerRole distinguishes the session host from joined clients
type PeerRole int

const (
	RoleHost PeerRole = iota
	RoleClient
)

// Peer is the roster entry for one remote participant
type Peer struct {
	ID       string
	Name     string
	Role     PeerRole
	Status   PeerStatus
	LastSeen time.Time
	LastSeq  uint64
}

// SyncProtocol folds inbound messages into the entity table and produces the
// outbound snapshot each tick. It owns every remote EntityState; the local
// entry is registered once and only read here.
type SyncProtocol struct {
	localID  string
	grid     *GridMap
	entities map[string]*EntityState
	peers    map[string]*Peer

	pendingShots []ShotFired

	staleTimeout time.Duration
	lostTimeout  time.Duration

	// onPeerLost fires exactly once per lost peer, after its entity has been
	// removed. Used by the session to emit the synthetic PlayerLeft.
	onPeerLost func(peerID string)

	// Host-owned pickup traffic is handed to the game layer
	onPickupState func(PickupStateMsg)
	onPickupTaken func(PickupTakenMsg)
}

// NewSyncProtocol creates a protocol state for the given local peer
func NewSyncProtocol(localID string, grid *GridMap, staleTimeout, lostTimeout time.Duration) *SyncProtocol {
	return &SyncProtocol{
		localID:      localID,
		grid:         grid,
		entities:     make(map[string]*EntityState),
		peers:        make(map[string]*Peer),
		staleTimeout: staleTimeout,
		lostTimeout:  lostTimeout,
	}
}

// SetPeerLostHandler registers the synthetic PlayerLeft side effect
func (s *SyncProtocol) SetPeerLostHandler(fn func(peerID string)) { s.onPeerLost = fn }

// SetPickupHandlers registers the pickup traffic sinks
func (s *SyncProtocol) SetPickupHandlers(state func(PickupStateMsg), taken func(PickupTakenMsg)) {
	s.onPickupState = state
	s.onPickupTaken = taken
}

// RegisterEntity adds an entity to the table. Exactly one entry exists per
// known peer id; re-registering an id replaces its entry.
func (s *SyncProtocol) RegisterEntity(e *EntityState) {
	s.entities[e.ID] = e
}

// AddPeer adds a roster entry for a remote peer
func (s *SyncProtocol) AddPeer(id, name string, role PeerRole, now time.Time) *Peer {
	p := &Peer{ID: id, Name: name, Role: role, Status: PeerConnected, LastSeen: now}
	s.peers[id] = p
	return p
}

// RemovePeer drops a peer and its entity (explicit disconnect)
func (s *SyncProtocol) RemovePeer(id string) {
	delete(s.peers, id)
	delete(s.entities, id)
}

// Entity returns the entity for a peer id, or nil
func (s *SyncProtocol) Entity(id string) *EntityState { return s.entities[id] }

// LocalEntity returns the local player's entity
func (s *SyncProtocol) LocalEntity() *EntityState { return s.entities[s.localID] }

// Entities returns every entity in the table (local included)
func (s *SyncProtocol) Entities() []*EntityState {
	out := make([]*EntityState, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	return out
}

// RemoteEntities returns every entity except the local one
func (s *SyncProtocol) RemoteEntities() []*EntityState {
	out := make([]*EntityState, 0, len(s.entities))
	for id, e := range s.entities {
		if id != s.localID {
			out = append(out, e)
		}
	}
	return out
}

// Peers returns the roster
func (s *SyncProtocol) Peers() []*Peer {
	out := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}

// Peer returns the roster entry for an id, or nil
func (s *SyncProtocol) Peer(id string) *Peer { return s.peers[id] }

// HandleMessage decodes and applies one inbound wire message. Malformed
// messages are dropped with a logged warning; unknown kinds are ignored for
// forward compatibility. Neither ever aborts the tick.
func (s *SyncProtocol) HandleMessage(raw []byte, now time.Time) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		log.Printf("sync: dropping malformed message: %v", err)
		return
	}

	switch env.T {
	case MsgState:
		var u StateUpdate
		if err := DecodePayload(env, &u); err != nil {
			log.Printf("sync: dropping malformed state update: %v", err)
			return
		}
		s.applyStateUpdate(u, now)

	case MsgShot:
		var sf ShotFired
		if err := DecodePayload(env, &sf); err != nil {
			log.Printf("sync: dropping malformed shot event: %v", err)
			return
		}
		if sf.ShooterID == s.localID {
			return
		}
		s.touch(sf.ShooterID, now)
		s.pendingShots = append(s.pendingShots, sf)

	case MsgPlayerJoined:
		var pj PlayerJoinedMsg
		if err := DecodePayload(env, &pj); err != nil {
			log.Printf("sync: dropping malformed join notice: %v", err)
			return
		}
		s.applyPlayerJoined(pj, now)

	case MsgPlayerLeft:
		var pl PlayerLeftMsg
		if err := DecodePayload(env, &pl); err != nil {
			log.Printf("sync: dropping malformed leave notice: %v", err)
			return
		}
		if pl.PeerID != s.localID {
			s.RemovePeer(pl.PeerID)
		}

	case MsgHeartbeat:
		var hb HeartbeatMsg
		if err := DecodePayload(env, &hb); err != nil {
			log.Printf("sync: dropping malformed heartbeat: %v", err)
			return
		}
		s.touch(hb.PeerID, now)

	case MsgPickups:
		var ps PickupStateMsg
		if err := DecodePayload(env, &ps); err != nil {
			log.Printf("sync: dropping malformed pickup state: %v", err)
			return
		}
		if s.onPickupState != nil {
			s.onPickupState(ps)
		}

	case MsgPickupTaken:
		var pt PickupTakenMsg
		if err := DecodePayload(env, &pt); err != nil {
			log.Printf("sync: dropping malformed pickup event: %v", err)
			return
		}
		if s.onPickupTaken != nil {
			s.onPickupTaken(pt)
		}

	case MsgJoin, MsgWelcome, MsgDenied:
		// Handshake kinds are consumed by the session layer before a channel
		// joins the steady-state roster; stragglers here are stale.

	default:
		// Unknown kind: a newer peer is talking. Ignore.
	}
}

// applyStateUpdate merges a remote state snapshot. Last-writer-wins by seq:
// anything not strictly newer than the stored seq is a duplicate or a
// reordered stale update and is silently discarded.
func (s *SyncProtocol) applyStateUpdate(u StateUpdate, now time.Time) {
	if u.PeerID == s.localID {
		return
	}

	e := s.entities[u.PeerID]
	if e == nil {
		// Updates can outrun the PlayerJoined relay on an unordered
		// transport; admit the peer from its first update.
		e = &EntityState{ID: u.PeerID, Name: u.PeerID}
		s.entities[u.PeerID] = e
	}
	if s.peers[u.PeerID] == nil {
		s.AddPeer(u.PeerID, e.Name, RoleClient, now)
	}

	if u.Seq <= e.LastSeq {
		return
	}
	e.LastSeq = u.Seq

	e.X = u.X
	e.Y = u.Y
	e.SetHeading(u.Heading)
	e.Health = ClampInt(u.Health, 0, PlayerMaxHP)
	e.Armor = ClampInt(u.Armor, 0, PlayerMaxArmor)
	for i := 0; i < len(u.Ammo) && i < int(WeaponCount); i++ {
		e.Ammo[i] = u.Ammo[i]
	}
	if u.Weapon >= 0 && u.Weapon < int(WeaponCount) {
		e.Weapon = WeaponKind(u.Weapon)
	}
	e.Alive = u.Alive
	e.Frags = u.Frags
	e.Deaths = u.Deaths

	s.touch(u.PeerID, now)
}

func (s *SyncProtocol) applyPlayerJoined(pj PlayerJoinedMsg, now time.Time) {
	if pj.PeerID == s.localID {
		return
	}
	if e := s.entities[pj.PeerID]; e != nil {
		e.Name = pj.Name
	} else {
		s.RegisterEntity(NewEntityState(pj.PeerID, pj.Name, SpawnPoint{X: pj.SpawnX, Y: pj.SpawnY}))
	}
	if p := s.peers[pj.PeerID]; p != nil {
		p.Name = pj.Name
		p.LastSeen = now
	} else {
		s.AddPeer(pj.PeerID, pj.Name, RoleClient, now)
	}
}

// touch refreshes liveness for a peer id, admitting unknown ids
func (s *SyncProtocol) touch(id string, now time.Time) {
	if id == s.localID {
		return
	}
	p := s.peers[id]
	if p == nil {
		p = s.AddPeer(id, id, RoleClient, now)
	}
	p.LastSeen = now
	p.Status = PeerConnected
}

// CheckLiveness advances peer liveness: Connected -> Stale after the stale
// timeout, Stale -> Lost after the lost timeout. A lost peer's entity is
// removed and the loss handler fires exactly once.
func (s *SyncProtocol) CheckLiveness(now time.Time) {
	for id, p := range s.peers {
		quiet := now.Sub(p.LastSeen)
		switch {
		case quiet >= s.staleTimeout+s.lostTimeout:
			p.Status = PeerLost
			delete(s.peers, id)
			delete(s.entities, id)
			log.Printf("sync: peer %s lost after %v silence", id, quiet)
			if s.onPeerLost != nil {
				s.onPeerLost(id)
			}
		case quiet >= s.staleTimeout:
			p.Status = PeerStale
		default:
			p.Status = PeerConnected
		}
	}
}

// DrainShots returns and clears the queued remote shot events
func (s *SyncProtocol) DrainShots() []ShotFired {
	shots := s.pendingShots
	s.pendingShots = nil
	return shots
}
