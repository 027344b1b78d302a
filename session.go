package main

import (
	"fmt"
	"log"
	"time"
)

const (
	maxPeersPerSession = 8
	handshakeTimeout   = 5 * time.Second
	heartbeatEvery     = 30 // ticks between explicit heartbeats
	leaveFlushAttempts = 3
)

// SessionManager owns the peer roster and the transport channels, and drives
// the network phases of each tick: send the local state update and queued
// shot events, then receive and dispatch everything buffered inbound. The
// host additionally accepts joins, assigns spawn points and relays traffic
// between clients (star topology); a client only ever talks to the host.
type SessionManager struct {
	Role      PeerRole
	SessionID string

	localID   string
	localName string
	grid      *GridMap
	sync      *SyncProtocol

	// Host side
	auth         *SessionAuth
	listener     Listener
	channels     map[string]Channel // peerID -> steady-state channel
	pending      map[Channel]time.Time
	spawnIdx     int

	// Client side
	hostCh Channel
	// RejoinToken is issued by the host at join time; presenting it on a
	// later join skips the password and reclaims the same peer id.
	RejoinToken string

	seq      uint64
	shotSeq  uint64
	outShots []ShotEvent

	// onPeerGone fires for explicit leaves and synthesized losses alike
	onPeerGone func(peerID string)
}

// NewHostSession creates a hosting session manager. listener may be nil for
// a purely local (single-player) session; everything still works with an
// empty roster.
func NewHostSession(grid *GridMap, listener Listener, password, playerName string, staleTimeout, lostTimeout time.Duration) (*SessionManager, error) {
	sessionID := GenerateUUID()
	auth, err := NewSessionAuth(sessionID, password)
	if err != nil {
		return nil, err
	}

	localID := GenerateUUID()
	sm := &SessionManager{
		Role:      RoleHost,
		SessionID: sessionID,
		localID:   localID,
		localName: playerName,
		grid:      grid,
		sync:      NewSyncProtocol(localID, grid, staleTimeout, lostTimeout),
		auth:      auth,
		listener:  listener,
		channels:  make(map[string]Channel),
		pending:   make(map[Channel]time.Time),
	}
	sm.sync.RegisterEntity(NewEntityState(localID, playerName, sm.NextSpawn()))
	sm.sync.SetPeerLostHandler(sm.peerLost)
	return sm, nil
}

// JoinSession dials into a hosted session over the given channel and runs the
// join handshake. Blocking is acceptable here: this happens before play
// starts. A map id mismatch is fatal to this session and reported before any
// gameplay message is exchanged.
func JoinSession(grid *GridMap, ch Channel, playerName, password, token string, staleTimeout, lostTimeout time.Duration) (*SessionManager, error) {
	join, err := EncodeMessage(MsgJoin, JoinMsg{
		Name:     playerName,
		MapID:    grid.MapID(),
		Password: password,
		Token:    token,
	})
	if err != nil {
		return nil, err
	}
	if !ch.TrySend(join) {
		return nil, fmt.Errorf("join: transport refused handshake message")
	}

	welcome, err := awaitWelcome(ch, handshakeTimeout)
	if err != nil {
		return nil, err
	}
	if welcome.MapID != grid.MapID() {
		return nil, fmt.Errorf("map mismatch: host has %s, local map is %s", welcome.MapID, grid.MapID())
	}

	sm := &SessionManager{
		Role:        RoleClient,
		localID:     welcome.PeerID,
		localName:   playerName,
		grid:        grid,
		sync:        NewSyncProtocol(welcome.PeerID, grid, staleTimeout, lostTimeout),
		hostCh:      ch,
		RejoinToken: welcome.Token,
	}
	sm.sync.RegisterEntity(NewEntityState(welcome.PeerID, playerName, SpawnPoint{X: welcome.SpawnX, Y: welcome.SpawnY}))
	sm.sync.SetPeerLostHandler(sm.peerLost)
	now := time.Now()
	for _, pi := range welcome.Peers {
		sm.sync.RegisterEntity(NewEntityState(pi.PeerID, pi.Name, SpawnPoint{X: pi.X, Y: pi.Y}))
		sm.sync.AddPeer(pi.PeerID, pi.Name, RoleClient, now)
	}
	return sm, nil
}

// awaitWelcome polls the channel for the handshake reply with a deadline
func awaitWelcome(ch Channel, timeout time.Duration) (*WelcomeMsg, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, raw := range ch.TryReceive() {
			env, err := DecodeEnvelope(raw)
			if err != nil {
				log.Printf("session: dropping malformed handshake reply: %v", err)
				continue
			}
			switch env.T {
			case MsgWelcome:
				var w WelcomeMsg
				if err := DecodePayload(env, &w); err != nil {
					return nil, fmt.Errorf("join: bad welcome: %w", err)
				}
				return &w, nil
			case MsgDenied:
				var d DeniedMsg
				if err := DecodePayload(env, &d); err != nil {
					return nil, fmt.Errorf("join denied")
				}
				return nil, fmt.Errorf("join denied (%s): %s", d.Code, d.Reason)
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil, fmt.Errorf("join: no reply from host within %v", timeout)
}

// Sync exposes the protocol state to the game loop
func (sm *SessionManager) Sync() *SyncProtocol { return sm.sync }

// LocalID returns the local peer id
func (sm *SessionManager) LocalID() string { return sm.localID }

// SetPeerGoneHandler registers the side effect fired once per departed peer
func (sm *SessionManager) SetPeerGoneHandler(fn func(peerID string)) {
	sm.onPeerGone = fn
}

// NextSpawn hands out spawn points round-robin over the map's spawn cells
func (sm *SessionManager) NextSpawn() SpawnPoint {
	spawns := sm.grid.Spawns()
	sp := spawns[sm.spawnIdx%len(spawns)]
	sm.spawnIdx++
	return sp
}

// QueueShot stages a local shot event for the next send phase. Events are
// sequenced here so receivers can tell retries from new shots.
func (sm *SessionManager) QueueShot(ev ShotEvent) {
	sm.shotSeq++
	ev.Seq = sm.shotSeq
	sm.outShots = append(sm.outShots, ev)
}

// SendPhase pushes the local state update (with a freshly incremented seq)
// and all queued shot events to every peer. A refused send is one missed
// tick, not an error; the next tick's update supersedes it.
func (sm *SessionManager) SendPhase(tick uint64) {
	local := sm.sync.LocalEntity()
	if local == nil {
		return
	}

	sm.seq++
	if raw, err := EncodeMessage(MsgState, StateUpdateFrom(local, sm.seq)); err == nil {
		sm.broadcast(raw, "")
	} else {
		log.Printf("session: encode state: %v", err)
	}

	for _, ev := range sm.outShots {
		ev.ShooterID = local.ID
		if raw, err := EncodeMessage(MsgShot, ShotFiredFrom(ev)); err == nil {
			sm.broadcast(raw, "")
		} else {
			log.Printf("session: encode shot: %v", err)
		}
	}
	sm.outShots = nil

	if tick%heartbeatEvery == 0 {
		if raw, err := EncodeMessage(MsgHeartbeat, HeartbeatMsg{PeerID: local.ID, Seq: sm.seq}); err == nil {
			sm.broadcast(raw, "")
		}
	}
}

// ReceivePhase drains every buffered inbound message and folds it into the
// protocol state, then advances peer liveness. Runs strictly after SendPhase
// and before the render snapshot, so a tick never sees a half-merged table.
func (sm *SessionManager) ReceivePhase(now time.Time) {
	if sm.Role == RoleHost {
		sm.acceptJoins(now)
		for peerID, ch := range sm.channels {
			for _, raw := range ch.TryReceive() {
				sm.relay(raw, peerID)
				sm.sync.HandleMessage(raw, now)
			}
			if ch.Closed() {
				// Leave removal to liveness so a reconnect can take over
				delete(sm.channels, peerID)
			}
		}
	} else if sm.hostCh != nil {
		for _, raw := range sm.hostCh.TryReceive() {
			sm.sync.HandleMessage(raw, now)
		}
	}
	sm.sync.CheckLiveness(now)
}

// relay forwards client traffic to the other clients. Only the host does
// this; the star topology means clients never talk to each other directly.
func (sm *SessionManager) relay(raw []byte, fromPeer string) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return // sync will log the drop
	}
	switch env.T {
	case MsgState, MsgShot, MsgHeartbeat, MsgPlayerLeft, MsgPickupTaken:
		sm.broadcast(raw, fromPeer)
	}
}

// broadcast sends raw bytes to every steady-state channel except the one
// belonging to exceptPeer.
func (sm *SessionManager) broadcast(raw []byte, exceptPeer string) {
	if sm.Role == RoleHost {
		for peerID, ch := range sm.channels {
			if peerID == exceptPeer {
				continue
			}
			ch.TrySend(raw)
		}
	} else if sm.hostCh != nil {
		sm.hostCh.TrySend(raw)
	}
}

// acceptJoins admits new channels and completes handshakes without blocking
func (sm *SessionManager) acceptJoins(now time.Time) {
	if sm.listener != nil {
		for _, ch := range sm.listener.TryAccept() {
			sm.pending[ch] = now
		}
	}
	for ch, since := range sm.pending {
		if handled := sm.tryHandshake(ch, now); handled {
			delete(sm.pending, ch)
			continue
		}
		if now.Sub(since) > handshakeTimeout || ch.Closed() {
			ch.Close()
			delete(sm.pending, ch)
		}
	}
}

// tryHandshake processes one pending channel; returns true once the channel
// has been admitted or denied.
func (sm *SessionManager) tryHandshake(ch Channel, now time.Time) bool {
	for _, raw := range ch.TryReceive() {
		env, err := DecodeEnvelope(raw)
		if err != nil {
			log.Printf("session: dropping malformed handshake: %v", err)
			continue
		}
		if env.T != MsgJoin {
			continue
		}
		var join JoinMsg
		if err := DecodePayload(env, &join); err != nil {
			log.Printf("session: dropping malformed join: %v", err)
			continue
		}
		sm.admit(ch, join, now)
		return true
	}
	return false
}

// admit validates a join request and either welcomes the peer into the
// roster or denies it. Map mismatch is checked here, before play starts.
func (sm *SessionManager) admit(ch Channel, join JoinMsg, now time.Time) {
	deny := func(code, reason string) {
		if raw, err := EncodeMessage(MsgDenied, DeniedMsg{Code: code, Reason: reason}); err == nil {
			ch.TrySend(raw)
		}
		ch.Close()
	}

	if join.MapID != sm.grid.MapID() {
		deny(DenyMapMismatch, fmt.Sprintf("host map is %s", sm.grid.MapID()))
		return
	}

	peerID := ""
	if join.Token != "" {
		pid, err := sm.auth.ValidateToken(join.Token)
		if err != nil {
			deny(DenyBadToken, "invalid rejoin token")
			return
		}
		peerID = pid
	} else if !sm.auth.CheckPassword(join.Password) {
		deny(DenyBadPassword, "wrong session password")
		return
	}

	rejoining := peerID != "" && sm.sync.Entity(peerID) != nil
	if !rejoining && len(sm.channels) >= maxPeersPerSession-1 {
		deny(DenySessionFull, "session is full")
		return
	}
	if peerID == "" {
		peerID = GenerateUUID()
	}

	name := join.Name
	if name == "" {
		name = "player"
	}

	var spawn SpawnPoint
	if rejoining {
		e := sm.sync.Entity(peerID)
		spawn = SpawnPoint{X: e.X, Y: e.Y}
		if old := sm.channels[peerID]; old != nil {
			old.Close()
		}
	} else {
		spawn = sm.NextSpawn()
	}

	token, err := sm.auth.IssueToken(peerID)
	if err != nil {
		log.Printf("session: issue token: %v", err)
	}

	roster := make([]PeerInfo, 0, len(sm.channels)+1)
	for _, e := range sm.sync.Entities() {
		if e.ID == peerID {
			continue
		}
		roster = append(roster, PeerInfo{PeerID: e.ID, Name: e.Name, X: e.X, Y: e.Y})
	}

	welcome, err := EncodeMessage(MsgWelcome, WelcomeMsg{
		PeerID: peerID,
		SpawnX: spawn.X,
		SpawnY: spawn.Y,
		MapID:  sm.grid.MapID(),
		Token:  token,
		Peers:  roster,
	})
	if err != nil {
		log.Printf("session: encode welcome: %v", err)
		ch.Close()
		return
	}
	if !ch.TrySend(welcome) {
		ch.Close()
		return
	}

	sm.channels[peerID] = ch
	if !rejoining {
		sm.sync.RegisterEntity(NewEntityState(peerID, name, spawn))
	}
	sm.sync.AddPeer(peerID, name, RoleClient, now)

	// Announce the newcomer to everyone already in
	if raw, err := EncodeMessage(MsgPlayerJoined, PlayerJoinedMsg{
		PeerID: peerID,
		Name:   name,
		SpawnX: spawn.X,
		SpawnY: spawn.Y,
	}); err == nil {
		sm.broadcast(raw, peerID)
	}
	log.Printf("session: peer %s (%s) joined", peerID, name)
}

// peerLost handles a liveness loss: close the channel, relay the synthetic
// PlayerLeft (host), and surface the departure to the game layer.
func (sm *SessionManager) peerLost(peerID string) {
	if ch := sm.channels[peerID]; ch != nil {
		ch.Close()
		delete(sm.channels, peerID)
	}
	if sm.Role == RoleHost {
		if raw, err := EncodeMessage(MsgPlayerLeft, PlayerLeftMsg{PeerID: peerID}); err == nil {
			sm.broadcast(raw, peerID)
		}
	}
	if sm.onPeerGone != nil {
		sm.onPeerGone(peerID)
	}
}

// BroadcastPickups sends the host's pickup field to every client
func (sm *SessionManager) BroadcastPickups(msg PickupStateMsg) {
	if sm.Role != RoleHost {
		return
	}
	if raw, err := EncodeMessage(MsgPickups, msg); err == nil {
		sm.broadcast(raw, "")
	}
}

// SendPickupTaken reports a locally consumed pickup to the session
func (sm *SessionManager) SendPickupTaken(pickupID string) {
	if raw, err := EncodeMessage(MsgPickupTaken, PickupTakenMsg{PickupID: pickupID, PeerID: sm.localID}); err == nil {
		sm.broadcast(raw, "")
	}
}

// Leave flushes a best-effort PlayerLeft and tears the session down. Bounded
// attempts, never blocking: a lost leave message just means the others time
// this peer out instead.
func (sm *SessionManager) Leave() {
	raw, err := EncodeMessage(MsgPlayerLeft, PlayerLeftMsg{PeerID: sm.localID})
	if err == nil {
		for i := 0; i < leaveFlushAttempts; i++ {
			sent := false
			if sm.Role == RoleHost {
				sent = true
				for _, ch := range sm.channels {
					if !ch.TrySend(raw) {
						sent = false
					}
				}
			} else if sm.hostCh != nil {
				sent = sm.hostCh.TrySend(raw)
			}
			if sent {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	// Give write pumps a moment to drain before closing
	time.Sleep(50 * time.Millisecond)

	for _, ch := range sm.channels {
		ch.Close()
	}
	sm.channels = map[string]Channel{}
	if sm.hostCh != nil {
		sm.hostCh.Close()
	}
	if sm.listener != nil {
		sm.listener.Close()
	}
}
