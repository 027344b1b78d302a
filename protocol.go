package main

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Message kinds. The wire format is a self-describing msgpack envelope with a
// kind tag; receivers ignore kinds they do not know so old peers tolerate new
// message types.
const (
	// Handshake (client <-> host, before play)
	MsgJoin    = "join"
	MsgWelcome = "welcome"
	MsgDenied  = "denied"

	// Steady-state sync
	MsgState        = "state"
	MsgShot         = "shot"
	MsgPlayerJoined = "pjoined"
	MsgPlayerLeft   = "pleft"
	MsgHeartbeat    = "hb"

	// Host-owned pickup lifecycle
	MsgPickups     = "pickups"
	MsgPickupTaken = "ptaken"
)

// Denial codes carried by DeniedMsg
const (
	DenyMapMismatch = "map_mismatch"
	DenyBadPassword = "bad_password"
	DenyBadToken    = "bad_token"
	DenySessionFull = "session_full"
)

// Envelope wraps every message with its kind tag
type Envelope struct {
	T string             `msgpack:"t"`
	D msgpack.RawMessage `msgpack:"d,omitempty"`
}

// JoinMsg opens the handshake. Exactly one of Password or Token is normally
// set; Token lets a previously welcomed peer rejoin without the password.
type JoinMsg struct {
	Name     string `msgpack:"n"`
	MapID    string `msgpack:"m"`
	Password string `msgpack:"pw,omitempty"`
	Token    string `msgpack:"tk,omitempty"`
}

// PeerInfo describes one existing peer to a joining client
type PeerInfo struct {
	PeerID string  `msgpack:"id"`
	Name   string  `msgpack:"n"`
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
}

// WelcomeMsg accepts a join: the assigned peer id, spawn point, the host's
// map id for a final cross-check, a rejoin token and the current roster.
type WelcomeMsg struct {
	PeerID string     `msgpack:"id"`
	SpawnX float64    `msgpack:"x"`
	SpawnY float64    `msgpack:"y"`
	MapID  string     `msgpack:"m"`
	Token  string     `msgpack:"tk,omitempty"`
	Peers  []PeerInfo `msgpack:"ps,omitempty"`
}

// DeniedMsg rejects a join before play starts
type DeniedMsg struct {
	Code   string `msgpack:"c"`
	Reason string `msgpack:"r"`
}

// StateUpdate is the per-tick snapshot of one peer's entity. Merged by the
// receiver iff Seq is strictly newer than the stored seq for that peer.
type StateUpdate struct {
	PeerID  string  `msgpack:"id"`
	Seq     uint64  `msgpack:"q"`
	X       float64 `msgpack:"x"`
	Y       float64 `msgpack:"y"`
	Heading float64 `msgpack:"h"`
	Health  int     `msgpack:"hp"`
	Armor   int     `msgpack:"ar"`
	Ammo    []int   `msgpack:"am"`
	Weapon  int     `msgpack:"w"`
	Alive   bool    `msgpack:"a"`
	Frags   int     `msgpack:"f"`
	Deaths  int     `msgpack:"d"`
}

// ShotFired propagates one ShotEvent. Dirs carries the per-pellet headings so
// every peer resolves the same geometry.
type ShotFired struct {
	ShooterID string    `msgpack:"id"`
	Weapon    int       `msgpack:"w"`
	X         float64   `msgpack:"x"`
	Y         float64   `msgpack:"y"`
	Dirs      []float64 `msgpack:"ds"`
	Seq       uint64    `msgpack:"q"`
}

// PlayerJoinedMsg announces a new peer (relayed by the host)
type PlayerJoinedMsg struct {
	PeerID string  `msgpack:"id"`
	Name   string  `msgpack:"n"`
	SpawnX float64 `msgpack:"x"`
	SpawnY float64 `msgpack:"y"`
}

// PlayerLeftMsg announces a departed peer, explicit or synthesized on loss
type PlayerLeftMsg struct {
	PeerID string `msgpack:"id"`
}

// HeartbeatMsg keeps liveness fresh on ticks with nothing else to say
type HeartbeatMsg struct {
	PeerID string `msgpack:"id"`
	Seq    uint64 `msgpack:"q"`
}

// PickupStateMsg is the host's broadcast of the pickup field
type PickupStateMsg struct {
	Pickups []PickupWire `msgpack:"ps"`
}

// PickupWire is one pickup on the wire
type PickupWire struct {
	ID     string  `msgpack:"id"`
	Kind   int     `msgpack:"k"`
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	Active bool    `msgpack:"a"`
}

// PickupTakenMsg is sent by the peer that consumed a pickup
type PickupTakenMsg struct {
	PickupID string `msgpack:"id"`
	PeerID   string `msgpack:"p"`
}

// EncodeMessage marshals a payload into an enveloped wire message
func EncodeMessage(kind string, payload interface{}) ([]byte, error) {
	var raw msgpack.RawMessage
	if payload != nil {
		b, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		raw = b
	}
	return msgpack.Marshal(Envelope{T: kind, D: raw})
}

// DecodeEnvelope unwraps a wire message without decoding the payload
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.T == "" {
		return Envelope{}, fmt.Errorf("envelope missing kind tag")
	}
	return env, nil
}

// DecodePayload decodes the envelope payload into out
func DecodePayload(env Envelope, out interface{}) error {
	if len(env.D) == 0 {
		return fmt.Errorf("%s: empty payload", env.T)
	}
	if err := msgpack.Unmarshal(env.D, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.T, err)
	}
	return nil
}

// StateUpdateFrom snapshots an entity into a wire update with the given seq
func StateUpdateFrom(e *EntityState, seq uint64) StateUpdate {
	ammo := make([]int, WeaponCount)
	copy(ammo, e.Ammo[:])
	return StateUpdate{
		PeerID:  e.ID,
		Seq:     seq,
		X:       e.X,
		Y:       e.Y,
		Heading: e.Heading,
		Health:  e.Health,
		Armor:   e.Armor,
		Ammo:    ammo,
		Weapon:  int(e.Weapon),
		Alive:   e.Alive,
		Frags:   e.Frags,
		Deaths:  e.Deaths,
	}
}

// ShotFiredFrom converts a local ShotEvent into its wire form
func ShotFiredFrom(ev ShotEvent) ShotFired {
	return ShotFired{
		ShooterID: ev.ShooterID,
		Weapon:    int(ev.Weapon),
		X:         ev.X,
		Y:         ev.Y,
		Dirs:      ev.Dirs,
		Seq:       ev.Seq,
	}
}
