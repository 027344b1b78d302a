package main

import (
	"strings"
	"testing"
	"time"
)

// stubListener hands pre-wired pipe channels to the host's accept loop
type stubListener struct {
	chans []Channel
}

func (l *stubListener) TryAccept() []Channel {
	out := l.chans
	l.chans = nil
	return out
}

func (l *stubListener) Addr() string { return "pipe" }
func (l *stubListener) Close() error { return nil }

func newTestHost(t *testing.T, grid *GridMap, password string) (*SessionManager, *stubListener) {
	t.Helper()
	lst := &stubListener{}
	host, err := NewHostSession(grid, lst, password, "host", time.Second, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return host, lst
}

// runJoin drives the host's accept loop while JoinSession blocks on the
// handshake, the way the tick loop would in a live session.
func runJoin(t *testing.T, host *SessionManager, lst *stubListener, grid *GridMap, name, password, token string) (*SessionManager, error) {
	t.Helper()
	hostEnd, clientEnd := NewPipe()
	lst.chans = append(lst.chans, hostEnd)

	type joinResult struct {
		sm  *SessionManager
		err error
	}
	done := make(chan joinResult, 1)
	go func() {
		sm, err := JoinSession(grid, clientEnd, name, password, token, time.Second, time.Second)
		done <- joinResult{sm, err}
	}()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case r := <-done:
			return r.sm, r.err
		case <-deadline:
			t.Fatal("join handshake did not complete")
		default:
			host.ReceivePhase(time.Now())
			time.Sleep(2 * time.Millisecond)
		}
	}
}

func TestJoinHandshake(t *testing.T) {
	grid := DefaultMap()
	host, lst := newTestHost(t, grid, "")

	client, err := runJoin(t, host, lst, grid, "alice", "", "")
	if err != nil {
		t.Fatal(err)
	}

	if client.Role != RoleClient {
		t.Errorf("role = %v, want client", client.Role)
	}
	if client.LocalID() == "" || client.LocalID() == host.LocalID() {
		t.Errorf("client id %q invalid", client.LocalID())
	}
	if client.RejoinToken == "" {
		t.Error("welcome should carry a rejoin token")
	}

	// Both sides know both entities.
	if len(host.Sync().Entities()) != 2 {
		t.Errorf("host entities = %d, want 2", len(host.Sync().Entities()))
	}
	if len(client.Sync().Entities()) != 2 {
		t.Errorf("client entities = %d, want 2", len(client.Sync().Entities()))
	}
	if host.Sync().Entity(client.LocalID()) == nil {
		t.Error("host has no entity for the client")
	}
	if client.Sync().Entity(host.LocalID()) == nil {
		t.Error("client roster is missing the host entity")
	}
}

func TestJoinDeniedOnMapMismatch(t *testing.T) {
	hostGrid := DefaultMap()
	clientGrid, err := ParseMap([]string{
		"#####",
		"#S..#",
		"#####",
	})
	if err != nil {
		t.Fatal(err)
	}
	host, lst := newTestHost(t, hostGrid, "")

	_, err = runJoin(t, host, lst, clientGrid, "alice", "", "")
	if err == nil {
		t.Fatal("join with a different map should be denied")
	}
	if !strings.Contains(err.Error(), DenyMapMismatch) {
		t.Errorf("error %q does not name the mismatch", err)
	}
	if len(host.Sync().Entities()) != 1 {
		t.Error("denied peer must not enter the roster")
	}
}

func TestJoinDeniedOnWrongPassword(t *testing.T) {
	grid := DefaultMap()
	host, lst := newTestHost(t, grid, "secret")

	if _, err := runJoin(t, host, lst, grid, "alice", "wrong", ""); err == nil {
		t.Fatal("join with the wrong password should be denied")
	}
	if _, err := runJoin(t, host, lst, grid, "alice", "secret", ""); err != nil {
		t.Fatalf("join with the right password failed: %v", err)
	}
}

func TestRejoinWithTokenKeepsPeerID(t *testing.T) {
	grid := DefaultMap()
	host, lst := newTestHost(t, grid, "secret")

	first, err := runJoin(t, host, lst, grid, "alice", "secret", "")
	if err != nil {
		t.Fatal(err)
	}
	id, token := first.LocalID(), first.RejoinToken

	// Reconnect with the token instead of the password.
	second, err := runJoin(t, host, lst, grid, "alice", "", token)
	if err != nil {
		t.Fatalf("token rejoin failed: %v", err)
	}
	if second.LocalID() != id {
		t.Errorf("rejoined as %q, want original id %q", second.LocalID(), id)
	}
	if len(host.Sync().Entities()) != 2 {
		t.Errorf("host entities = %d, rejoin must not duplicate the peer", len(host.Sync().Entities()))
	}
}

func TestRoundRobinSpawns(t *testing.T) {
	grid := DefaultMap()
	host, _ := newTestHost(t, grid, "")

	spawns := grid.Spawns()
	// The host's own entity consumed the first spawn.
	for i := 1; i <= len(spawns)+1; i++ {
		got := host.NextSpawn()
		want := spawns[i%len(spawns)]
		if got != want {
			t.Errorf("spawn %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestStatePropagatesToHost(t *testing.T) {
	grid := DefaultMap()
	host, lst := newTestHost(t, grid, "")
	client, err := runJoin(t, host, lst, grid, "alice", "", "")
	if err != nil {
		t.Fatal(err)
	}

	client.Sync().LocalEntity().X = 9.25
	client.SendPhase(1)
	host.ReceivePhase(time.Now())

	e := host.Sync().Entity(client.LocalID())
	if e == nil || e.X != 9.25 {
		t.Fatalf("host view of client = %+v, want x 9.25", e)
	}
}

func TestHostRelaysBetweenClients(t *testing.T) {
	grid := DefaultMap()
	host, lst := newTestHost(t, grid, "")

	c1, err := runJoin(t, host, lst, grid, "alice", "", "")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := runJoin(t, host, lst, grid, "bob", "", "")
	if err != nil {
		t.Fatal(err)
	}

	c1.Sync().LocalEntity().X = 7.75
	c1.SendPhase(1)
	host.ReceivePhase(time.Now()) // relays c1 traffic to c2
	c2.ReceivePhase(time.Now())

	e := c2.Sync().Entity(c1.LocalID())
	if e == nil || e.X != 7.75 {
		t.Fatalf("c2 view of c1 = %+v, want x 7.75 via host relay", e)
	}
}

func TestLeaveNotifiesHost(t *testing.T) {
	grid := DefaultMap()
	host, lst := newTestHost(t, grid, "")
	client, err := runJoin(t, host, lst, grid, "alice", "", "")
	if err != nil {
		t.Fatal(err)
	}

	client.Leave()
	host.ReceivePhase(time.Now())

	if host.Sync().Entity(client.LocalID()) != nil {
		t.Error("left client should be removed from the host's table")
	}
}
