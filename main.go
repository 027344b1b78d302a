package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	lookup := LoadEnv()

	hostMode := flag.Bool("host", false, "host a session")
	addr := flag.String("addr", lookup("GRIDFPS_ADDR", ":7777"), "listen address when hosting")
	joinURL := flag.String("join", "", "join URL of a hosted session (ws://host:port/ws)")
	name := flag.String("name", lookup("GRIDFPS_NAME", "player"), "player name")
	password := flag.String("password", "", "session password (host sets, client supplies)")
	token := flag.String("token", "", "rejoin token from a previous join")
	dbPath := flag.String("db", lookup("GRIDFPS_DB", ""), "stats database path, host only (empty disables)")
	settingsPath := flag.String("settings", "settings.json", "settings file")
	invitePath := flag.String("invite", "", "write a join QR PNG to this path when hosting")
	flag.Parse()

	cfg := LoadSettings(*settingsPath)
	grid := DefaultMap()
	stale := time.Duration(cfg.StaleTimeoutMs) * time.Millisecond
	lost := time.Duration(cfg.LostTimeoutMs) * time.Millisecond

	var db *DB
	var analytics *Analytics
	var session *SessionManager

	switch {
	case *joinURL != "":
		url := *joinURL
		if i := strings.IndexByte(url, '#'); i >= 0 {
			url = url[:i] // invite URLs carry the map id in the fragment
		}
		ch, err := DialWS(url)
		if err != nil {
			// Multiplayer unavailable; local play still works
			log.Printf("multiplayer unavailable (%v), starting local session", err)
			session = mustLocalSession(grid, *password, *name, stale, lost)
			break
		}
		session, err = JoinSession(grid, ch, *name, *password, *token, stale, lost)
		if err != nil {
			// Join-level denials (map mismatch, bad password) are fatal and
			// surfaced before play starts.
			log.Fatalf("join failed: %v", err)
		}
		log.Printf("joined session as peer %s", session.LocalID())
		if session.RejoinToken != "" {
			log.Printf("rejoin with: -token %s", session.RejoinToken)
		}

	case *hostMode:
		listener, err := ListenWS(*addr)
		if err != nil {
			log.Printf("multiplayer unavailable (%v), starting local session", err)
			listener = nil
		}
		session, err = NewHostSession(grid, listener, *password, *name, stale, lost)
		if err != nil {
			log.Fatalf("host session: %v", err)
		}
		if listener != nil {
			log.Printf("hosting session %s on %s (map %s)", session.SessionID, listener.Addr(), grid.MapID())
			log.Printf("join with: -join %s", InviteURL(listener.Addr(), grid.MapID()))
			if *invitePath != "" {
				if err := WriteInviteQR(*invitePath, listener.Addr(), grid.MapID()); err != nil {
					log.Printf("invite QR: %v", err)
				} else {
					log.Printf("invite QR written to %s", *invitePath)
				}
			}
		}
		if *dbPath != "" {
			db, err = OpenDB(*dbPath)
			if err != nil {
				log.Printf("stats disabled: %v", err)
			} else {
				analytics = NewAnalytics(db)
			}
		}

	default:
		session = mustLocalSession(grid, *password, *name, stale, lost)
		log.Println("local session (use -host or -join for multiplayer)")
	}

	game := NewGame(cfg, grid, session, analytics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		game.Run(ctx)
		close(done)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	started := time.Now()
	<-stop
	log.Println("shutting down...")
	cancel()
	<-done

	if db != nil {
		if analytics != nil {
			analytics.Stop()
		}
		duration := time.Since(started).Seconds()
		peers := len(session.Sync().Entities())
		if err := db.RecordSession(session.SessionID, grid.MapID(), duration, peers); err != nil {
			log.Printf("record session: %v", err)
		}
		for _, e := range session.Sync().Entities() {
			if err := db.AddPlayerStats(e.Name, e.Frags, e.Deaths); err != nil {
				log.Printf("record stats for %s: %v", e.Name, err)
			}
		}
		db.Close()
	}
}

// mustLocalSession starts a listenerless host session for offline play
func mustLocalSession(grid *GridMap, password, name string, stale, lost time.Duration) *SessionManager {
	session, err := NewHostSession(grid, nil, password, name, stale, lost)
	if err != nil {
		log.Fatalf("local session: %v", err)
	}
	return session
}
