package main

import (
	"log"
	"sync"
	"time"
)

// Event types recorded during play
const (
	EvtFrag    = "frag"
	EvtDeath   = "death"
	EvtHit     = "hit"
	EvtPickup  = "pickup"
	EvtRespawn = "respawn"
	EvtJoin    = "join"
	EvtLeave   = "leave"
)

// GameEvent is a single trackable occurrence
type GameEvent struct {
	Type      string
	SessionID string
	Actor     string
	Subject   string
	Timestamp time.Time
}

const (
	analyticsBufSize    = 1024
	analyticsBatchMax   = 50
	analyticsFlushEvery = 5 * time.Second
)

// Analytics batches game events and persists them in the background so the
// tick loop never waits on the database.
type Analytics struct {
	db     *DB
	events chan GameEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics starts the background writer. db must be non-nil.
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan GameEvent, analyticsBufSize),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event without blocking; a full buffer drops the event
// rather than stalling the tick.
func (a *Analytics) Track(evtType, sessionID, actor, subject string) {
	select {
	case a.events <- GameEvent{
		Type:      evtType,
		SessionID: sessionID,
		Actor:     actor,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
	}:
	default:
	}
}

// Stop flushes pending events and shuts the writer down
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]GameEvent, 0, analyticsBatchMax)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.db.InsertEvents(batch); err != nil {
			log.Printf("analytics: flush failed: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchMax {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			// Drain whatever is queued, then final flush
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
					if len(batch) >= analyticsBatchMax {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
