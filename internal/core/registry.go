package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry creates and looks up rooms by identifier. Construction is
// race-safe: concurrent first access for the same unseen ID yields a
// single room observed by everyone.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	idleTimeout   time.Duration
	sweepInterval time.Duration
	log           *zerolog.Logger
}

// NewRegistry builds a registry. Rooms with no members whose last
// activity is older than idleTimeout are evicted by the sweeper; state
// is written through to the store at operation time, so eviction loses
// nothing and re-access re-hydrates.
func NewRegistry(idleTimeout, sweepInterval time.Duration, logger *zerolog.Logger) *Registry {
	return &Registry{
		rooms:         make(map[string]*Room),
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		log:           logger,
	}
}

// GetOrCreate returns the room for roomID, creating it on first access.
func (g *Registry) GetOrCreate(roomID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if room, ok := g.rooms[roomID]; ok {
		return room
	}

	room := newRoom(roomID)
	g.rooms[roomID] = room
	g.log.Debug().Str("room", roomID).Msg("room created")
	return room
}

// Acquire returns the live room for roomID with its lock held. A room
// evicted between lookup and lock acquisition is marked dead under its
// lock, so the retry here guarantees the caller never mutates a room
// the registry no longer hands out.
func (g *Registry) Acquire(roomID string) *Room {
	for {
		room := g.GetOrCreate(roomID)
		room.mu.Lock()
		if !room.dead {
			return room
		}
		room.mu.Unlock()
	}
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// Run sweeps idle rooms until the context is cancelled.
func (g *Registry) Run(ctx context.Context) {
	if g.sweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(g.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep(time.Now())
		}
	}
}

// Sweep evicts rooms that have no members and have been idle since
// before now minus the idle timeout. Returns the number evicted.
func (g *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-g.idleTimeout)

	g.mu.Lock()
	defer g.mu.Unlock()

	evicted := 0
	for id, room := range g.rooms {
		room.mu.Lock()
		idle := room.empty() && room.lastActive.Before(cutoff)
		if idle {
			room.dead = true
			delete(g.rooms, id)
			evicted++
			g.log.Debug().Str("room", id).Msg("room evicted")
		}
		room.mu.Unlock()
	}
	return evicted
}
