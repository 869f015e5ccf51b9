package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// Engine bundles the room registry, the three channel handlers and the
// presence manager behind one entry point for transport and wiring.
type Engine struct {
	Rooms    *Registry
	Document *DocumentChannel
	Board    *BoardChannel
	Chat     *ChatChannel
	Presence *PresenceManager
}

// NewEngine wires the engine on top of a store. Rooms idle longer than
// idleTimeout with no members are evicted every sweepInterval; a
// non-positive sweepInterval disables eviction.
func NewEngine(st store.Store, idleTimeout, sweepInterval time.Duration, logger *zerolog.Logger) *Engine {
	rooms := NewRegistry(idleTimeout, sweepInterval, logger)
	return &Engine{
		Rooms:    rooms,
		Document: NewDocumentChannel(rooms, st, logger),
		Board:    NewBoardChannel(rooms, st, logger),
		Chat:     NewChatChannel(rooms, st, logger),
		Presence: NewPresenceManager(rooms, logger),
	}
}

// Run drives the registry's idle sweeper until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.Rooms.Run(ctx)
}

// Disconnect cleans up after a closed connection: the presence roster
// entry recorded at join time is removed and the session is dropped
// from the member sets of every room it joined. Already-broadcast or
// already-persisted events are not rolled back.
func (e *Engine) Disconnect(s *Session) {
	e.Presence.Leave(s)

	for r := range s.rooms {
		r.mu.Lock()
		r.dropMember(s)
		r.touch()
		r.mu.Unlock()
	}
}
