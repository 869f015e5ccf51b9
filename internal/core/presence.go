package core

import (
	"sync"

	"github.com/rs/zerolog"
)

type presenceRef struct {
	roomID  string
	userKey string
}

// PresenceManager tracks which user each connected session represents
// inside a room. The roster itself is room state guarded by the room
// lock; the manager owns only the session reverse index that disconnect
// cleanup needs. Rosters are ephemeral and rebuilt from live
// connections, never persisted.
type PresenceManager struct {
	rooms *Registry
	log   *zerolog.Logger

	mu       sync.Mutex
	sessions map[*Session]presenceRef
}

// NewPresenceManager builds a presence manager.
func NewPresenceManager(rooms *Registry, logger *zerolog.Logger) *PresenceManager {
	return &PresenceManager{
		rooms:    rooms,
		log:      logger,
		sessions: make(map[*Session]presenceRef),
	}
}

// Join associates the session with (roomID, userKey) and broadcasts the
// full updated roster to every presence member. Joining with a userKey
// already present (reconnect, duplicate tab) does not duplicate the
// roster entry.
func (p *PresenceManager) Join(roomID, userKey, username string, s *Session) {
	p.mu.Lock()
	p.sessions[s] = presenceRef{roomID: roomID, userKey: userKey}
	p.mu.Unlock()

	r := p.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	r.addMember(ChannelPresence, s)
	s.track(r)

	present := false
	for _, entry := range r.roster {
		if entry.UserKey == userKey {
			present = true
			break
		}
	}
	if !present {
		r.roster = append(r.roster, PresenceEntry{UserKey: userKey, Username: username})
	}
	r.touch()

	r.broadcast(ChannelPresence, nil, Event{Kind: EventPresenceUpdated, Room: roomID, Roster: rosterCopy(r.roster)})
}

// Leave removes the roster entry recorded for the session at join time
// and broadcasts the updated roster. Sessions that never joined with
// presence info are a no-op.
func (p *PresenceManager) Leave(s *Session) {
	p.mu.Lock()
	ref, ok := p.sessions[s]
	delete(p.sessions, s)
	p.mu.Unlock()

	if !ok {
		return
	}

	r := p.rooms.Acquire(ref.roomID)
	defer r.mu.Unlock()

	for i, entry := range r.roster {
		if entry.UserKey == ref.userKey {
			r.roster = append(r.roster[:i], r.roster[i+1:]...)
			break
		}
	}
	delete(r.members[ChannelPresence], s)
	r.touch()

	r.broadcast(ChannelPresence, nil, Event{Kind: EventPresenceUpdated, Room: ref.roomID, Roster: rosterCopy(r.roster)})
}

// rosterCopy snapshots the roster so receivers never observe later
// mutations.
func rosterCopy(roster []PresenceEntry) []PresenceEntry {
	out := make([]PresenceEntry, len(roster))
	copy(out, roster)
	return out
}
