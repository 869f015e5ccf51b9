package core

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// Channel identifies one of the collaboration surfaces layered on a room.
type Channel int

const (
	ChannelDocument Channel = iota
	ChannelBoard
	ChannelChat
	ChannelPresence
)

// Room is the in-memory authoritative state for one room: document
// snapshot, ordered stroke log, chat transcript, presence roster, and the
// per-channel member sets used for fan-out.
//
// All mutation is serialized by mu. Operations on the same room hold it
// across hydration, in-memory apply, the persistence call, and the
// enqueue to members, which gives a single-room total order for both
// state and broadcast. Different rooms are fully independent.
type Room struct {
	ID string

	mu sync.Mutex

	doc       json.RawMessage
	docLoaded bool

	strokes       []store.Stroke
	strokesLoaded bool

	chat       []store.Message
	chatLoaded bool

	roster []PresenceEntry

	members map[Channel]map[*Session]struct{}

	lastActive time.Time

	// dead is set under mu when the sweeper evicts the room. A handler
	// that locked an evicted pointer must retry through the registry
	// instead of mutating state no future broadcast will see.
	dead bool
}

func newRoom(id string) *Room {
	return &Room{
		ID:         id,
		members:    make(map[Channel]map[*Session]struct{}),
		lastActive: time.Now(),
	}
}

// addMember registers a session on a channel. Caller holds mu.
func (r *Room) addMember(ch Channel, s *Session) {
	set, ok := r.members[ch]
	if !ok {
		set = make(map[*Session]struct{})
		r.members[ch] = set
	}
	set[s] = struct{}{}
}

// dropMember removes a session from every channel. Caller holds mu.
func (r *Room) dropMember(s *Session) {
	for _, set := range r.members {
		delete(set, s)
	}
}

// broadcast enqueues an event to every member of a channel, optionally
// skipping one session. A slow member's full buffer drops the event for
// that member only; the originating operation never blocks. Caller
// holds mu, so events enter each member's channel in room order.
func (r *Room) broadcast(ch Channel, except *Session, ev Event) {
	for member := range r.members[ch] {
		if member == except {
			continue
		}
		select {
		case member.Events <- ev:
		default:
			// Drop if slow consumer.
		}
	}
}

// send delivers an event to a single session with the same non-blocking
// contract as broadcast. Caller holds mu.
func (r *Room) send(s *Session, ev Event) {
	select {
	case s.Events <- ev:
	default:
	}
}

// touch records activity for the idle sweeper. Caller holds mu.
func (r *Room) touch() {
	r.lastActive = time.Now()
}

// empty reports whether no session is subscribed on any channel and the
// roster is clear. Caller holds mu.
func (r *Room) empty() bool {
	for _, set := range r.members {
		if len(set) > 0 {
			return false
		}
	}
	return len(r.roster) == 0
}
