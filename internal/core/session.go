package core

// Session is one connected client as seen by the engine.
type Session struct {
	ID string

	// Events carries engine events toward the session's connection.
	// Fan-out is non-blocking: a full buffer drops the event for this
	// session only.
	Events chan Event

	// rooms tracks every room the session has joined on any channel.
	// It is touched only from the session's own connection goroutine;
	// room membership sets are the shared state and carry the locking.
	rooms map[*Room]struct{}
}

// NewSession constructs a session with an initialized event channel.
func NewSession(id string) *Session {
	return &Session{
		ID:     id,
		Events: make(chan Event, 64),
		rooms:  make(map[*Room]struct{}),
	}
}

func (s *Session) track(r *Room) {
	s.rooms[r] = struct{}{}
}
