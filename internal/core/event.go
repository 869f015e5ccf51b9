package core

import (
	"encoding/json"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// EventKind is a notification the engine emits to sessions.
type EventKind int

const (
	// EventDocumentLoaded delivers the current document content on join.
	EventDocumentLoaded EventKind = iota
	// EventDocumentDelta relays an incremental document change.
	EventDocumentDelta
	// EventBoardLoaded delivers the full stroke log on join.
	EventBoardLoaded
	// EventStrokeAdded notifies members about a new stroke.
	EventStrokeAdded
	// EventStrokeUndone notifies members that a stroke was removed.
	EventStrokeUndone
	// EventBoardCleared notifies members that the board was emptied.
	EventBoardCleared
	// EventChatLoaded delivers the chat transcript on join.
	EventChatLoaded
	// EventChatMessage notifies members about a chat message.
	EventChatMessage
	// EventPresenceUpdated delivers the full roster after a change.
	EventPresenceUpdated
)

// PresenceEntry is one user in a room's roster. Never persisted; the
// roster is rebuilt from live connections.
type PresenceEntry struct {
	UserKey  string `json:"usn"`
	Username string `json:"username"`
}

// Event is sent to sessions to describe what happened in a room.
// Which payload fields are set depends on Kind.
type Event struct {
	Kind     EventKind
	Room     string
	Content  json.RawMessage // document content or delta
	Stroke   *store.Stroke
	Strokes  []store.Stroke
	StrokeID string
	Message  *store.Message
	Messages []store.Message
	Roster   []PresenceEntry
}
