package proto

import (
	"encoding/json"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound message types.
const (
	InboundJoinDocument  = "join-document"
	InboundDocumentDelta = "document-delta"
	InboundDocumentSave  = "document-save"

	InboundJoinBoard  = "join-board"
	InboundAddStroke  = "add-stroke"
	InboundUndoStroke = "undo-stroke"
	InboundSaveBoard  = "save-board"
	InboundClearBoard = "clear-board"

	InboundJoinChat    = "join-chat"
	InboundChatMessage = "chat-message"

	InboundJoinPresence = "join-presence"
)

// Outbound event names.
const (
	EventDocumentLoaded = "document-loaded"
	EventDocumentDelta  = "document-delta"

	EventBoardLoaded  = "board-loaded"
	EventStrokeAdded  = "stroke-added"
	EventStrokeUndone = "stroke-undone"
	EventBoardCleared = "board-cleared"

	EventChatLoaded  = "chat-loaded"
	EventChatMessage = "chat-message"

	EventPresenceUpdated = "presence-updated"
)

// JoinData requests to join a channel for a room.
type JoinData struct {
	Room string `json:"room"`
}

// DeltaData carries an opaque document change to relay.
type DeltaData struct {
	Room  string          `json:"room"`
	Delta json.RawMessage `json:"delta"`
}

// SaveDocumentData replaces the room's persisted document content.
type SaveDocumentData struct {
	Room    string          `json:"room"`
	Content json.RawMessage `json:"content"`
}

// StrokeData carries one stroke to append.
type StrokeData struct {
	Room   string       `json:"room"`
	Stroke store.Stroke `json:"stroke"`
}

// UndoData names the stroke to remove.
type UndoData struct {
	Room     string `json:"room"`
	StrokeID string `json:"strokeId"`
}

// SaveBoardData replaces the room's whole stroke log.
type SaveBoardData struct {
	Room    string         `json:"room"`
	Strokes []store.Stroke `json:"strokes"`
}

// ChatSendData is a chat message from the client.
type ChatSendData struct {
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
}

// PresenceJoinData announces which user a session represents in a room.
type PresenceJoinData struct {
	Room     string `json:"room"`
	UserKey  string `json:"usn"`
	Username string `json:"username"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Outbound envelope types.
const (
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// DocumentPayload carries document content or a delta.
type DocumentPayload struct {
	Room    string          `json:"room"`
	Content json.RawMessage `json:"content"`
}

// BoardPayload carries the full ordered stroke log.
type BoardPayload struct {
	Room    string         `json:"room"`
	Strokes []store.Stroke `json:"strokes"`
}

// StrokePayload carries one stroke event.
type StrokePayload struct {
	Room   string       `json:"room"`
	Stroke store.Stroke `json:"stroke"`
}

// UndoPayload names the stroke that was undone.
type UndoPayload struct {
	Room     string `json:"room"`
	StrokeID string `json:"strokeId"`
}

// ClearPayload announces a board clear.
type ClearPayload struct {
	Room string `json:"room"`
}

// ChatPayload carries one chat message.
type ChatPayload struct {
	Room    string        `json:"room"`
	Message store.Message `json:"message"`
}

// ChatHistoryPayload carries the full transcript.
type ChatHistoryPayload struct {
	Room     string          `json:"room"`
	Messages []store.Message `json:"messages"`
}

// RosterEntry is one user in a presence payload.
type RosterEntry struct {
	UserKey  string `json:"usn"`
	Username string `json:"username"`
}

// PresencePayload carries the full roster; receivers replace, never merge.
type PresencePayload struct {
	Room  string        `json:"room"`
	Users []RosterEntry `json:"users"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnknownMessage = "unknown_message"
)
