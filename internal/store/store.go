package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound marks a record that has never been written for a room.
// Callers treat it as "empty initial state", not a failure.
var ErrNotFound = errors.New("record not found")

// Document is the persisted snapshot of a room's document.
// Content is an opaque editor-format payload; it is stored and relayed
// verbatim and never parsed server-side.
type Document struct {
	RoomID    string
	Content   json.RawMessage
	UpdatedAt time.Time
}

// Point is a single coordinate of a stroke path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one atomic drawing action on a whiteboard, addressable by
// its caller-supplied ID for undo. The engine does not validate ID
// collisions; duplicate IDs make undo targets ambiguous.
type Stroke struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
	Color  string  `json:"color,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Tool   string  `json:"tool,omitempty"`
	Shape  string  `json:"shape,omitempty"`
	TS     int64   `json:"ts,omitempty"`
}

// Stroke tool values.
const (
	ToolPen    = "pen"
	ToolEraser = "eraser"
)

// Recognized shape values attached by clients.
const (
	ShapeLine   = "line"
	ShapeCircle = "circle"
)

// Message is a persisted chat message. Ordering is server receipt order.
type Message struct {
	User string    `json:"user"`
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

// DocumentStore handles document snapshot persistence.
type DocumentStore interface {
	// LoadDocument retrieves the document snapshot for a room.
	// Returns ErrNotFound if the room has never been saved.
	LoadDocument(ctx context.Context, roomID string) (*Document, error)

	// SaveDocument replaces the persisted snapshot and refreshes its
	// updated-at timestamp. Creates the record if absent.
	SaveDocument(ctx context.Context, roomID string, content json.RawMessage) error
}

// BoardStore handles the ordered stroke log of a room's whiteboard.
type BoardStore interface {
	// LoadStrokes returns the room's strokes in append order.
	// An unknown room yields an empty slice, not an error.
	LoadStrokes(ctx context.Context, roomID string) ([]Stroke, error)

	// AppendStroke adds one stroke to the end of the room's log.
	AppendStroke(ctx context.Context, roomID string, stroke Stroke) error

	// RemoveStroke deletes the oldest stroke matching strokeID.
	// Removing an unknown ID is a no-op.
	RemoveStroke(ctx context.Context, roomID, strokeID string) error

	// ReplaceStrokes swaps the room's entire log for the given sequence.
	// An empty or nil slice clears the board.
	ReplaceStrokes(ctx context.Context, roomID string, strokes []Stroke) error
}

// ChatStore handles chat transcript persistence.
type ChatStore interface {
	// LoadChat returns the room's transcript in receipt order.
	// An unknown room yields an empty slice, not an error.
	LoadChat(ctx context.Context, roomID string) ([]Message, error)

	// AppendChatMessage appends one message, creating the room's
	// transcript if it does not exist yet.
	AppendChatMessage(ctx context.Context, roomID string, msg Message) error
}

// Store aggregates all storage interfaces.
type Store interface {
	DocumentStore
	BoardStore
	ChatStore

	// Close closes the underlying database connection.
	Close() error
}
