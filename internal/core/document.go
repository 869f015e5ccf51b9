package core

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// defaultDocContent is served for rooms that have never been saved.
var defaultDocContent = json.RawMessage(`""`)

// DocumentChannel is the collaboration surface for a room's document.
// The engine never interprets content: deltas are relayed verbatim in
// per-room receipt order and snapshots are persisted as-is. Convergence
// under true concurrent edits is last-write-wins with no transform;
// clients must tolerate divergence.
type DocumentChannel struct {
	rooms *Registry
	store store.DocumentStore
	log   *zerolog.Logger
}

// NewDocumentChannel builds a document channel handler.
func NewDocumentChannel(rooms *Registry, st store.DocumentStore, logger *zerolog.Logger) *DocumentChannel {
	return &DocumentChannel{rooms: rooms, store: st, log: logger}
}

// Join hydrates the room's document on first access, sends the current
// content to the session, and registers it as a document member.
func (c *DocumentChannel) Join(ctx context.Context, roomID string, s *Session) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	if !r.docLoaded {
		doc, err := c.store.LoadDocument(ctx, roomID)
		switch {
		case err == nil:
			r.doc = doc.Content
			r.docLoaded = true
		case errors.Is(err, store.ErrNotFound):
			r.doc = defaultDocContent
			r.docLoaded = true
		default:
			// Serve empty without marking loaded so the next join retries.
			c.log.Warn().Err(err).Str("room", roomID).Msg("load document")
			r.doc = defaultDocContent
		}
	}

	r.addMember(ChannelDocument, s)
	s.track(r)
	r.touch()

	r.send(s, Event{Kind: EventDocumentLoaded, Room: roomID, Content: r.doc})
}

// ApplyDelta relays a document change to every document member except
// the sender. The delta mutates no server-side structure; holding the
// room lock across the fan-out is what guarantees per-room delta order.
func (c *DocumentChannel) ApplyDelta(roomID string, sender *Session, delta json.RawMessage) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	r.touch()
	r.broadcast(ChannelDocument, sender, Event{Kind: EventDocumentDelta, Room: roomID, Content: delta})
}

// Save replaces the room's persisted document content. Last save to
// complete wins; the room lock serializes saves against join hydration.
func (c *DocumentChannel) Save(ctx context.Context, roomID string, content json.RawMessage) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	r.doc = content
	r.docLoaded = true
	r.touch()

	if err := c.store.SaveDocument(ctx, roomID, content); err != nil {
		c.log.Warn().Err(err).Str("room", roomID).Msg("save document")
	}
}
