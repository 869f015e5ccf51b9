package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// BoardChannel is the collaboration surface for a room's whiteboard.
// The stroke log is append/remove-by-id only; appends, undos and clears
// on one room share a single total order with their broadcasts.
type BoardChannel struct {
	rooms *Registry
	store store.BoardStore
	log   *zerolog.Logger
}

// NewBoardChannel builds a whiteboard channel handler.
func NewBoardChannel(rooms *Registry, st store.BoardStore, logger *zerolog.Logger) *BoardChannel {
	return &BoardChannel{rooms: rooms, store: st, log: logger}
}

// Join hydrates the stroke log on first access, sends the full ordered
// log to the session, and registers it as a board member.
func (c *BoardChannel) Join(ctx context.Context, roomID string, s *Session) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	c.hydrate(ctx, r)
	r.addMember(ChannelBoard, s)
	s.track(r)
	r.touch()

	// Copy so later appends cannot race the receiver's view.
	log := make([]store.Stroke, len(r.strokes))
	copy(log, r.strokes)
	r.send(s, Event{Kind: EventBoardLoaded, Room: roomID, Strokes: log})
}

// AddStroke appends a stroke to the room's log, persists the append,
// and broadcasts it to every board member except the sender.
func (c *BoardChannel) AddStroke(ctx context.Context, roomID string, sender *Session, stroke store.Stroke) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	c.hydrate(ctx, r)
	r.strokes = append(r.strokes, stroke)
	r.touch()

	if err := c.store.AppendStroke(ctx, roomID, stroke); err != nil {
		// Keep the in-memory append; peers still see the stroke.
		c.log.Warn().Err(err).Str("room", roomID).Str("stroke", stroke.ID).Msg("persist stroke")
	}

	ev := stroke
	r.broadcast(ChannelBoard, sender, Event{Kind: EventStrokeAdded, Room: roomID, Stroke: &ev})
}

// Undo removes the oldest stroke matching strokeID, persists the
// removal, and broadcasts the undone id to every member except the
// sender. With caller-supplied ids duplicates are possible; removing
// the first match is a documented hazard, not an error. An unknown id
// removes nothing but the id is still relayed.
func (c *BoardChannel) Undo(ctx context.Context, roomID string, sender *Session, strokeID string) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	c.hydrate(ctx, r)
	for i, stroke := range r.strokes {
		if stroke.ID == strokeID {
			r.strokes = append(r.strokes[:i], r.strokes[i+1:]...)
			break
		}
	}
	r.touch()

	if err := c.store.RemoveStroke(ctx, roomID, strokeID); err != nil {
		c.log.Warn().Err(err).Str("room", roomID).Str("stroke", strokeID).Msg("persist undo")
	}

	r.broadcast(ChannelBoard, sender, Event{Kind: EventStrokeUndone, Room: roomID, StrokeID: strokeID})
}

// Replace swaps the room's entire log for the supplied sequence and
// persists it. Used for bulk resync; nothing is broadcast.
func (c *BoardChannel) Replace(ctx context.Context, roomID string, strokes []store.Stroke) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	if strokes == nil {
		strokes = make([]store.Stroke, 0)
	}
	r.strokes = strokes
	r.strokesLoaded = true
	r.touch()

	if err := c.store.ReplaceStrokes(ctx, roomID, strokes); err != nil {
		c.log.Warn().Err(err).Str("room", roomID).Msg("persist board replace")
	}
}

// Clear empties the log, persists it, and broadcasts the clear to every
// board member including the originator, whose canvas resets through
// the same event path as everyone else's.
func (c *BoardChannel) Clear(ctx context.Context, roomID string) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	r.strokes = make([]store.Stroke, 0)
	r.strokesLoaded = true
	r.touch()

	if err := c.store.ReplaceStrokes(ctx, roomID, nil); err != nil {
		c.log.Warn().Err(err).Str("room", roomID).Msg("persist board clear")
	}

	r.broadcast(ChannelBoard, nil, Event{Kind: EventBoardCleared, Room: roomID})
}

// hydrate loads the stroke log from the store. Caller holds the room
// lock. Load failures serve an empty log without marking the room
// hydrated so a later operation retries.
func (c *BoardChannel) hydrate(ctx context.Context, r *Room) {
	if r.strokesLoaded {
		return
	}

	strokes, err := c.store.LoadStrokes(ctx, r.ID)
	if err != nil {
		c.log.Warn().Err(err).Str("room", r.ID).Msg("load strokes")
		if r.strokes == nil {
			r.strokes = make([]store.Stroke, 0)
		}
		return
	}
	r.strokes = strokes
	r.strokesLoaded = true
}
