package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// ChatChannel is the collaboration surface for a room's chat
// transcript. Append-only; ordering is server receipt order.
type ChatChannel struct {
	rooms *Registry
	store store.ChatStore
	log   *zerolog.Logger

	// now stamps outgoing messages; swappable in tests.
	now func() time.Time
}

// NewChatChannel builds a chat channel handler.
func NewChatChannel(rooms *Registry, st store.ChatStore, logger *zerolog.Logger) *ChatChannel {
	return &ChatChannel{rooms: rooms, store: st, log: logger, now: time.Now}
}

// Join hydrates the transcript on first access, sends it to the
// session, and registers it as a chat member.
func (c *ChatChannel) Join(ctx context.Context, roomID string, s *Session) {
	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	if !r.chatLoaded {
		messages, err := c.store.LoadChat(ctx, roomID)
		if err != nil {
			c.log.Warn().Err(err).Str("room", roomID).Msg("load chat")
			messages = make([]store.Message, 0)
		} else {
			r.chatLoaded = true
		}
		r.chat = messages
	}

	r.addMember(ChannelChat, s)
	s.track(r)
	r.touch()

	transcript := make([]store.Message, len(r.chat))
	copy(transcript, r.chat)
	r.send(s, Event{Kind: EventChatLoaded, Room: roomID, Messages: transcript})
}

// Send appends a message stamped with server time, persists it, and
// broadcasts it to every chat member including the sender, whose own
// view updates through the same path instead of a local echo.
// Messages whose text trims to empty are silently dropped.
func (c *ChatChannel) Send(ctx context.Context, roomID string, sender *Session, user, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	r := c.rooms.Acquire(roomID)
	defer r.mu.Unlock()

	msg := store.Message{User: user, Text: text, TS: c.now()}
	r.chat = append(r.chat, msg)
	r.touch()

	if err := c.store.AppendChatMessage(ctx, roomID, msg); err != nil {
		// Keep the in-memory append; peers still see the message.
		c.log.Warn().Err(err).Str("room", roomID).Msg("persist chat message")
	}

	r.broadcast(ChannelChat, nil, Event{Kind: EventChatMessage, Room: roomID, Message: &msg})
}
