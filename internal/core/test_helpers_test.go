package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/beereshbc/collabroom-server/internal/store"
)

// memStore is an in-memory store.Store used by engine tests. Setting
// err makes every call fail with it, for persistence-failure paths.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]json.RawMessage
	strokes map[string][]store.Stroke
	chats   map[string][]store.Message
	err     error
}

func newMemStore() *memStore {
	return &memStore{
		docs:    make(map[string]json.RawMessage),
		strokes: make(map[string][]store.Stroke),
		chats:   make(map[string][]store.Message),
	}
}

func (m *memStore) LoadDocument(_ context.Context, roomID string) (*store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	content, ok := m.docs[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.Document{RoomID: roomID, Content: content, UpdatedAt: time.Now()}, nil
}

func (m *memStore) SaveDocument(_ context.Context, roomID string, content json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[roomID] = content
	return nil
}

func (m *memStore) LoadStrokes(_ context.Context, roomID string) ([]store.Stroke, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	strokes := make([]store.Stroke, len(m.strokes[roomID]))
	copy(strokes, m.strokes[roomID])
	return strokes, nil
}

func (m *memStore) AppendStroke(_ context.Context, roomID string, stroke store.Stroke) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.strokes[roomID] = append(m.strokes[roomID], stroke)
	return nil
}

func (m *memStore) RemoveStroke(_ context.Context, roomID, strokeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	log := m.strokes[roomID]
	for i, stroke := range log {
		if stroke.ID == strokeID {
			m.strokes[roomID] = append(log[:i], log[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) ReplaceStrokes(_ context.Context, roomID string, strokes []store.Stroke) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	replacement := make([]store.Stroke, len(strokes))
	copy(replacement, strokes)
	m.strokes[roomID] = replacement
	return nil
}

func (m *memStore) LoadChat(_ context.Context, roomID string) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	messages := make([]store.Message, len(m.chats[roomID]))
	copy(messages, m.chats[roomID])
	return messages, nil
}

func (m *memStore) AppendChatMessage(_ context.Context, roomID string, msg store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.chats[roomID] = append(m.chats[roomID], msg)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func newTestEngine(st store.Store) *Engine {
	logger := zerolog.Nop()
	return NewEngine(st, time.Minute, 0, &logger)
}

// mustEvent waits for the next event of the given kind, skipping others.
func mustEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return Event{}
		}
	}
}

// mustNoEvent asserts that no event of the given kind is queued.
func mustNoEvent(t *testing.T, ch <-chan Event, kind EventKind) {
	t.Helper()

	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received: %+v", kind, ev)
			}
		default:
			return
		}
	}
}
