package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/beereshbc/collabroom-server/internal/config"
	"github.com/beereshbc/collabroom-server/internal/core"
	"github.com/beereshbc/collabroom-server/internal/proto"
	"github.com/beereshbc/collabroom-server/internal/store"
	"github.com/beereshbc/collabroom-server/internal/store/sqlite"
)

type outboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	engine := core.NewEngine(st, time.Minute, 0, &logger)

	server := NewServer(engine, &config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()

	frame := readFrame(t, ctx, conn)
	if frame.Type != proto.OutboundTypeEvent || frame.Event != want {
		t.Fatalf("expected event %q, got %+v", want, frame)
	}
	return frame.Data
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestBoardScenarioOverWebSocket(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connA := dial(t, ctx, ts)
	connB := dial(t, ctx, ts)

	send(t, ctx, connA, proto.InboundJoinBoard, proto.JoinData{Room: "R1"})
	readEvent(t, ctx, connA, proto.EventBoardLoaded)

	send(t, ctx, connB, proto.InboundJoinBoard, proto.JoinData{Room: "R1"})
	readEvent(t, ctx, connB, proto.EventBoardLoaded)

	send(t, ctx, connA, proto.InboundAddStroke, proto.StrokeData{
		Room: "R1",
		Stroke: store.Stroke{
			ID:     "s1",
			Points: []store.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
			Tool:   store.ToolPen,
		},
	})

	// B receives the stroke with the exact payload.
	var added proto.StrokePayload
	if err := json.Unmarshal(readEvent(t, ctx, connB, proto.EventStrokeAdded), &added); err != nil {
		t.Fatalf("unmarshal stroke-added: %v", err)
	}
	if added.Stroke.ID != "s1" || added.Stroke.Tool != store.ToolPen {
		t.Fatalf("unexpected stroke payload: %+v", added.Stroke)
	}
	if len(added.Stroke.Points) != 2 || added.Stroke.Points[1].X != 10 || added.Stroke.Points[1].Y != 10 {
		t.Fatalf("stroke points not relayed exactly: %+v", added.Stroke.Points)
	}

	// B clears; both sides get the clear through the same path. A's next
	// frame being the clear also proves A never saw its own stroke-added.
	send(t, ctx, connB, proto.InboundClearBoard, proto.JoinData{Room: "R1"})
	readEvent(t, ctx, connA, proto.EventBoardCleared)
	readEvent(t, ctx, connB, proto.EventBoardCleared)

	// A session joining afterward receives an empty stroke log.
	connC := dial(t, ctx, ts)
	send(t, ctx, connC, proto.InboundJoinBoard, proto.JoinData{Room: "R1"})

	var board proto.BoardPayload
	if err := json.Unmarshal(readEvent(t, ctx, connC, proto.EventBoardLoaded), &board); err != nil {
		t.Fatalf("unmarshal board-loaded: %v", err)
	}
	if len(board.Strokes) != 0 {
		t.Fatalf("expected empty board, got %+v", board.Strokes)
	}
}

func TestPresenceOverWebSocket(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connA := dial(t, ctx, ts)
	send(t, ctx, connA, proto.InboundJoinPresence, proto.PresenceJoinData{Room: "R1", UserKey: "u1", Username: "alice"})

	var roster proto.PresencePayload
	if err := json.Unmarshal(readEvent(t, ctx, connA, proto.EventPresenceUpdated), &roster); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(roster.Users) != 1 || roster.Users[0].Username != "alice" {
		t.Fatalf("unexpected roster: %+v", roster.Users)
	}

	connB := dial(t, ctx, ts)
	send(t, ctx, connB, proto.InboundJoinPresence, proto.PresenceJoinData{Room: "R1", UserKey: "u2", Username: "bob"})

	if err := json.Unmarshal(readEvent(t, ctx, connA, proto.EventPresenceUpdated), &roster); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(roster.Users) != 2 {
		t.Fatalf("expected 2 users, got %+v", roster.Users)
	}

	// Disconnect removes bob and pushes the updated roster to alice.
	connB.Close(websocket.StatusNormalClosure, "bye")

	if err := json.Unmarshal(readEvent(t, ctx, connA, proto.EventPresenceUpdated), &roster); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(roster.Users) != 1 || roster.Users[0].UserKey != "u1" {
		t.Fatalf("expected alice alone after disconnect, got %+v", roster.Users)
	}
}

func TestMissingRoomProducesErrorFrame(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	send(t, ctx, conn, proto.InboundJoinBoard, proto.JoinData{})

	frame := readFrame(t, ctx, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error == nil || frame.Error.Code != proto.ErrCodeBadRequest {
		t.Fatalf("expected bad_request error frame, got %+v", frame)
	}
}

func TestMalformedPayloadFieldKeepsSessionAlive(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)

	// The room field carries the wrong JSON type. That must come back
	// as an error frame on this session, not a closed connection.
	raw := json.RawMessage(`{"room":5}`)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundJoinBoard, Data: raw}); err != nil {
		t.Fatalf("write malformed payload: %v", err)
	}

	frame := readFrame(t, ctx, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error == nil || frame.Error.Code != proto.ErrCodeBadRequest {
		t.Fatalf("expected bad_request error frame, got %+v", frame)
	}

	// The same session can still join normally afterwards.
	send(t, ctx, conn, proto.InboundJoinBoard, proto.JoinData{Room: "R1"})
	readEvent(t, ctx, conn, proto.EventBoardLoaded)
}

func TestUnknownMessageTypeProducesErrorFrame(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	send(t, ctx, conn, "launch-rocket", proto.JoinData{Room: "R1"})

	frame := readFrame(t, ctx, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error == nil || frame.Error.Code != proto.ErrCodeUnknownMessage {
		t.Fatalf("expected unknown_message error frame, got %+v", frame)
	}
}
