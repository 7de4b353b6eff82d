package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/zerochat/zerochat-server/internal/config"
	"github.com/zerochat/zerochat-server/internal/core"
	"github.com/zerochat/zerochat-server/internal/metrics"
	"github.com/zerochat/zerochat-server/internal/proto"
)

type outboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry := core.NewRegistry(core.DefaultRegistryOptions())
	throttle := core.NewThrottle(core.DefaultThrottleOptions())
	hub := core.NewHub(registry, throttle, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, metrics.New(), config.Default(), testLogger())

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func dialWS(ctx context.Context, t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) outboundEnvelope {
	t.Helper()

	var out outboundEnvelope
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func readUserCount(ctx context.Context, t *testing.T, conn *websocket.Conn) int {
	t.Helper()

	out := readEvent(ctx, t, conn)
	if out.Event != "user-count" {
		t.Fatalf("expected user-count, got %q", out.Event)
	}
	var count int
	if err := json.Unmarshal(out.Data, &count); err != nil {
		t.Fatalf("unmarshal count: %v", err)
	}
	return count
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

func TestWebSocketJoinCountAndRelay(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, ts)
	connB := dialWS(ctx, t, ts)

	sendEvent(ctx, t, connA, "join-room", map[string]string{"roomId": "lobby"})
	if count := readUserCount(ctx, t, connA); count != 1 {
		t.Fatalf("count after first join = %d, want 1", count)
	}

	sendEvent(ctx, t, connB, "join-room", map[string]string{"roomId": "lobby"})
	if count := readUserCount(ctx, t, connB); count != 2 {
		t.Fatalf("count after second join = %d, want 2", count)
	}
	if count := readUserCount(ctx, t, connA); count != 2 {
		t.Fatalf("first member should see count 2, got %d", count)
	}

	sendEvent(ctx, t, connA, "send-message", map[string]string{"roomId": "lobby", "text": "hi there"})

	out := readEvent(ctx, t, connB)
	if out.Event != "receive-message" {
		t.Fatalf("expected receive-message, got %q", out.Event)
	}
	var msg struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(out.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.Text != "hi there" {
		t.Fatalf("unexpected relayed text: %q", msg.Text)
	}
}

func TestWebSocketLeaveEmitsCount(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, ts)
	connB := dialWS(ctx, t, ts)

	sendEvent(ctx, t, connA, "join-room", map[string]string{"roomId": "lobby"})
	readUserCount(ctx, t, connA)
	sendEvent(ctx, t, connB, "join-room", map[string]string{"roomId": "lobby"})
	readUserCount(ctx, t, connB)
	readUserCount(ctx, t, connA)

	sendEvent(ctx, t, connB, "leave-room", map[string]string{"roomId": "lobby"})
	if count := readUserCount(ctx, t, connA); count != 1 {
		t.Fatalf("count after leave = %d, want 1", count)
	}
}

func TestWebSocketMalformedEventIgnored(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, ts)

	// Missing roomId and unknown event names are dropped without closing.
	sendEvent(ctx, t, conn, "send-message", map[string]string{"text": "no room"})
	sendEvent(ctx, t, conn, "bogus-event", map[string]string{})

	sendEvent(ctx, t, conn, "join-room", map[string]string{"roomId": "lobby"})
	if count := readUserCount(ctx, t, conn); count != 1 {
		t.Fatalf("connection should survive malformed events, count = %d", count)
	}
}

func TestWebSocketThrottleDropsExcessMessages(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, ts)
	connB := dialWS(ctx, t, ts)

	sendEvent(ctx, t, connA, "join-room", map[string]string{"roomId": "lobby"})
	readUserCount(ctx, t, connA)
	sendEvent(ctx, t, connB, "join-room", map[string]string{"roomId": "lobby"})
	readUserCount(ctx, t, connB)
	readUserCount(ctx, t, connA)

	for i := 0; i < 4; i++ {
		sendEvent(ctx, t, connA, "send-message", map[string]string{"roomId": "lobby", "text": "spam"})
	}

	for i := 0; i < 3; i++ {
		out := readEvent(ctx, t, connB)
		if out.Event != "receive-message" {
			t.Fatalf("message %d: expected receive-message, got %q", i+1, out.Event)
		}
	}

	// The fourth message must never arrive.
	shortCtx, shortCancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer shortCancel()
	var out outboundEnvelope
	if err := wsjson.Read(shortCtx, connB, &out); err == nil {
		t.Fatalf("unexpected extra event: %+v", out)
	}
}

func TestRoomsEndpoint(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, ts)
	sendEvent(ctx, t, conn, "join-room", map[string]string{"roomId": "lobby"})
	readUserCount(ctx, t, conn)

	resp, err := ts.Client().Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("rooms request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var rooms []RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "lobby" || rooms[0].Members != 1 {
		t.Fatalf("unexpected rooms payload: %+v", rooms)
	}
}
