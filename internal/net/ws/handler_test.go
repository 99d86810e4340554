package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"arena/internal/game"
	"arena/internal/net/proto"
	"arena/internal/server"
	"arena/internal/telemetry"
	"arena/logging"
)

func newRoom(t *testing.T, metrics *logging.Metrics) *server.Room {
	t.Helper()
	cfg := server.DefaultConfig()
	cfg.PingInterval = 0
	cfg.Metrics = telemetry.WrapMetrics(metrics)
	room, err := server.NewRoom(cfg)
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	return room
}

func websocketURL(t *testing.T, baseURL string) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(baseURL, "http")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readWithTimeout(t *testing.T, c *Client) proto.ServerMessage {
	t.Helper()
	type result struct {
		msg proto.ServerMessage
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := c.Read()
		ch <- result{msg, err}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("read: %v", res.err)
		}
		return res.msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out reading from socket")
	}
	return proto.ServerMessage{}
}

func connected(room *server.Room) bool {
	players := room.Diagnostics().Players
	return len(players) == 1 && players[0].Connected
}

func TestHandleRequiresToken(t *testing.T) {
	handler := NewHandler(newRoom(t, nil), HandlerConfig{})

	resp := httptest.NewRecorder()
	handler.Handle(resp, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing token, got %d", resp.Code)
	}
}

func TestHandleRejectsUnknownToken(t *testing.T) {
	handler := NewHandler(newRoom(t, nil), HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL)+"?token=nobody", nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestInputsFlowThroughSocket(t *testing.T) {
	metrics := &logging.Metrics{}
	room := newRoom(t, metrics)
	join, err := room.Join(proto.JoinRequest{PlayerName: "alice"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	handler := NewHandler(room, HandlerConfig{Metrics: telemetry.WrapMetrics(metrics)})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	client, err := Dial(context.Background(), websocketURL(t, srv.URL), join.YourToken)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	waitFor(t, "subscription", func() bool { return connected(room) })

	if err := client.Send(proto.NewInput(1, game.Input{MoveRight: true})); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, "staged input", func() bool { return room.Diagnostics().PendingCommands == 1 })

	room.Advance(time.Now())

	msg := readWithTimeout(t, client)
	if msg.Type != proto.TypeTick || msg.Tick == nil {
		t.Fatalf("expected tick, got %+v", msg)
	}
	if msg.Tick.TickNum != 1 {
		t.Fatalf("expected tick 1, got %d", msg.Tick.TickNum)
	}
	if msg.Tick.YourLastInput == nil || *msg.Tick.YourLastInput != 1 {
		t.Fatalf("expected input 1 acknowledged, got %v", msg.Tick.YourLastInput)
	}
	waitFor(t, "bytes sent counter", func() bool {
		return metrics.Snapshot()[telemetry.MetricBytesSent] > 0
	})
}

func TestClosingSocketReleasesSeat(t *testing.T) {
	room := newRoom(t, nil)
	join, err := room.Join(proto.JoinRequest{PlayerName: "alice"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	handler := NewHandler(room, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	client, err := Dial(context.Background(), websocketURL(t, srv.URL), join.YourToken)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, "subscription", func() bool { return connected(room) })

	client.Close()
	waitFor(t, "seat release", func() bool { return len(room.Diagnostics().Players) == 0 })
}

func TestReconnectKeepsSeat(t *testing.T) {
	room := newRoom(t, nil)
	join, err := room.Join(proto.JoinRequest{PlayerName: "alice"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	handler := NewHandler(room, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	first, err := Dial(context.Background(), websocketURL(t, srv.URL), join.YourToken)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	waitFor(t, "first subscription", func() bool { return connected(room) })

	second, err := Dial(context.Background(), websocketURL(t, srv.URL), join.YourToken)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	// The replaced socket is closed by the room; its reader must not free the seat.
	if _, err := first.Read(); err == nil {
		t.Fatalf("expected the first socket to be closed")
	}
	waitFor(t, "second subscription", func() bool { return connected(room) })

	room.Advance(time.Now())
	msg := readWithTimeout(t, second)
	if msg.Tick == nil || len(msg.Tick.Players) != 1 {
		t.Fatalf("expected the seat to survive the reconnect, got %+v", msg)
	}
}

func TestConnectionSendAfterClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	raw, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	conn := newConnection(raw, 1, time.Second, nil)
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := conn.Send(proto.NewPing(1)); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}
