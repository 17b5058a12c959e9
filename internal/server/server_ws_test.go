package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, c *testClient) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(c.env.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, c.cookieHeader())
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return msg
}

// waitForState reads until a state message satisfies match.
func waitForState(t *testing.T, conn *websocket.Conn, match func(state map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg := readWSMessage(t, conn, time.Until(deadline))
		if msg["type"] != "state" {
			continue
		}
		state := msg["state"].(map[string]any)
		if match(state) {
			return state
		}
	}
	t.Fatalf("no matching state before deadline")
	return nil
}

func waitForSubscribers(t *testing.T, env *testEnv, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for env.feed.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d feed subscribers, got %d", want, env.feed.Subscribers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.newClient(t).do(http.MethodGet, "/ws", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestWebsocketFollowsRoom(t *testing.T) {
	env := newTestEnv(t)
	host := env.newClient(t)
	m := host.createRoom("Alice")

	conn := dialWS(t, host)
	first := waitForState(t, conn, func(state map[string]any) bool { return true })
	if players := first["players"].([]any); len(players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(players))
	}
	waitForSubscribers(t, env, 3)

	env.newClient(t).joinRoom(m.Code, "Bob")
	state := waitForState(t, conn, func(state map[string]any) bool {
		return len(state["players"].([]any)) == 2
	})
	if state["can_start"] != true {
		t.Fatalf("expected host to be able to start with 2 players")
	}

	if err := conn.WriteJSON(map[string]string{"type": "chat", "message": "on y va"}); err != nil {
		t.Fatalf("write chat: %v", err)
	}
	state = waitForState(t, conn, func(state map[string]any) bool {
		return len(state["messages"].([]any)) == 1
	})
	msg := state["messages"].([]any)[0].(map[string]any)
	if msg["message"] != "on y va" || msg["player_name"] != "Alice" {
		t.Fatalf("unexpected chat message %#v", msg)
	}

	host.startGame(m.RoomID)
	waitForState(t, conn, func(state map[string]any) bool {
		room := state["room"].(map[string]any)
		return room["status"] == "playing" && room["current_enigma"] == float64(1)
	})
}

func TestWebsocketSessionCleared(t *testing.T) {
	env := newTestEnv(t)
	host := env.newClient(t)
	host.createRoom("Alice")

	conn := dialWS(t, host)
	waitForState(t, conn, func(state map[string]any) bool { return true })
	waitForSubscribers(t, env, 3)

	resp := host.do(http.MethodPost, "/api/session/clear", nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		msg := readWSMessage(t, conn, time.Until(deadline))
		if msg["type"] == "session_cleared" {
			break
		}
	}
	waitForSubscribers(t, env, 0)
	if count := env.srv.ws.Count(); count != 0 {
		t.Fatalf("expected no websocket clients, got %d", count)
	}
}

func TestWebsocketExpiredRoomClearsSession(t *testing.T) {
	env := newTestEnv(t)
	host := env.newClient(t)
	host.createRoom("Alice")

	conn := dialWS(t, host)
	waitForState(t, conn, func(state map[string]any) bool { return true })
	waitForSubscribers(t, env, 3)

	removed, err := env.repo.ExpireWaitingRooms(t.Context(), time.Now().Add(time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("expire rooms: removed=%d err=%v", removed, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		msg := readWSMessage(t, conn, time.Until(deadline))
		if msg["type"] == "session_cleared" {
			break
		}
	}
	waitForSubscribers(t, env, 0)
	if count := env.srv.ws.Count(); count != 0 {
		t.Fatalf("expected no websocket clients, got %d", count)
	}
}
