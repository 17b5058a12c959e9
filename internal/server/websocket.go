package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"escape-rose/internal/gamectx"
	"escape-rose/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsMessage struct {
	Type    string     `json:"type"`
	State   *stateView `json:"state,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// wsClient is one browser tab. Each client owns a game context fed by the
// change feed.
type wsClient struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	handle   *session.Memory
	game     *gamectx.Context
	roomID   string
	playerID string
}

func (c *wsClient) send(msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type wsHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{clients: make(map[*wsClient]struct{})}
}

func (h *wsHub) Add(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *wsHub) Remove(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if !ok {
		return
	}
	client.game.Close()
	_ = client.conn.Close()
}

func (h *wsHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *wsHub) snapshot() []*wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// ClearPlayer drops the session of every tab open for playerID.
func (h *wsHub) ClearPlayer(playerID string) {
	for _, client := range h.snapshot() {
		if client.playerID == playerID {
			client.handle.Clear()
		}
	}
}

func (h *wsHub) CloseAll() {
	for _, client := range h.snapshot() {
		h.Remove(client)
	}
}

func (s *Server) handleWebsocket(c *gin.Context) {
	ids, ok := sessionIDs(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "no active session")
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Debug("websocket upgrade failed")
		return
	}

	handle := session.NewMemory(ids)
	client := &wsClient{
		conn:     conn,
		handle:   handle,
		roomID:   ids.RoomID,
		playerID: ids.PlayerID,
	}
	client.game = gamectx.New(s.repo, s.feed, handle,
		gamectx.WithPolling(s.cfg.SessionPollAttempts, s.cfg.SessionPollDelay()))
	// Listeners run one at a time, so ready needs no lock.
	ready := false
	client.game.OnChange(func(state gamectx.State) {
		if !state.Ready() {
			if ready {
				// The room or player is gone, for example expired by the janitor.
				ready = false
				logrus.WithField("player_id", client.playerID).Info("room gone, closing websocket")
				_ = client.send(wsMessage{Type: "session_cleared"})
				s.ws.Remove(client)
			}
			return
		}
		ready = true
		view := s.viewState(state, time.Now())
		if err := client.send(wsMessage{Type: "state", State: &view}); err != nil {
			logrus.WithError(err).WithField("player_id", client.playerID).Debug("websocket write failed")
		}
	})
	handle.OnClear(func() {
		_ = client.send(wsMessage{Type: "session_cleared"})
		s.ws.Remove(client)
	})

	logrus.WithFields(logrus.Fields{
		"room_id":   ids.RoomID,
		"player_id": ids.PlayerID,
		"remote":    c.Request.RemoteAddr,
	}).Info("ws connected")
	s.ws.Add(client)
	go s.serveWS(client)
}

func (s *Server) serveWS(client *wsClient) {
	defer s.ws.Remove(client)
	log := logrus.WithFields(logrus.Fields{
		"room_id":   client.roomID,
		"player_id": client.playerID,
	})
	if err := client.game.Start(context.Background()); err != nil {
		log.WithError(err).Debug("game context did not start")
		return
	}
	if !client.game.State().Ready() {
		_ = client.send(wsMessage{Type: "session_cleared"})
		return
	}
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			log.WithError(err).Info("ws disconnected")
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "chat":
			text, err := validateMessage(msg.Message)
			if err != nil {
				_ = client.send(wsMessage{Type: "error", Error: err.Error()})
				continue
			}
			if err := client.game.SendMessage(context.Background(), text); err != nil {
				log.WithError(err).Warn("chat over websocket failed")
				_ = client.send(wsMessage{Type: "error", Error: "message not sent"})
			}
		case "refresh":
			client.game.Refresh(context.Background())
		}
	}
}
