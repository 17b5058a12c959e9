package server

import (
	"net/http"

	"escape-rose/internal/db"
	"escape-rose/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ctxSessionKey = "session_ids"
	ctxPlayerKey  = "player"
)

// loadSession decodes the session cookie, if any, into the gin context.
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ids, ok := s.cookies.Read(c.Request); ok {
			c.Set(ctxSessionKey, ids)
		}
		c.Next()
	}
}

func sessionIDs(c *gin.Context) (session.IDs, bool) {
	value, ok := c.Get(ctxSessionKey)
	if !ok {
		return session.IDs{}, false
	}
	ids, ok := value.(session.IDs)
	return ids, ok && ids.Complete()
}

func (s *Server) startSession(c *gin.Context, room *db.Room, player *db.Player) bool {
	ids := session.IDs{RoomID: room.ID, PlayerID: player.ID}
	if err := s.cookies.Write(c.Writer, ids); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id":   room.ID,
			"player_id": player.ID,
		}).Error("write session cookie failed")
		writeError(c, http.StatusInternalServerError, "failed to start session")
		return false
	}
	c.Set(ctxSessionKey, ids)
	return true
}

// requireMember lets the request through only when the session's player
// belongs to the room in the path.
func (s *Server) requireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri roomURI
		if !bindURI(c, &uri) {
			return
		}
		ids, ok := sessionIDs(c)
		if !ok {
			writeError(c, http.StatusUnauthorized, "no active session")
			return
		}
		if ids.RoomID != uri.RoomID {
			writeError(c, http.StatusForbidden, "not a member of this room")
			return
		}
		player := s.repo.GetPlayer(c.Request.Context(), ids.PlayerID)
		if player == nil || player.RoomID != uri.RoomID {
			writeError(c, http.StatusForbidden, "not a member of this room")
			return
		}
		c.Set(ctxPlayerKey, player)
		c.Next()
	}
}

func currentPlayer(c *gin.Context) *db.Player {
	value, ok := c.Get(ctxPlayerKey)
	if !ok {
		return nil
	}
	player, _ := value.(*db.Player)
	return player
}
