package server

import (
	"net/http"
	"time"

	"escape-rose/internal/gate"
	"escape-rose/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const expiredSessionFlash = "Votre session a expiré, rejoignez une nouvelle partie."

// handlePage renders a game page after checking it against the room state.
func (s *Server) handlePage(c *gin.Context) {
	path := c.FullPath()
	ids, ok := sessionIDs(c)
	state := s.loadState(c.Request.Context(), ids, ok)

	decision := gate.Check(path, state.Room, state.Player)
	if !decision.Render {
		logrus.WithFields(logrus.Fields{
			"path":     path,
			"redirect": decision.Redirect,
			"room_id":  ids.RoomID,
		}).Debug("page gated")
		c.Redirect(http.StatusFound, decision.Redirect)
		return
	}
	data := s.pageData(c, path, state, time.Now())
	if path == gate.Home && ok && !state.Ready() {
		data.Flash = expiredSessionFlash
		s.cookies.Clear(c.Writer)
	}
	templ.Handler(web.Page(data)).ServeHTTP(c.Writer, c.Request)
}
