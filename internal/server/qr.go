package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// handleRoomQR renders the room's join link as a PNG for the lobby.
func (s *Server) handleRoomQR(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	room := s.repo.GetRoom(c.Request.Context(), uri.RoomID)
	if room == nil {
		writeError(c, http.StatusNotFound, "room not found")
		return
	}
	png, err := qrcode.Encode(s.joinURL(c, room.Code), qrcode.Medium, qrSize)
	if err != nil {
		logrus.WithError(err).WithField("room_id", room.ID).Error("encode qr code failed")
		writeError(c, http.StatusInternalServerError, "failed to render qr code")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}
