package server

import (
	"errors"
	"net/http"

	"escape-rose/internal/game"
	"escape-rose/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
	})
}

// writeGameError maps repository errors onto HTTP statuses.
func writeGameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrPlayerNotFound), errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNotHost):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrAlreadyStarted),
		errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, game.ErrTooManyPlayers),
		errors.Is(err, game.ErrNotPlaying),
		errors.Is(err, game.ErrStatusRegression):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidStatus):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
