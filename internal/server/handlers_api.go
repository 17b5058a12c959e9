package server

import (
	"errors"
	"net/http"
	"time"

	"escape-rose/internal/db"
	"escape-rose/internal/enigma"
	"escape-rose/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type roomURI struct {
	RoomID string `uri:"roomID" binding:"required"`
}

type progressURI struct {
	RoomID string `uri:"roomID" binding:"required"`
	Enigma int    `uri:"enigma" binding:"required,min=1,max=4"`
}

type createRoomRequest struct {
	Name string `json:"name" binding:"required,name"`
}

type joinRoomRequest struct {
	Code string `json:"code" binding:"required,roomcode"`
	Name string `json:"name" binding:"required,name"`
}

type advanceRequest struct {
	Enigma int `json:"enigma" binding:"required,min=1,max=4"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required,message"`
}

type decoderRequest struct {
	Text string `json:"text" binding:"max=200"`
}

var nameMessages = map[string]string{
	"required": "Veuillez entrer votre nom",
	"name":     "Nom invalide (20 caractères maximum)",
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, bindMessages{"Name": nameMessages}, "invalid room request") {
		return
	}
	name, _ := validateName(req.Name)
	created, err := s.repo.CreateRoom(c.Request.Context(), name)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Erreur lors de la création de la partie")
		return
	}
	if !s.startSession(c, &created.Room, &created.Player) {
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	messages := bindMessages{
		"Name": nameMessages,
		"Code": {
			"required": "Veuillez entrer un code de partie",
			"roomcode": "Le code de partie contient 6 lettres ou chiffres",
		},
	}
	if !bindJSON(c, &req, messages, "invalid join request") {
		return
	}
	name, _ := validateName(req.Name)
	code, _ := validateRoomCode(req.Code)
	joined, err := s.repo.JoinRoom(c.Request.Context(), code, name)
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		writeError(c, http.StatusNotFound, "Partie introuvable")
		return
	case errors.Is(err, game.ErrRoomFull):
		writeError(c, http.StatusConflict, "La partie est complète")
		return
	case errors.Is(err, game.ErrAlreadyStarted):
		writeError(c, http.StatusConflict, "La partie a déjà commencé")
		return
	case err != nil:
		writeGameError(c, err)
		return
	}
	if !s.startSession(c, &joined.Room, &joined.Player) {
		return
	}
	c.JSON(http.StatusOK, joined)
}

func (s *Server) handleSession(c *gin.Context) {
	ids, ok := sessionIDs(c)
	if !ok {
		writeError(c, http.StatusNotFound, "no active session")
		return
	}
	state := s.loadState(c.Request.Context(), ids, true)
	if !state.Ready() {
		writeError(c, http.StatusNotFound, "session not ready")
		return
	}
	c.JSON(http.StatusOK, s.viewState(state, time.Now()))
}

func (s *Server) handleClearSession(c *gin.Context) {
	if ids, ok := sessionIDs(c); ok {
		s.ws.ClearPlayer(ids.PlayerID)
		logrus.WithFields(logrus.Fields{
			"room_id":   ids.RoomID,
			"player_id": ids.PlayerID,
		}).Info("session cleared")
	}
	s.cookies.Clear(c.Writer)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleStartGame(c *gin.Context) {
	player := currentPlayer(c)
	room, err := s.repo.StartGameAs(c.Request.Context(), player.RoomID, player.ID)
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (s *Server) handleAdvance(c *gin.Context) {
	var req advanceRequest
	messages := bindMessages{"Enigma": {"required": "enigma is required", "min": "enigma must be 1 to 4", "max": "enigma must be 1 to 4"}}
	if !bindJSON(c, &req, messages, "invalid advance request") {
		return
	}
	player := currentPlayer(c)
	room, err := s.repo.AdvanceEnigma(c.Request.Context(), player.RoomID, req.Enigma)
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (s *Server) handleAssignTeams(c *gin.Context) {
	player := currentPlayer(c)
	players, err := s.repo.AssignTeams(c.Request.Context(), player.RoomID)
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players})
}

func (s *Server) handleListChat(c *gin.Context) {
	player := currentPlayer(c)
	c.JSON(http.StatusOK, gin.H{"messages": s.repo.GetChatMessages(c.Request.Context(), player.RoomID)})
}

func (s *Server) handleSendChat(c *gin.Context) {
	var req chatRequest
	messages := bindMessages{"Message": {"required": "message is required", "message": "message must be 500 characters or fewer"}}
	if !bindJSON(c, &req, messages, "invalid chat message") {
		return
	}
	text, _ := validateMessage(req.Message)
	player := currentPlayer(c)
	msg, err := s.repo.SendChatMessage(c.Request.Context(), player.RoomID, player.ID, player.Name, player.Color, text)
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (s *Server) handleProgress(c *gin.Context) {
	var uri progressURI
	if !bindURI(c, &uri) {
		return
	}
	progress := s.repo.GetEnigmaProgress(c.Request.Context(), uri.RoomID, uri.Enigma)
	if progress == nil {
		writeError(c, http.StatusNotFound, "enigma not started")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress": progress,
		"elapsed":  elapsedFor(progress, time.Now()),
	})
}

func (s *Server) handleCheckEnigma(c *gin.Context) {
	var sub enigma.Submission
	if !bindJSON(c, &sub, nil, "invalid submission") {
		return
	}
	step := c.Param("step")
	result, err := enigma.Check(step, sub)
	if err != nil {
		writeError(c, http.StatusNotFound, "unknown enigma")
		return
	}
	log := logrus.WithFields(logrus.Fields{"step": step, "correct": result.Correct})
	if ids, ok := sessionIDs(c); ok {
		log = log.WithFields(logrus.Fields{"room_id": ids.RoomID, "player_id": ids.PlayerID})
		if result.Correct && result.Completes > 0 {
			s.completeEnigma(c, ids.RoomID, result.Completes)
		}
	}
	log.Info("enigma answer checked")
	c.JSON(http.StatusOK, result)
}

// completeEnigma advances the room past n. Answers submitted after the room
// moved on, or before it started, leave it alone.
func (s *Server) completeEnigma(c *gin.Context, roomID string, n int) {
	room, err := s.repo.AdvanceEnigma(c.Request.Context(), roomID, n)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "enigma": n}).Warn("advance after correct answer failed")
		return
	}
	if room.Status == db.RoomStatusCompleted {
		logrus.WithField("room_id", roomID).Info("game completed")
	}
}

func (s *Server) handleDecode(c *gin.Context) {
	var req decoderRequest
	if !bindJSON(c, &req, bindMessages{"Text": {"max": "text must be 200 characters or fewer"}}, "invalid decoder request") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"decoded": enigma.Decode(req.Text, enigma.DefaultShift)})
}
