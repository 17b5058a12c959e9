// Package server exposes the escape game over HTTP: the JSON API, the gated
// pages and the /ws live channel.
package server

import (
	"net/http"

	"escape-rose/internal/config"
	"escape-rose/internal/game"
	"escape-rose/internal/gate"
	"escape-rose/internal/session"
	"escape-rose/internal/store"

	"github.com/gin-gonic/gin"
)

type Server struct {
	repo    *game.Repository
	feed    store.Feed
	cookies *session.CookieCodec
	cfg     config.Config
	ws      *wsHub
}

func New(repo *game.Repository, feed store.Feed, cookies *session.CookieCodec, cfg config.Config) *Server {
	registerValidators()
	return &Server{
		repo:    repo,
		feed:    feed,
		cookies: cookies,
		cfg:     cfg,
		ws:      newWSHub(),
	}
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery(), s.loadSession())

	api := router.Group("/api")
	api.POST("/rooms", s.handleCreateRoom)
	api.POST("/rooms/join", s.handleJoinRoom)
	api.GET("/session", s.handleSession)
	api.POST("/session/clear", s.handleClearSession)
	api.GET("/rooms/:roomID/qr.png", s.handleRoomQR)
	api.POST("/enigmas/:step/check", s.handleCheckEnigma)
	api.POST("/decoder", s.handleDecode)

	member := api.Group("/rooms/:roomID", s.requireMember())
	member.POST("/start", s.handleStartGame)
	member.POST("/advance", s.handleAdvance)
	member.POST("/teams", s.handleAssignTeams)
	member.GET("/chat", s.handleListChat)
	member.POST("/chat", s.handleSendChat)
	member.GET("/progress/:enigma", s.handleProgress)

	router.GET("/ws", s.handleWebsocket)
	for _, path := range gate.Routes() {
		router.GET(path, s.handlePage)
	}
	router.Static("/static", "static")
	return router
}

// Shutdown closes every live websocket client.
func (s *Server) Shutdown() {
	s.ws.CloseAll()
}
