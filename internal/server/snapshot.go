package server

import (
	"context"
	"time"

	"escape-rose/internal/db"
	"escape-rose/internal/enigma"
	"escape-rose/internal/game"
	"escape-rose/internal/gamectx"
	"escape-rose/internal/session"
	"escape-rose/internal/web"

	"github.com/gin-gonic/gin"
)

// stateView is what /api/session and the websocket send to the browser.
type stateView struct {
	Room     *db.Room           `json:"room"`
	Player   *db.Player         `json:"player"`
	Players  []db.Player        `json:"players"`
	Messages []db.ChatMessage   `json:"messages"`
	Progress *db.EnigmaProgress `json:"progress"`
	Step     int                `json:"step"`
	Elapsed  string             `json:"elapsed"`
	IsHost   bool               `json:"is_host"`
	CanStart bool               `json:"can_start"`
}

func (s *Server) viewState(state gamectx.State, now time.Time) stateView {
	view := stateView{
		Room:     state.Room,
		Player:   state.Player,
		Players:  state.Players,
		Messages: state.Messages,
		Progress: state.Progress,
	}
	if state.Room == nil {
		return view
	}
	view.Step = stepFor(state.Room)
	view.Elapsed = elapsedFor(state.Progress, now)
	view.IsHost = isHost(state.Room, state.Player)
	view.CanStart = s.canStart(state)
	return view
}

// loadState reads the cached view for one request.
func (s *Server) loadState(ctx context.Context, ids session.IDs, ok bool) gamectx.State {
	if !ok {
		return gamectx.State{}
	}
	gc := gamectx.New(s.repo, s.feed, session.NewMemory(ids))
	defer gc.Close()
	gc.Refresh(ctx)
	return gc.State()
}

func stepFor(room *db.Room) int {
	if room.Status == db.RoomStatusWaiting {
		return 0
	}
	return enigma.StepIndex(room.CurrentEnigma)
}

func elapsedFor(progress *db.EnigmaProgress, now time.Time) string {
	if progress == nil {
		return enigma.FormatElapsed(0)
	}
	if progress.TimeSpent != nil {
		return enigma.FormatElapsed(time.Duration(*progress.TimeSpent) * time.Second)
	}
	return enigma.FormatElapsed(now.Sub(progress.StartedAt))
}

func isHost(room *db.Room, player *db.Player) bool {
	return room != nil && player != nil && room.HostID != nil && *room.HostID == player.ID
}

func (s *Server) canStart(state gamectx.State) bool {
	if !isHost(state.Room, state.Player) || state.Room.Status != db.RoomStatusWaiting {
		return false
	}
	count := len(state.Players)
	return count >= s.repo.MinPlayers() && count <= s.repo.MaxPlayers()
}

// joinURL is the link encoded in the lobby QR code.
func (s *Server) joinURL(c *gin.Context, code string) string {
	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/?code=" + code
}

func (s *Server) pageData(c *gin.Context, path string, state gamectx.State, now time.Time) web.PageData {
	data := web.PageData{
		Path:       path,
		Code:       c.Query("code"),
		MinPlayers: s.repo.MinPlayers(),
		MaxPlayers: s.repo.MaxPlayers(),
		Encoded:    enigma.EncodedTitle,
		Players:    []web.PlayerItem{},
		Messages:   []web.ChatItem{},
	}
	if state.Room == nil || state.Player == nil {
		return data
	}
	room := state.Room
	data.RoomID = room.ID
	data.RoomCode = room.Code
	data.Status = room.Status
	data.PlayerName = state.Player.Name
	data.PlayerColor = state.Player.Color
	if state.Player.Team != nil {
		data.Team = *state.Player.Team
	}
	data.IsHost = isHost(room, state.Player)
	data.CanStart = s.canStart(state)
	data.Step = stepFor(room)
	data.Elapsed = elapsedFor(state.Progress, now)
	if state.Progress != nil && state.Progress.CompletedAt == nil {
		data.StartedAt = state.Progress.StartedAt.UnixMilli()
	}
	data.JoinURL = s.joinURL(c, room.Code)
	if room.MaxPlayers > 0 {
		data.MaxPlayers = room.MaxPlayers
	}
	for _, p := range state.Players {
		item := web.PlayerItem{
			Name:   p.Name,
			Color:  p.Color,
			Avatar: p.Avatar,
			IsHost: room.HostID != nil && *room.HostID == p.ID,
			IsYou:  p.ID == state.Player.ID,
		}
		if p.Team != nil {
			item.Team = *p.Team
		}
		data.Players = append(data.Players, item)
	}
	for _, msg := range state.Messages {
		data.Messages = append(data.Messages, web.ChatItem{
			Name:    msg.PlayerName,
			Color:   msg.PlayerColor,
			Message: msg.Message,
			Time:    msg.CreatedAt.Local().Format("15:04"),
		})
	}
	if path == "/finale" {
		s.fillTimes(c.Request.Context(), &data, room.ID)
	}
	return data
}

func (s *Server) fillTimes(ctx context.Context, data *web.PageData, roomID string) {
	var total time.Duration
	for n := game.FirstEnigma; n <= game.LastEnigma; n++ {
		progress := s.repo.GetEnigmaProgress(ctx, roomID, n)
		if progress == nil || progress.TimeSpent == nil {
			continue
		}
		spent := time.Duration(*progress.TimeSpent) * time.Second
		total += spent
		data.Times = append(data.Times, web.StepTime{
			Label:    enigma.Steps[n-1],
			Duration: enigma.FormatElapsed(spent),
		})
	}
	data.TotalTime = enigma.FormatElapsed(total)
}
