// Package game holds the room, player and chat operations of the escape
// game. Every multi-row sequence runs in one store transaction.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escape-rose/internal/db"
	"escape-rose/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxPlayers = 4
	DefaultMinPlayers = 2

	maxCodeAttempts = 5
)

// Membership is what create and join hand back to the caller.
type Membership struct {
	Room   db.Room   `json:"room"`
	Player db.Player `json:"player"`
}

type Repository struct {
	store      store.Store
	now        func() time.Time
	newID      func() string
	newCode    func() string
	maxPlayers int
	minPlayers int
}

type Option func(*Repository)

// WithClock replaces time.Now, mostly for tests that measure time_spent.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func WithCodeGenerator(gen func() string) Option {
	return func(r *Repository) {
		r.newCode = gen
	}
}

func WithPlayerLimits(minPlayers, maxPlayers int) Option {
	return func(r *Repository) {
		if minPlayers > 0 {
			r.minPlayers = minPlayers
		}
		if maxPlayers > 0 {
			r.maxPlayers = maxPlayers
		}
	}
}

func NewRepository(s store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:      s,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
		newCode:    NewRoomCode,
		maxPlayers: DefaultMaxPlayers,
		minPlayers: DefaultMinPlayers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) MaxPlayers() int {
	return r.maxPlayers
}

func (r *Repository) MinPlayers() int {
	return r.minPlayers
}

// CreateRoom inserts a waiting room, its host player, and points the room's
// host_id at that player. A join code already taken by another room is
// regenerated a few times before giving up.
func (r *Repository) CreateRoom(ctx context.Context, playerName string) (*Membership, error) {
	log := logrus.WithField("player_name", playerName)
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code := r.newCode()
		result, err := r.createRoomWithCode(ctx, code, playerName)
		if errors.Is(err, store.ErrDuplicate) {
			log.WithFields(logrus.Fields{"code": code, "attempt": attempt}).Warn("room code collision, retrying")
			continue
		}
		if err != nil {
			log.WithError(err).Error("room creation failed")
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"room_id":   result.Room.ID,
			"player_id": result.Player.ID,
			"code":      result.Room.Code,
		}).Info("room created")
		return result, nil
	}
	return nil, fmt.Errorf("create room: no free code after %d attempts: %w", maxCodeAttempts, store.ErrDuplicate)
}

func (r *Repository) createRoomWithCode(ctx context.Context, code, playerName string) (*Membership, error) {
	now := r.now()
	room := db.Room{
		ID:            r.newID(),
		Code:          code,
		Status:        db.RoomStatusWaiting,
		CurrentEnigma: 0,
		MaxPlayers:    r.maxPlayers,
		CreatedAt:     now,
	}
	player := db.Player{
		ID:       r.newID(),
		RoomID:   room.ID,
		Name:     playerName,
		Color:    ColorAt(0),
		Avatar:   AvatarAt(0),
		IsHost:   true,
		JoinedAt: now,
	}
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertRoom(ctx, &room); err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		if err := tx.InsertPlayer(ctx, &player); err != nil {
			return fmt.Errorf("insert host player: %w", err)
		}
		hostID := player.ID
		if err := tx.PatchRoom(ctx, room.ID, store.RoomPatch{HostID: &hostID}); err != nil {
			return fmt.Errorf("set room host: %w", err)
		}
		room.HostID = &hostID
		return logEvent(ctx, tx, room.ID, &hostID, eventRoomCreated, EventPayload{
			Code:       room.Code,
			PlayerName: player.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return &Membership{Room: room, Player: player}, nil
}

// JoinRoom enrols a player in the waiting room with the given code. The room
// row stays locked until the player is inserted, so concurrent joins cannot
// push a room past its capacity.
func (r *Repository) JoinRoom(ctx context.Context, code, playerName string) (*Membership, error) {
	log := logrus.WithFields(logrus.Fields{"code": code, "player_name": playerName})
	var result Membership
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		found, err := tx.RoomByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("find room: %w", err)
		}
		room, err := tx.LockRoom(ctx, found.ID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		players, err := tx.PlayersByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		if len(players) >= room.MaxPlayers {
			return ErrRoomFull
		}
		if room.Status != db.RoomStatusWaiting {
			return ErrAlreadyStarted
		}
		index := len(players)
		player := db.Player{
			ID:       r.newID(),
			RoomID:   room.ID,
			Name:     playerName,
			Color:    ColorAt(index),
			Avatar:   AvatarAt(index),
			IsHost:   false,
			JoinedAt: r.now(),
		}
		if err := tx.InsertPlayer(ctx, &player); err != nil {
			return fmt.Errorf("insert player: %w", err)
		}
		result = Membership{Room: *room, Player: player}
		return logEvent(ctx, tx, room.ID, &player.ID, eventPlayerJoined, EventPayload{
			PlayerName:  player.Name,
			PlayerCount: index + 1,
		})
	})
	if err != nil {
		log.WithError(err).Warn("join room failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"room_id":   result.Room.ID,
		"player_id": result.Player.ID,
	}).Info("player joined")
	return &result, nil
}

// GetRoom returns nil when the room is missing or the read fails.
func (r *Repository) GetRoom(ctx context.Context, id string) *db.Room {
	room, err := store.Read(ctx, r.store, func(tx store.Tx) (*db.Room, error) {
		return tx.RoomByID(ctx, id)
	})
	if err != nil {
		logReadError(err, "get room", logrus.Fields{"room_id": id})
		return nil
	}
	return room
}

// GetPlayers returns the room's players in join order, or an empty list.
func (r *Repository) GetPlayers(ctx context.Context, roomID string) []db.Player {
	players, err := store.Read(ctx, r.store, func(tx store.Tx) ([]db.Player, error) {
		return tx.PlayersByRoom(ctx, roomID)
	})
	if err != nil {
		logReadError(err, "get players", logrus.Fields{"room_id": roomID})
		return []db.Player{}
	}
	return players
}

func (r *Repository) GetPlayer(ctx context.Context, id string) *db.Player {
	player, err := store.Read(ctx, r.store, func(tx store.Tx) (*db.Player, error) {
		return tx.PlayerByID(ctx, id)
	})
	if err != nil {
		logReadError(err, "get player", logrus.Fields{"player_id": id})
		return nil
	}
	return player
}

// GetChatMessages returns the room's messages in send order.
func (r *Repository) GetChatMessages(ctx context.Context, roomID string) []db.ChatMessage {
	messages, err := store.Read(ctx, r.store, func(tx store.Tx) ([]db.ChatMessage, error) {
		return tx.ChatMessagesByRoom(ctx, roomID)
	})
	if err != nil {
		logReadError(err, "get chat messages", logrus.Fields{"room_id": roomID})
		return []db.ChatMessage{}
	}
	return messages
}

func (r *Repository) GetEnigmaProgress(ctx context.Context, roomID string, number int) *db.EnigmaProgress {
	progress, err := store.Read(ctx, r.store, func(tx store.Tx) (*db.EnigmaProgress, error) {
		return tx.ProgressByNumber(ctx, roomID, number)
	})
	if err != nil {
		logReadError(err, "get enigma progress", logrus.Fields{"room_id": roomID, "enigma": number})
		return nil
	}
	return progress
}

// Snapshot reads everything a client renders in one consistent view.
func (r *Repository) Snapshot(ctx context.Context, roomID, playerID string) (store.Snapshot, error) {
	return store.LoadSnapshot(ctx, r.store, roomID, playerID)
}

// RoomUpdate is a partial room patch; nil fields are untouched.
type RoomUpdate = store.RoomPatch

// UpdateRoom patches a room. Status may only move forward.
func (r *Repository) UpdateRoom(ctx context.Context, id string, update RoomUpdate) error {
	return r.store.WithTx(ctx, func(tx store.Tx) error {
		room, err := tx.LockRoom(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if update.Status != nil {
			next := db.StatusRank(*update.Status)
			if next < 0 {
				return ErrInvalidStatus
			}
			if next < db.StatusRank(room.Status) {
				return ErrStatusRegression
			}
		}
		if err := tx.PatchRoom(ctx, id, update); err != nil {
			return err
		}
		payload := EventPayload{}
		if update.Status != nil {
			payload.Status = *update.Status
		}
		if update.CurrentEnigma != nil {
			payload.Enigma = *update.CurrentEnigma
		}
		return logEvent(ctx, tx, id, nil, eventRoomUpdated, payload)
	})
}

// SendChatMessage appends a message carrying a snapshot of the sender's
// name and color.
func (r *Repository) SendChatMessage(ctx context.Context, roomID, playerID, playerName, playerColor, message string) (*db.ChatMessage, error) {
	msg := db.ChatMessage{
		ID:          r.newID(),
		RoomID:      roomID,
		PlayerID:    playerID,
		PlayerName:  playerName,
		PlayerColor: playerColor,
		Message:     message,
		CreatedAt:   r.now(),
	}
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertChatMessage(ctx, &msg); err != nil {
			return err
		}
		return logEvent(ctx, tx, roomID, &msg.PlayerID, eventChatSent, EventPayload{
			MessageLength: len(message),
		})
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id":   roomID,
			"player_id": playerID,
		}).Error("send chat message failed")
		return nil, err
	}
	return &msg, nil
}

func logReadError(err error, op string, fields logrus.Fields) {
	entry := logrus.WithFields(fields).WithError(err)
	if errors.Is(err, store.ErrNotFound) {
		entry.Debug(op + ": not found")
		return
	}
	entry.Warn(op + " failed")
}
