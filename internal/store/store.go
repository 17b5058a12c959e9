// Package store is the persistence layer behind the game: point CRUD over
// rooms, players, chat messages and enigma progress, transactions, and a
// change feed that tells subscribers when a room's rows moved.
package store

import (
	"context"
	"errors"
	"time"

	"escape-rose/internal/db"
)

// RoomPatch is a partial room update. Nil fields are left untouched.
type RoomPatch struct {
	HostID        *string
	Status        *string
	CurrentEnigma *int
}

func (p RoomPatch) empty() bool {
	return p.HostID == nil && p.Status == nil && p.CurrentEnigma == nil
}

func (p RoomPatch) apply(room *db.Room) {
	if p.HostID != nil {
		id := *p.HostID
		room.HostID = &id
	}
	if p.Status != nil {
		room.Status = *p.Status
	}
	if p.CurrentEnigma != nil {
		room.CurrentEnigma = *p.CurrentEnigma
	}
}

func (p RoomPatch) columns() map[string]any {
	updates := make(map[string]any, 3)
	if p.HostID != nil {
		updates["host_id"] = *p.HostID
	}
	if p.Status != nil {
		updates["status"] = *p.Status
	}
	if p.CurrentEnigma != nil {
		updates["current_enigma"] = *p.CurrentEnigma
	}
	return updates
}

// Tx is the set of row operations available inside a transaction.
type Tx interface {
	InsertRoom(ctx context.Context, room *db.Room) error
	PatchRoom(ctx context.Context, id string, patch RoomPatch) error
	DeleteRoom(ctx context.Context, id string) error
	RoomByID(ctx context.Context, id string) (*db.Room, error)
	RoomByCode(ctx context.Context, code string) (*db.Room, error)
	// LockRoom reads a room and holds it against concurrent writers until
	// the transaction ends.
	LockRoom(ctx context.Context, id string) (*db.Room, error)
	StaleRooms(ctx context.Context, status string, createdBefore time.Time) ([]db.Room, error)

	InsertPlayer(ctx context.Context, player *db.Player) error
	SetPlayerTeam(ctx context.Context, id, team string) error
	PlayerByID(ctx context.Context, id string) (*db.Player, error)
	PlayersByRoom(ctx context.Context, roomID string) ([]db.Player, error)

	InsertChatMessage(ctx context.Context, msg *db.ChatMessage) error
	ChatMessagesByRoom(ctx context.Context, roomID string) ([]db.ChatMessage, error)

	// UpsertProgress inserts the row unless one already exists for
	// (room_id, enigma_number); in that case progress is overwritten with
	// the stored row and inserted is false.
	UpsertProgress(ctx context.Context, progress *db.EnigmaProgress) (inserted bool, err error)
	ProgressByNumber(ctx context.Context, roomID string, number int) (*db.EnigmaProgress, error)
	CompleteProgress(ctx context.Context, id string, completedAt time.Time, timeSpent int) error

	InsertEvent(ctx context.Context, event *db.RoomEvent) error
}

// Store runs transactions. Changes made by a transaction are published to
// the feed only after it commits.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only view.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Read runs a single read inside View and returns its result.
func Read[T any](ctx context.Context, s Store, fn func(tx Tx) (T, error)) (T, error) {
	var out T
	err := s.View(ctx, func(tx Tx) error {
		value, err := fn(tx)
		if err != nil {
			return err
		}
		out = value
		return nil
	})
	return out, err
}

// Snapshot is one consistent read of everything a client renders.
type Snapshot struct {
	Room     *db.Room
	Player   *db.Player
	Players  []db.Player
	Messages []db.ChatMessage
	Progress *db.EnigmaProgress
}

// LoadSnapshot reads room, players, the given player, chat and the current
// enigma's progress in one View. A missing room, a missing player or a
// player from another room leave the field nil.
func LoadSnapshot(ctx context.Context, s Store, roomID, playerID string) (Snapshot, error) {
	var snap Snapshot
	err := s.View(ctx, func(tx Tx) error {
		room, err := tx.RoomByID(ctx, roomID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		snap.Room = room
		players, err := tx.PlayersByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		snap.Players = players
		player, err := tx.PlayerByID(ctx, playerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if player != nil && player.RoomID == roomID {
			snap.Player = player
		}
		messages, err := tx.ChatMessagesByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		snap.Messages = messages
		if room != nil && room.CurrentEnigma > 0 {
			progress, err := tx.ProgressByNumber(ctx, roomID, room.CurrentEnigma)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			snap.Progress = progress
		}
		return nil
	})
	return snap, err
}
