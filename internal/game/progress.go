package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"escape-rose/internal/db"
	"escape-rose/internal/store"

	"github.com/sirupsen/logrus"
)

const (
	FirstEnigma = 1
	LastEnigma  = 4
)

// StartGame moves a waiting room to playing on enigma 1 and opens its
// progress row. It does not check who asks or how many players joined;
// StartGameAs does. Starting a room that is already playing is a no-op.
func (r *Repository) StartGame(ctx context.Context, roomID string) error {
	return r.store.WithTx(ctx, func(tx store.Tx) error {
		room, err := lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		_, err = r.startLocked(ctx, tx, room, nil)
		return err
	})
}

// StartGameAs starts the game on behalf of a player. Only the room's host
// may start, the room must still be waiting, and the player count must be
// within the configured limits.
func (r *Repository) StartGameAs(ctx context.Context, roomID, playerID string) (*db.Room, error) {
	var started *db.Room
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		room, err := lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if room.HostID == nil || *room.HostID != playerID {
			return ErrNotHost
		}
		if room.Status != db.RoomStatusWaiting {
			return ErrAlreadyStarted
		}
		players, err := tx.PlayersByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if len(players) < r.minPlayers {
			return ErrNotEnoughPlayers
		}
		if len(players) > r.maxPlayers || len(players) > room.MaxPlayers {
			return ErrTooManyPlayers
		}
		started, err = r.startLocked(ctx, tx, room, &playerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "player_id": playerID}).Info("game started")
	return started, nil
}

func (r *Repository) startLocked(ctx context.Context, tx store.Tx, room *db.Room, playerID *string) (*db.Room, error) {
	switch room.Status {
	case db.RoomStatusPlaying:
		return room, nil
	case db.RoomStatusCompleted:
		return nil, ErrStatusRegression
	}
	status := db.RoomStatusPlaying
	enigma := FirstEnigma
	if err := tx.PatchRoom(ctx, room.ID, store.RoomPatch{Status: &status, CurrentEnigma: &enigma}); err != nil {
		return nil, fmt.Errorf("mark room playing: %w", err)
	}
	progress := db.EnigmaProgress{
		ID:           r.newID(),
		RoomID:       room.ID,
		EnigmaNumber: enigma,
		StartedAt:    r.now(),
	}
	if _, err := tx.UpsertProgress(ctx, &progress); err != nil {
		return nil, fmt.Errorf("open enigma progress: %w", err)
	}
	room.Status = status
	room.CurrentEnigma = enigma
	if err := logEvent(ctx, tx, room.ID, playerID, eventGameStarted, EventPayload{Enigma: enigma}); err != nil {
		return nil, err
	}
	return room, nil
}

// AdvanceEnigma closes the progress row of enigma current, moves the room to
// current+1 and opens the next progress row. Leaving the last enigma marks
// the room completed instead.
//
// The call is keyed on current: once the room has moved past it, repeating
// the call changes nothing and returns the room as stored. Progress rows are
// upserted per (room, enigma), so no duplicates appear either way.
func (r *Repository) AdvanceEnigma(ctx context.Context, roomID string, current int) (*db.Room, error) {
	var (
		result    *db.Room
		advanced  bool
		timeSpent int
	)
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		room, err := lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		result = room
		if room.CurrentEnigma != current {
			return nil
		}
		if room.Status != db.RoomStatusPlaying {
			return ErrNotPlaying
		}
		now := r.now()
		progress, err := tx.ProgressByNumber(ctx, roomID, current)
		switch {
		case err == nil && progress.CompletedAt == nil:
			timeSpent = elapsedSeconds(progress.StartedAt, now)
			if err := tx.CompleteProgress(ctx, progress.ID, now, timeSpent); err != nil {
				return fmt.Errorf("complete enigma %d: %w", current, err)
			}
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}

		next := current + 1
		patch := store.RoomPatch{CurrentEnigma: &next}
		if current >= LastEnigma {
			completed := db.RoomStatusCompleted
			patch.Status = &completed
		}
		if err := tx.PatchRoom(ctx, roomID, patch); err != nil {
			return fmt.Errorf("advance room: %w", err)
		}
		room.CurrentEnigma = next
		if patch.Status != nil {
			room.Status = *patch.Status
			advanced = true
			return logEvent(ctx, tx, roomID, nil, eventGameCompleted, EventPayload{Enigma: current, TimeSpent: timeSpent})
		}
		nextProgress := db.EnigmaProgress{
			ID:           r.newID(),
			RoomID:       roomID,
			EnigmaNumber: next,
			StartedAt:    now,
		}
		if _, err := tx.UpsertProgress(ctx, &nextProgress); err != nil {
			return fmt.Errorf("open enigma %d: %w", next, err)
		}
		advanced = true
		return logEvent(ctx, tx, roomID, nil, eventEnigmaAdvanced, EventPayload{Enigma: next, TimeSpent: timeSpent})
	})
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"room_id": roomID, "enigma": current})
	if advanced {
		log.WithFields(logrus.Fields{"time_spent": timeSpent, "status": result.Status}).Info("enigma advanced")
	} else {
		log.WithField("current_enigma", result.CurrentEnigma).Debug("enigma already advanced")
	}
	return result, nil
}

// AssignTeams splits the room's players in join order: the first ceil(n/2)
// go to labo, the rest to oncopole.
func (r *Repository) AssignTeams(ctx context.Context, roomID string) ([]db.Player, error) {
	var players []db.Player
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := lockRoom(ctx, tx, roomID); err != nil {
			return err
		}
		list, err := tx.PlayersByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		half := (len(list) + 1) / 2
		counts := map[string]int{}
		for i := range list {
			team := db.TeamOncopole
			if i < half {
				team = db.TeamLabo
			}
			if err := tx.SetPlayerTeam(ctx, list[i].ID, team); err != nil {
				return fmt.Errorf("assign team to %s: %w", list[i].ID, err)
			}
			value := team
			list[i].Team = &value
			counts[team]++
		}
		players = list
		return logEvent(ctx, tx, roomID, nil, eventTeamsAssigned, EventPayload{Teams: counts})
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "players": len(players)}).Info("teams assigned")
	return players, nil
}

// ExpireWaitingRooms deletes rooms that never left the lobby and were
// created before cutoff, along with their players, chat and progress.
func (r *Repository) ExpireWaitingRooms(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := store.Read(ctx, r.store, func(tx store.Tx) ([]db.Room, error) {
		return tx.StaleRooms(ctx, db.RoomStatusWaiting, cutoff)
	})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, room := range stale {
		deleted := false
		err := r.store.WithTx(ctx, func(tx store.Tx) error {
			locked, err := tx.LockRoom(ctx, room.ID)
			if err != nil {
				return err
			}
			if locked.Status != db.RoomStatusWaiting {
				return nil
			}
			if err := tx.DeleteRoom(ctx, room.ID); err != nil {
				return err
			}
			deleted = true
			return logEvent(ctx, tx, room.ID, nil, eventRoomExpired, EventPayload{Code: room.Code})
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			logrus.WithError(err).WithField("room_id", room.ID).Warn("expire room failed")
			continue
		}
		if err == nil && deleted {
			removed++
		}
	}
	return removed, nil
}

func lockRoom(ctx context.Context, tx store.Tx, roomID string) (*db.Room, error) {
	room, err := tx.LockRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock room: %w", err)
	}
	return room, nil
}

// elapsedSeconds is whole seconds between start and end, never negative.
func elapsedSeconds(start, end time.Time) int {
	seconds := math.Floor(end.Sub(start).Seconds())
	if seconds < 0 {
		return 0
	}
	return int(seconds)
}
