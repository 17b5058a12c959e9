package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"escape-rose/internal/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to DATABASE_URL and skips when it is not set.
func newTestPostgres(t *testing.T, feed Feed) *Postgres {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping test; DATABASE_URL is not set")
	}
	conn, err := db.Open(dsn, db.PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	p := NewPostgres(conn, feed)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func testRoom() *db.Room {
	return &db.Room{
		ID:         uuid.NewString(),
		Code:       strings.ToUpper(uuid.NewString()[:6]),
		Status:     db.RoomStatusWaiting,
		MaxPlayers: 4,
	}
}

func insertTestRoom(t *testing.T, p *Postgres) *db.Room {
	t.Helper()
	ctx := context.Background()
	room := testRoom()
	require.NoError(t, p.WithTx(ctx, func(tx Tx) error {
		return tx.InsertRoom(ctx, room)
	}))
	t.Cleanup(func() {
		_ = p.WithTx(context.Background(), func(tx Tx) error {
			return tx.DeleteRoom(context.Background(), room.ID)
		})
	})
	return room
}

func TestPostgresDuplicateCode(t *testing.T) {
	ctx := context.Background()
	p := newTestPostgres(t, nil)
	room := insertTestRoom(t, p)

	clash := testRoom()
	clash.Code = strings.ToLower(room.Code)
	err := p.WithTx(ctx, func(tx Tx) error {
		return tx.InsertRoom(ctx, clash)
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := Read(ctx, p, func(tx Tx) (*db.Room, error) {
		return tx.RoomByCode(ctx, strings.ToLower(room.Code))
	})
	require.NoError(t, err)
	assert.Equal(t, room.ID, found.ID)
}

func TestPostgresUpsertProgressKeepsFirstRow(t *testing.T) {
	ctx := context.Background()
	p := newTestPostgres(t, nil)
	room := insertTestRoom(t, p)
	started := time.Now().UTC().Truncate(time.Second)

	first := db.EnigmaProgress{ID: uuid.NewString(), RoomID: room.ID, EnigmaNumber: 1, StartedAt: started}
	second := db.EnigmaProgress{ID: uuid.NewString(), RoomID: room.ID, EnigmaNumber: 1, StartedAt: started.Add(time.Minute)}
	require.NoError(t, p.WithTx(ctx, func(tx Tx) error {
		inserted, err := tx.UpsertProgress(ctx, &first)
		require.True(t, inserted)
		return err
	}))
	require.NoError(t, p.WithTx(ctx, func(tx Tx) error {
		inserted, err := tx.UpsertProgress(ctx, &second)
		require.False(t, inserted)
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.StartedAt.Equal(started))
}

func TestPostgresLockRoomSerializesWriters(t *testing.T) {
	ctx := context.Background()
	p := newTestPostgres(t, nil)
	room := insertTestRoom(t, p)

	locked := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- p.WithTx(ctx, func(tx Tx) error {
			if _, err := tx.LockRoom(ctx, room.ID); err != nil {
				return err
			}
			close(locked)
			time.Sleep(200 * time.Millisecond)
			enigma := 1
			return tx.PatchRoom(ctx, room.ID, RoomPatch{CurrentEnigma: &enigma})
		})
	}()

	<-locked
	seen, err := func() (int, error) {
		var current int
		err := p.WithTx(ctx, func(tx Tx) error {
			r, err := tx.LockRoom(ctx, room.ID)
			if err != nil {
				return err
			}
			current = r.CurrentEnigma
			return nil
		})
		return current, err
	}()
	require.NoError(t, <-firstDone)
	require.NoError(t, err)
	assert.Equal(t, 1, seen, "the second lock waits for the first commit")
}

func TestPostgresPublishesAfterCommitAndCascades(t *testing.T) {
	ctx := context.Background()
	feed := NewLocalFeed()
	p := newTestPostgres(t, feed)
	received := make(chan Change, 8)
	room := testRoom()
	sub, err := feed.Subscribe(Filter{Table: TableRooms, RoomID: room.ID}, func(c Change) { received <- c })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	now := time.Now()
	require.NoError(t, p.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		return tx.InsertPlayer(ctx, &db.Player{ID: uuid.NewString(), RoomID: room.ID, Name: "Ada", Color: "#FF69B4", Avatar: "x", JoinedAt: now})
	}))
	select {
	case c := <-received:
		assert.Equal(t, OpInsert, c.Op)
	case <-time.After(time.Second):
		t.Fatal("expected a room insert change")
	}

	require.NoError(t, p.WithTx(ctx, func(tx Tx) error {
		return tx.DeleteRoom(ctx, room.ID)
	}))
	players, err := Read(ctx, p, func(tx Tx) ([]db.Player, error) {
		return tx.PlayersByRoom(ctx, room.ID)
	})
	require.NoError(t, err)
	assert.Empty(t, players)
}
