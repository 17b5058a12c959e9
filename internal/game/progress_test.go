package game

import (
	"context"
	"testing"
	"time"

	"escape-rose/internal/db"
	"escape-rose/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartGameOpensFirstEnigma(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	host, _ := createAndJoin(t, repo, "A", "B")

	require.NoError(t, repo.StartGame(ctx, host.Room.ID))

	room := repo.GetRoom(ctx, host.Room.ID)
	require.NotNil(t, room)
	assert.Equal(t, db.RoomStatusPlaying, room.Status)
	assert.Equal(t, 1, room.CurrentEnigma)

	progress := repo.GetEnigmaProgress(ctx, host.Room.ID, 1)
	require.NotNil(t, progress)
	assert.Nil(t, progress.CompletedAt)
}

func TestStartGameIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo, _ := newTestRepository(t, WithClock(clock.Now))
	host, _ := createAndJoin(t, repo, "A", "B")

	require.NoError(t, repo.StartGame(ctx, host.Room.ID))
	first := repo.GetEnigmaProgress(ctx, host.Room.ID, 1)
	require.NotNil(t, first)

	clock.Advance(time.Minute)
	require.NoError(t, repo.StartGame(ctx, host.Room.ID))
	second := repo.GetEnigmaProgress(ctx, host.Room.ID, 1)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.StartedAt.Equal(second.StartedAt))
}

func TestStartGameErrors(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	assert.ErrorIs(t, repo.StartGame(ctx, "missing"), ErrRoomNotFound)

	host, _ := createAndJoin(t, repo, "A", "B")
	completed := db.RoomStatusCompleted
	require.NoError(t, repo.UpdateRoom(ctx, host.Room.ID, RoomUpdate{Status: &completed}))
	assert.ErrorIs(t, repo.StartGame(ctx, host.Room.ID), ErrStatusRegression)
}

func TestStartGameAsChecksHostAndCount(t *testing.T) {
	ctx := context.Background()

	t.Run("non host", func(t *testing.T) {
		repo, _ := newTestRepository(t)
		host, joined := createAndJoin(t, repo, "A", "B")
		_, err := repo.StartGameAs(ctx, host.Room.ID, joined[0].Player.ID)
		assert.ErrorIs(t, err, ErrNotHost)
		assert.Equal(t, db.RoomStatusWaiting, repo.GetRoom(ctx, host.Room.ID).Status)
	})

	t.Run("alone", func(t *testing.T) {
		repo, _ := newTestRepository(t)
		host, _ := createAndJoin(t, repo, "A")
		_, err := repo.StartGameAs(ctx, host.Room.ID, host.Player.ID)
		assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	})

	t.Run("already started", func(t *testing.T) {
		repo, _ := newTestRepository(t)
		host, _ := createAndJoin(t, repo, "A", "B")
		_, err := repo.StartGameAs(ctx, host.Room.ID, host.Player.ID)
		require.NoError(t, err)
		_, err = repo.StartGameAs(ctx, host.Room.ID, host.Player.ID)
		assert.ErrorIs(t, err, ErrAlreadyStarted)
	})

	t.Run("host with enough players", func(t *testing.T) {
		repo, _ := newTestRepository(t)
		host, _ := createAndJoin(t, repo, "A", "B", "C")
		room, err := repo.StartGameAs(ctx, host.Room.ID, host.Player.ID)
		require.NoError(t, err)
		assert.Equal(t, db.RoomStatusPlaying, room.Status)
		assert.Equal(t, 1, room.CurrentEnigma)
	})

	t.Run("custom minimum", func(t *testing.T) {
		repo, _ := newTestRepository(t, WithPlayerLimits(3, 4))
		host, _ := createAndJoin(t, repo, "A", "B")
		_, err := repo.StartGameAs(ctx, host.Room.ID, host.Player.ID)
		assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	})
}

func TestAdvanceEnigmaRecordsTimeSpent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo, _ := newTestRepository(t, WithClock(clock.Now))
	host, _ := createAndJoin(t, repo, "A", "B")
	require.NoError(t, repo.StartGame(ctx, host.Room.ID))

	clock.Advance(95*time.Second + 700*time.Millisecond)
	room, err := repo.AdvanceEnigma(ctx, host.Room.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, room.CurrentEnigma)

	done := repo.GetEnigmaProgress(ctx, host.Room.ID, 1)
	require.NotNil(t, done)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.TimeSpent)
	assert.Equal(t, 95, *done.TimeSpent)

	next := repo.GetEnigmaProgress(ctx, host.Room.ID, 2)
	require.NotNil(t, next)
	assert.Nil(t, next.CompletedAt)
	assert.True(t, next.StartedAt.Equal(clock.Now()))
}

func TestAdvanceEnigmaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo, mem := newTestRepository(t, WithClock(clock.Now))
	host, _ := createAndJoin(t, repo, "A", "B")
	require.NoError(t, repo.StartGame(ctx, host.Room.ID))

	clock.Advance(10 * time.Second)
	_, err := repo.AdvanceEnigma(ctx, host.Room.ID, 1)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	room, err := repo.AdvanceEnigma(ctx, host.Room.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, room.CurrentEnigma)

	first := repo.GetEnigmaProgress(ctx, host.Room.ID, 1)
	require.NotNil(t, first.TimeSpent)
	assert.Equal(t, 10, *first.TimeSpent)

	rows, err := store.Read(ctx, mem, func(tx store.Tx) (*db.EnigmaProgress, error) {
		return tx.ProgressByNumber(ctx, host.Room.ID, 3)
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Nil(t, rows)

	advanced := 0
	for _, event := range mem.Events(host.Room.ID) {
		if event.Type == eventEnigmaAdvanced {
			advanced++
		}
	}
	assert.Equal(t, 1, advanced)
}

func TestAdvancePastLastEnigmaCompletesRoom(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo, _ := newTestRepository(t, WithClock(clock.Now))
	host, _ := createAndJoin(t, repo, "A", "B")
	require.NoError(t, repo.StartGame(ctx, host.Room.ID))

	for n := FirstEnigma; n <= LastEnigma; n++ {
		clock.Advance(time.Duration(n) * time.Minute)
		_, err := repo.AdvanceEnigma(ctx, host.Room.ID, n)
		require.NoError(t, err)
	}

	room := repo.GetRoom(ctx, host.Room.ID)
	assert.Equal(t, db.RoomStatusCompleted, room.Status)
	assert.Equal(t, 5, room.CurrentEnigma)
	assert.Nil(t, repo.GetEnigmaProgress(ctx, host.Room.ID, 5))

	for n := FirstEnigma; n <= LastEnigma; n++ {
		progress := repo.GetEnigmaProgress(ctx, host.Room.ID, n)
		require.NotNil(t, progress, "enigma %d", n)
		require.NotNil(t, progress.TimeSpent, "enigma %d", n)
		assert.Equal(t, n*60, *progress.TimeSpent)
	}

	_, err := repo.AdvanceEnigma(ctx, host.Room.ID, LastEnigma)
	require.NoError(t, err)
	assert.Equal(t, db.RoomStatusCompleted, repo.GetRoom(ctx, host.Room.ID).Status)
}

func TestAdvanceEnigmaRequiresPlaying(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	host, _ := createAndJoin(t, repo, "A", "B")

	one := 1
	require.NoError(t, repo.UpdateRoom(ctx, host.Room.ID, RoomUpdate{CurrentEnigma: &one}))
	_, err := repo.AdvanceEnigma(ctx, host.Room.ID, 1)
	assert.ErrorIs(t, err, ErrNotPlaying)

	_, err = repo.AdvanceEnigma(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAssignTeamsSplitsByJoinOrder(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		players  []string
		labo     int
		oncopole int
	}{
		{[]string{"A"}, 1, 0},
		{[]string{"A", "B"}, 1, 1},
		{[]string{"A", "B", "C"}, 2, 1},
		{[]string{"A", "B", "C", "D"}, 2, 2},
	}
	for _, tc := range cases {
		repo, _ := newTestRepository(t)
		host, _ := createAndJoin(t, repo, tc.players...)

		players, err := repo.AssignTeams(ctx, host.Room.ID)
		require.NoError(t, err)
		require.Len(t, players, len(tc.players))

		stored := repo.GetPlayers(ctx, host.Room.ID)
		labo, oncopole := 0, 0
		for i, p := range stored {
			require.NotNil(t, p.Team)
			if i < tc.labo {
				assert.Equal(t, db.TeamLabo, *p.Team, "player %d of %d", i, len(tc.players))
			} else {
				assert.Equal(t, db.TeamOncopole, *p.Team, "player %d of %d", i, len(tc.players))
			}
			switch *p.Team {
			case db.TeamLabo:
				labo++
			case db.TeamOncopole:
				oncopole++
			}
		}
		assert.Equal(t, tc.labo, labo)
		assert.Equal(t, tc.oncopole, oncopole)
	}
}

func TestExpireWaitingRooms(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo, _ := newTestRepository(t, WithClock(clock.Now))

	stale, err := repo.CreateRoom(ctx, "Old")
	require.NoError(t, err)
	started, _ := createAndJoin(t, repo, "A", "B")
	require.NoError(t, repo.StartGame(ctx, started.Room.ID))

	clock.Advance(2 * time.Hour)
	fresh, err := repo.CreateRoom(ctx, "New")
	require.NoError(t, err)

	removed, err := repo.ExpireWaitingRooms(ctx, clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Nil(t, repo.GetRoom(ctx, stale.Room.ID))
	assert.NotNil(t, repo.GetRoom(ctx, started.Room.ID))
	assert.NotNil(t, repo.GetRoom(ctx, fresh.Room.ID))
}

func TestElapsedSecondsFloorsAndClamps(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, elapsedSeconds(start, start.Add(999*time.Millisecond)))
	assert.Equal(t, 61, elapsedSeconds(start, start.Add(61500*time.Millisecond)))
	assert.Equal(t, 0, elapsedSeconds(start, start.Add(-time.Second)))
}
