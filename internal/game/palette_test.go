package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for range 200 {
		code := NewRoomCode()
		assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestPaletteWrapsAround(t *testing.T) {
	assert.Equal(t, "#FF69B4", ColorAt(0))
	assert.Equal(t, "#A78BFA", ColorAt(3))
	assert.Equal(t, "#FF69B4", ColorAt(4))
	assert.Equal(t, "#FF69B4", ColorAt(-1))
	assert.Equal(t, "🎪", AvatarAt(2))
	assert.Equal(t, "🎨", AvatarAt(5))
}

func TestJanitorExpiresWaitingRooms(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo, _ := newTestRepository(t, WithClock(clock.Now))
	created, err := repo.CreateRoom(ctx, "Idle")
	require.NoError(t, err)
	clock.Advance(time.Hour)

	janitor, err := StartJanitor(ctx, repo, 30*time.Minute, 20*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = janitor.Shutdown() })

	assert.Eventually(t, func() bool {
		return repo.GetRoom(ctx, created.Room.ID) == nil
	}, 2*time.Second, 20*time.Millisecond)
}
