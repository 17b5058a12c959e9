package game

import "crypto/rand"

var (
	PlayerColors  = []string{"#FF69B4", "#4ECDC4", "#FFD93D", "#A78BFA"}
	PlayerAvatars = []string{"🎭", "🎨", "🎪", "🎬"}
)

const roomCodeLength = 6

// NewRoomCode returns a random uppercase alphanumeric join code.
func NewRoomCode() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

func ColorAt(index int) string {
	if index < 0 {
		index = 0
	}
	return PlayerColors[index%len(PlayerColors)]
}

func AvatarAt(index int) string {
	if index < 0 {
		index = 0
	}
	return PlayerAvatars[index%len(PlayerAvatars)]
}
