package db

import "time"

const (
	RoomStatusWaiting   = "waiting"
	RoomStatusPlaying   = "playing"
	RoomStatusCompleted = "completed"
)

type Room struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Code          string    `gorm:"size:6;uniqueIndex;not null" json:"code"`
	HostID        *string   `gorm:"size:36" json:"host_id"`
	Status        string    `gorm:"size:16;not null;default:waiting" json:"status"`
	CurrentEnigma int       `gorm:"not null;default:0" json:"current_enigma"`
	MaxPlayers    int       `gorm:"not null;default:4" json:"max_players"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"-"`
}

// StatusRank orders room statuses so callers can reject regressions.
func StatusRank(status string) int {
	switch status {
	case RoomStatusWaiting:
		return 0
	case RoomStatusPlaying:
		return 1
	case RoomStatusCompleted:
		return 2
	default:
		return -1
	}
}
