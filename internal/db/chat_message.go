package db

import "time"

// ChatMessage is append-only. PlayerName and PlayerColor are copied from the
// sender when the message is written and are not kept in sync afterwards.
type ChatMessage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	RoomID      string    `gorm:"size:36;index:idx_chat_room_created,priority:1;not null" json:"room_id"`
	PlayerID    string    `gorm:"size:36;not null" json:"player_id"`
	PlayerName  string    `gorm:"size:64;not null" json:"player_name"`
	PlayerColor string    `gorm:"size:16;not null" json:"player_color"`
	Message     string    `gorm:"size:500;not null" json:"message"`
	CreatedAt   time.Time `gorm:"not null;index:idx_chat_room_created,priority:2" json:"created_at"`
}
