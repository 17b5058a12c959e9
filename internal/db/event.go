package db

import (
	"time"

	"gorm.io/datatypes"
)

type RoomEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RoomID    string         `gorm:"size:36;index;not null" json:"room_id"`
	PlayerID  *string        `gorm:"size:36;index" json:"player_id,omitempty"`
	Type      string         `gorm:"size:64;not null" json:"type"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}
