package db

import "time"

type EnigmaProgress struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	RoomID       string     `gorm:"size:36;not null;uniqueIndex:idx_enigma_progress_room_number" json:"room_id"`
	EnigmaNumber int        `gorm:"not null;uniqueIndex:idx_enigma_progress_room_number" json:"enigma_number"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	TimeSpent    *int       `json:"time_spent,omitempty"`
}

func (EnigmaProgress) TableName() string {
	return "enigma_progress"
}
