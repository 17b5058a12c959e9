package db

import "time"

const (
	TeamLabo     = "labo"
	TeamOncopole = "oncopole"
)

type Player struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	RoomID    string    `gorm:"size:36;index:idx_players_room_joined,priority:1;not null" json:"room_id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Color     string    `gorm:"size:16;not null" json:"color"`
	Avatar    string    `gorm:"size:16;not null" json:"avatar"`
	IsHost    bool      `gorm:"not null;default:false" json:"is_host"`
	Team      *string   `gorm:"size:16" json:"team"`
	JoinedAt  time.Time `gorm:"not null;index:idx_players_room_joined,priority:2" json:"joined_at"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}
