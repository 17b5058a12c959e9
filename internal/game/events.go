package game

import (
	"context"
	"encoding/json"

	"escape-rose/internal/db"
	"escape-rose/internal/store"

	"gorm.io/datatypes"
)

const (
	eventRoomCreated    = "room_created"
	eventPlayerJoined   = "player_joined"
	eventGameStarted    = "game_started"
	eventEnigmaAdvanced = "enigma_advanced"
	eventGameCompleted  = "game_completed"
	eventTeamsAssigned  = "teams_assigned"
	eventChatSent       = "chat_sent"
	eventRoomUpdated    = "room_updated"
	eventRoomExpired    = "room_expired"
)

type EventPayload struct {
	Code          string         `json:"code,omitempty"`
	PlayerName    string         `json:"player,omitempty"`
	Status        string         `json:"status,omitempty"`
	Enigma        int            `json:"enigma,omitempty"`
	TimeSpent     int            `json:"time_spent,omitempty"`
	Teams         map[string]int `json:"teams,omitempty"`
	PlayerCount   int            `json:"player_count,omitempty"`
	MessageLength int            `json:"message_length,omitempty"`
}

func logEvent(ctx context.Context, tx store.Tx, roomID string, playerID *string, eventType string, payload EventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.InsertEvent(ctx, &db.RoomEvent{
		RoomID:   roomID,
		PlayerID: playerID,
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	})
}
