package battleshipdto

import "time"

// ChatMessage is one message relayed to a room's chat channel.
type ChatMessage struct {
	RoomID   string    `json:"room_id"`
	PlayerID string    `json:"player_id"`
	Sender   string    `json:"sender"`
	Content  string    `json:"content"`
	Type     string    `json:"type"`
	At       time.Time `json:"at"`
}
