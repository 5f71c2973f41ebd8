package battleshipdto

import "time"

type Participant struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Order    int    `json:"order"`
	Outcome  string `json:"outcome,omitempty"`
	Points   int    `json:"points"`
}

// Board is a board as seen by one viewer. ShipCells is only filled for the
// viewer's own board.
type Board struct {
	OwnerID     string          `json:"owner_id"`
	ShipsPlaced bool            `json:"ships_placed"`
	ShipCells   []string        `json:"ship_cells,omitempty"`
	Attacked    map[string]bool `json:"attacked"`
}

type Shot struct {
	Seq        int       `json:"seq"`
	AttackerID string    `json:"attacker_id"`
	DefenderID string    `json:"defender_id"`
	Coordinate string    `json:"coordinate"`
	Hit        bool      `json:"hit"`
	At         time.Time `json:"at"`
}

// Match is the visibility-filtered state of a match. Viewer is empty for the
// spectator view.
type Match struct {
	ID              string        `json:"id"`
	State           string        `json:"state"`
	RoomID          string        `json:"room_id,omitempty"`
	Viewer          string        `json:"viewer,omitempty"`
	CurrentTurn     string        `json:"current_turn,omitempty"`
	WinnerID        string        `json:"winner_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	RematchRequest1 bool          `json:"rematch_request_1"`
	RematchRequest2 bool          `json:"rematch_request_2"`
	RematchDeadline *time.Time    `json:"rematch_deadline,omitempty"`
	NextMatchID     string        `json:"next_match_id,omitempty"`
	Participants    []Participant `json:"participants"`
	Boards          []Board       `json:"boards"`
	LastShot        *Shot         `json:"last_shot,omitempty"`
	ShotCount       int           `json:"shot_count"`
}

// ShotResult is returned by a shot.
type ShotResult struct {
	Hit      bool   `json:"hit"`
	Finished bool   `json:"finished"`
	Match    *Match `json:"match"`
}
