package battleshipdto

import "time"

type Room struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SeatA      string `json:"seat_a,omitempty"`
	SeatB      string `json:"seat_b,omitempty"`
	Spectators int    `json:"spectators"`
	Occupancy  int    `json:"occupancy"`
	Available  bool   `json:"available"`
}

// Readiness is the state of a room's readiness cycle. MatchID is set once the
// quorum created a match.
type Readiness struct {
	RoomID     string     `json:"room_id"`
	ReadyCount int        `json:"ready_count"`
	Started    bool       `json:"started"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	MatchID    string     `json:"match_id,omitempty"`
}
