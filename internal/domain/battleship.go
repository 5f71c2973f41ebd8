package domain

import "time"

// MatchState is the lifecycle of a match.
type MatchState string

const (
	MatchCreated    MatchState = "CREATED"
	MatchInProgress MatchState = "IN_PROGRESS"
	MatchFinished   MatchState = "FINISHED"
	MatchCancelled  MatchState = "CANCELLED"
)

// Terminal reports whether no further play is possible.
func (s MatchState) Terminal() bool { return s == MatchFinished || s == MatchCancelled }

// Outcome of a participation. Empty means not decided yet.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
	OutcomeDraw Outcome = "DRAW"
)

// Room is a lobby slot with two seats and a spectator counter.
// Ready flags are kept per seat so a readiness cycle survives restarts.
type Room struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SeatA      string    `json:"seat_a,omitempty"`
	SeatB      string    `json:"seat_b,omitempty"`
	Spectators int       `json:"spectators"`
	Occupancy  int       `json:"occupancy"`
	Available  bool      `json:"available"`
	CreatedAt  time.Time `json:"created_at"`

	ReadyA        bool       `json:"ready_a,omitempty"`
	ReadyB        bool       `json:"ready_b,omitempty"`
	ReadyStarted  bool       `json:"ready_started,omitempty"`
	ReadyDeadline *time.Time `json:"ready_deadline,omitempty"`
}

// Seat returns the player id held by seat 1 or 2.
func (r *Room) Seat(index int) string {
	switch index {
	case 1:
		return r.SeatA
	case 2:
		return r.SeatB
	}
	return ""
}

// SeatOf returns the seat index held by playerID, or 0.
func (r *Room) SeatOf(playerID string) int {
	switch {
	case playerID == "":
		return 0
	case r.SeatA == playerID:
		return 1
	case r.SeatB == playerID:
		return 2
	}
	return 0
}

// ReadyCount is the number of seats that signalled ready.
func (r *Room) ReadyCount() int {
	n := 0
	if r.ReadyA {
		n++
	}
	if r.ReadyB {
		n++
	}
	return n
}

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Board is one player's hidden grid. MatchID is empty for a draft board.
type Board struct {
	OwnerID       string          `json:"owner_id"`
	MatchID       string          `json:"match_id,omitempty"`
	ShipCells     []string        `json:"ship_cells"`
	AttackedCells map[string]bool `json:"attacked_cells"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Participation struct {
	PlayerID string  `json:"player_id"`
	Order    int     `json:"order"`
	Outcome  Outcome `json:"outcome,omitempty"`
	Points   int     `json:"points"`
}

// FinishSnapshot keeps the statistics a decisive win overwrites, so undoing
// the winning shot can restore them.
type FinishSnapshot struct {
	WinnerID         string     `json:"winner_id"`
	LoserID          string     `json:"loser_id"`
	WinnerStreak     int        `json:"winner_streak"`
	WinnerBestStreak int        `json:"winner_best_streak"`
	LoserStreak      int        `json:"loser_streak"`
	WinnerLastPlayed *time.Time `json:"winner_last_played,omitempty"`
	LoserLastPlayed  *time.Time `json:"loser_last_played,omitempty"`
	WinnerSunk       int        `json:"winner_sunk"`
	LoserSunk        int        `json:"loser_sunk"`
}

type Match struct {
	ID              string          `json:"id"`
	State           MatchState      `json:"state"`
	RoomID          string          `json:"room_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	CurrentTurn     string          `json:"current_turn,omitempty"`
	WinnerID        string          `json:"winner_id,omitempty"`
	RematchRequest1 bool            `json:"rematch_request_1,omitempty"`
	RematchRequest2 bool            `json:"rematch_request_2,omitempty"`
	RematchDeadline *time.Time      `json:"rematch_deadline,omitempty"`
	NextMatchID     string          `json:"next_match_id,omitempty"`
	Participations  []Participation `json:"participations"`
	Finish          *FinishSnapshot `json:"finish,omitempty"`
}

// Participation returns the participation of playerID, or nil.
func (m *Match) Participation(playerID string) *Participation {
	for i := range m.Participations {
		if m.Participations[i].PlayerID == playerID {
			return &m.Participations[i]
		}
	}
	return nil
}

// Opponent returns the other participant's id.
func (m *Match) Opponent(playerID string) string {
	for _, p := range m.Participations {
		if p.PlayerID != playerID {
			return p.PlayerID
		}
	}
	return ""
}

// PlayerByOrder returns the participant with the given order tag.
func (m *Match) PlayerByOrder(order int) string {
	for _, p := range m.Participations {
		if p.Order == order {
			return p.PlayerID
		}
	}
	return ""
}

type Shot struct {
	Seq        int       `json:"seq"`
	MatchID    string    `json:"match_id"`
	AttackerID string    `json:"attacker_id"`
	DefenderID string    `json:"defender_id"`
	Coordinate string    `json:"coordinate"`
	Hit        bool      `json:"hit"`
	At         time.Time `json:"at"`
}

type PlayerStatistics struct {
	PlayerID    string     `json:"player_id"`
	GamesPlayed int        `json:"games_played"`
	Wins        int        `json:"wins"`
	Losses      int        `json:"losses"`
	Draws       int        `json:"draws"`
	Hits        int        `json:"hits"`
	Misses      int        `json:"misses"`
	ShipsSunk   int        `json:"ships_sunk"`
	Streak      int        `json:"streak"`
	BestStreak  int        `json:"best_streak"`
	TotalPoints int        `json:"total_points"`
	LastPlayed  *time.Time `json:"last_played,omitempty"`
}

// Accuracy is hits over shots taken, 0 without shots.
func (s *PlayerStatistics) Accuracy() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Score is the ranking breakdown for one player in one match.
type Score struct {
	MatchID  string    `json:"match_id"`
	PlayerID string    `json:"player_id"`
	Base     int       `json:"base"`
	Accuracy int       `json:"accuracy"`
	Ships    int       `json:"ships"`
	Survival int       `json:"survival"`
	Streak   int       `json:"streak"`
	Total    int       `json:"total"`
	At       time.Time `json:"at"`
}
