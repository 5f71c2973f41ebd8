package battleshipdto

import "time"

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Points   int    `json:"points"`
}

type Leaderboard struct {
	Period  string             `json:"period"`
	Since   *time.Time         `json:"since,omitempty"`
	Entries []LeaderboardEntry `json:"entries"`
}

type ScoreBreakdown struct {
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

type PlayerStats struct {
	PlayerID    string     `json:"player_id"`
	Name        string     `json:"name,omitempty"`
	Score       int        `json:"score"`
	GamesPlayed int        `json:"games_played"`
	Wins        int        `json:"wins"`
	Losses      int        `json:"losses"`
	Draws       int        `json:"draws"`
	Hits        int        `json:"hits"`
	Misses      int        `json:"misses"`
	Accuracy    float64    `json:"accuracy"`
	ShipsSunk   int        `json:"ships_sunk"`
	Streak      int        `json:"streak"`
	BestStreak  int        `json:"best_streak"`
	TotalPoints int        `json:"total_points"`
	LastPlayed  *time.Time `json:"last_played,omitempty"`
}
