// Package scoring computes the ranking points of a decided match and
// aggregates score records into leaderboards.
package scoring

import (
	"sort"

	"github.com/Jair0305/battleship/internal/board"
	"github.com/Jair0305/battleship/internal/domain"
)

const (
	WinBase          = 100
	LossBase         = -20
	AccuracyWeight   = 50
	PointsPerSunk    = 5
	PointsPerIntact  = 2
	PointsPerStreak  = 5
	MaxStreakCounted = 5
)

// Input is everything the engine needs for one participation.
type Input struct {
	Winner bool
	Shots  int
	Hits   int
	// OpponentHitCells is the number of opponent ship cells this player hit.
	OpponentHitCells int
	// OwnIntactCells is the number of own ship cells never hit.
	OwnIntactCells int
	// StreakBefore is the player's streak before this match's win is counted.
	StreakBefore int
}

// Breakdown holds the score components. Total may be adjusted by Clamp.
type Breakdown struct {
	Base     int
	Accuracy int
	Ships    int
	Survival int
	Streak   int
	Total    int
}

// Compute applies the point rules to one participation.
func Compute(in Input) Breakdown {
	var b Breakdown
	if in.Winner {
		b.Base = WinBase
	} else {
		b.Base = LossBase
	}
	if in.Shots > 0 {
		b.Accuracy = in.Hits * AccuracyWeight / in.Shots
	}
	b.Ships = (in.OpponentHitCells / board.CellsPerShip) * PointsPerSunk
	b.Survival = (in.OwnIntactCells / board.CellsPerShip) * PointsPerIntact
	if in.Winner {
		streak := in.StreakBefore
		if streak > MaxStreakCounted {
			streak = MaxStreakCounted
		}
		if streak < 0 {
			streak = 0
		}
		b.Streak = streak * PointsPerStreak
	}
	b.Total = b.Base + b.Accuracy + b.Ships + b.Survival + b.Streak
	return b
}

// Clamp adjusts total so that aggregate+total never drops below zero.
func Clamp(aggregate, total int) int {
	if aggregate < 0 {
		aggregate = 0
	}
	if aggregate+total < 0 {
		return -aggregate
	}
	return total
}

// ForMatch builds the engine input of playerID from the match shot log and
// both boards.
func ForMatch(playerID string, winner bool, shots []domain.Shot, own, opponent *domain.Board, streakBefore int) Input {
	in := Input{Winner: winner, StreakBefore: streakBefore}
	for _, s := range shots {
		if s.AttackerID != playerID {
			continue
		}
		in.Shots++
		if s.Hit {
			in.Hits++
		}
	}
	in.OpponentHitCells = board.HitCells(opponent)
	in.OwnIntactCells = board.IntactCells(own)
	return in
}

// Entry is one aggregated leaderboard line.
type Entry struct {
	PlayerID string
	Points   int
}

// Aggregate sums totals per player for records at or after the window start
// and returns the top limit players by points. Ties keep the order in which a
// player first appears in records, so callers pass records sorted by time.
func Aggregate(records []domain.Score, w Window, limit int) []Entry {
	idx := make(map[string]int)
	var out []Entry
	for _, r := range records {
		if !w.Contains(r.At) {
			continue
		}
		i, ok := idx[r.PlayerID]
		if !ok {
			i = len(out)
			idx[r.PlayerID] = i
			out = append(out, Entry{PlayerID: r.PlayerID})
		}
		out[i].Points += r.Total
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
