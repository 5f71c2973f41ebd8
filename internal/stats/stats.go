// Package stats maintains running per-player counters. Every Record
// function has a matching Revert so undo restores the previous values.
package stats

import (
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

const (
	HitPoints     = 1
	VictoryPoints = 50
	DrawPoints    = 20
)

// New returns zeroed statistics for a player.
func New(playerID string) *domain.PlayerStatistics {
	return &domain.PlayerStatistics{PlayerID: playerID}
}

func AddPoints(s *domain.PlayerStatistics, pts int) {
	s.TotalPoints += pts
	if s.TotalPoints < 0 {
		s.TotalPoints = 0
	}
}

func RecordShot(s *domain.PlayerStatistics, hit bool) {
	if hit {
		s.Hits++
		AddPoints(s, HitPoints)
		return
	}
	s.Misses++
}

func RevertShot(s *domain.PlayerStatistics, hit bool) {
	if hit {
		s.Hits = floor0(s.Hits - 1)
		AddPoints(s, -HitPoints)
		return
	}
	s.Misses = floor0(s.Misses - 1)
}

// RecordWin applies a decisive result and returns the snapshot needed by
// RevertWin.
func RecordWin(winner, loser *domain.PlayerStatistics, now time.Time) *domain.FinishSnapshot {
	snap := &domain.FinishSnapshot{
		WinnerID:         winner.PlayerID,
		LoserID:          loser.PlayerID,
		WinnerStreak:     winner.Streak,
		WinnerBestStreak: winner.BestStreak,
		LoserStreak:      loser.Streak,
		WinnerLastPlayed: copyTime(winner.LastPlayed),
		LoserLastPlayed:  copyTime(loser.LastPlayed),
	}
	winner.Wins++
	winner.GamesPlayed++
	winner.Streak++
	if winner.Streak > winner.BestStreak {
		winner.BestStreak = winner.Streak
	}
	AddPoints(winner, VictoryPoints)

	loser.Losses++
	loser.GamesPlayed++
	loser.Streak = 0

	ts := now
	winner.LastPlayed = &ts
	loser.LastPlayed = copyTime(&ts)
	return snap
}

func RevertWin(winner, loser *domain.PlayerStatistics, snap *domain.FinishSnapshot) {
	winner.Wins = floor0(winner.Wins - 1)
	winner.GamesPlayed = floor0(winner.GamesPlayed - 1)
	AddPoints(winner, -VictoryPoints)
	loser.Losses = floor0(loser.Losses - 1)
	loser.GamesPlayed = floor0(loser.GamesPlayed - 1)
	if snap == nil {
		winner.Streak = floor0(winner.Streak - 1)
		return
	}
	winner.Streak = snap.WinnerStreak
	winner.BestStreak = snap.WinnerBestStreak
	winner.LastPlayed = copyTime(snap.WinnerLastPlayed)
	loser.Streak = snap.LoserStreak
	loser.LastPlayed = copyTime(snap.LoserLastPlayed)
}

// RecordDraw counts a draw and breaks the current streak.
func RecordDraw(s *domain.PlayerStatistics, now time.Time) {
	s.Draws++
	s.GamesPlayed++
	s.Streak = 0
	AddPoints(s, DrawPoints)
	ts := now
	s.LastPlayed = &ts
}

func floor0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
