package battleship

import (
	"context"

	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/scoring"
	"github.com/Jair0305/battleship/internal/store"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

// Leaderboard sums score totals inside the period window and returns the top
// players.
func (s *Service) Leaderboard(ctx context.Context, period string) (*dto.Leaderboard, error) {
	w, err := scoring.WindowFor(period, s.now())
	if err != nil {
		return nil, err
	}
	out := &dto.Leaderboard{Period: w.Period, Entries: []dto.LeaderboardEntry{}}
	if !w.Start.IsZero() {
		since := w.Start
		out.Since = &since
	}
	err = s.st.View(ctx, func(sess *store.Session) error {
		records, err := sess.ScoresSince(w.Start)
		if err != nil {
			return err
		}
		for i, e := range scoring.Aggregate(records, w, s.cfg.LeaderboardSize) {
			entry := dto.LeaderboardEntry{Rank: i + 1, PlayerID: e.PlayerID, Points: e.Points}
			if p, err := sess.Player(e.PlayerID); err == nil {
				entry.Name = p.Name
			} else if domain.KindOf(err) != domain.KindNotFound {
				return err
			}
			out.Entries = append(out.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScoreBreakdown returns the score record of playerID in matchID.
func (s *Service) ScoreBreakdown(ctx context.Context, matchID, playerID string) (*dto.ScoreBreakdown, error) {
	matchID, err := requireID(matchID, "match id")
	if err != nil {
		return nil, err
	}
	playerID, err = requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	var out dto.ScoreBreakdown
	err = s.st.View(ctx, func(sess *store.Session) error {
		sc, err := sess.Score(matchID, playerID)
		if err != nil {
			return err
		}
		out = dto.ScoreBreakdown{
			MatchID:  sc.MatchID,
			PlayerID: sc.PlayerID,
			Base:     sc.Base,
			Accuracy: sc.Accuracy,
			Ships:    sc.Ships,
			Survival: sc.Survival,
			Streak:   sc.Streak,
			Total:    sc.Total,
			At:       sc.At,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) PlayerStats(ctx context.Context, playerID string) (*dto.PlayerStats, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	var out dto.PlayerStats
	err = s.st.View(ctx, func(sess *store.Session) error {
		p, err := sess.Player(playerID)
		if err != nil {
			return err
		}
		st, err := sess.Stats(playerID)
		if err != nil {
			return err
		}
		out = dto.PlayerStats{
			PlayerID:    p.ID,
			Name:        p.Name,
			Score:       p.Score,
			GamesPlayed: st.GamesPlayed,
			Wins:        st.Wins,
			Losses:      st.Losses,
			Draws:       st.Draws,
			Hits:        st.Hits,
			Misses:      st.Misses,
			Accuracy:    st.Accuracy(),
			ShipsSunk:   st.ShipsSunk,
			Streak:      st.Streak,
			BestStreak:  st.BestStreak,
			TotalPoints: st.TotalPoints,
			LastPlayed:  st.LastPlayed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
