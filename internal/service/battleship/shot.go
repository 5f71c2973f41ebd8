package battleship

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/board"
	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/scoring"
	"github.com/Jair0305/battleship/internal/stats"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

// Shoot fires attackerID's shot at coord on the opponent's board. A hit keeps
// the turn and a miss passes it. Sinking the last ship cell finishes the
// match and scores it in the same transaction.
func (s *Service) Shoot(ctx context.Context, matchID, attackerID, coord string) (*dto.ShotResult, error) {
	attackerID, err := requireID(attackerID, "attacker id")
	if err != nil {
		return nil, err
	}
	var out dto.ShotResult
	err = s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if m.State != domain.MatchInProgress {
			return domain.ErrNotInProgress
		}
		if m.Participation(attackerID) == nil {
			return domain.ErrNotParticipant
		}
		cell := board.Normalize(coord)
		if cell == "" {
			return domain.ErrInvalidCoordinate.Detail("coordinate is required")
		}
		if m.CurrentTurn != attackerID {
			return domain.ErrNotYourTurn
		}
		defenderID := m.Opponent(attackerID)
		def, err := t.Board(defenderID, m.ID)
		if err != nil {
			return err
		}
		if !board.Placed(def) {
			return domain.ErrOpponentNotReady
		}
		now := s.now()
		hit, err := board.Attack(def, cell, now)
		if err != nil {
			return err
		}
		if err := t.SaveBoard(def); err != nil {
			return err
		}

		shots, err := t.Shots(m.ID)
		if err != nil {
			return err
		}
		shots = append(shots, domain.Shot{
			Seq:        len(shots) + 1,
			MatchID:    m.ID,
			AttackerID: attackerID,
			DefenderID: defenderID,
			Coordinate: cell,
			Hit:        hit,
			At:         now,
		})
		if err := t.SaveShots(m.ID, shots); err != nil {
			return err
		}

		atk, err := t.Stats(attackerID)
		if err != nil {
			return err
		}
		stats.RecordShot(atk, hit)
		if !hit {
			m.CurrentTurn = defenderID
		}
		m.UpdatedAt = now

		finished := board.AllSunk(def)
		if finished {
			if err := s.finishWin(t, m, shots, attackerID, atk); err != nil {
				return err
			}
		}
		if err := t.SaveStats(atk); err != nil {
			return err
		}
		if err := t.SaveMatch(m); err != nil {
			return err
		}
		t.out.MatchChanged(m.RoomID, m.ID)

		view, err := buildView(t.Session, m, attackerID)
		if err != nil {
			return err
		}
		out = dto.ShotResult{Hit: hit, Finished: finished, Match: view}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("match_shot", zap.String("match_id", out.Match.ID), zap.String("attacker_id", attackerID), zap.Bool("hit", out.Hit), zap.Bool("finished", out.Finished))
	return &out, nil
}

// finishWin closes m with winnerID as the winner. atk holds the winner's
// statistics and is saved by the caller; everything else is saved here.
func (s *Service) finishWin(t *txn, m *domain.Match, shots []domain.Shot, winnerID string, atk *domain.PlayerStatistics) error {
	loserID := m.Opponent(winnerID)
	def, err := t.Stats(loserID)
	if err != nil {
		return err
	}
	now := s.now()
	streakBefore := atk.Streak
	snap := stats.RecordWin(atk, def, now)

	dl := now.Add(s.cfg.RematchWindow)
	m.State = domain.MatchFinished
	m.EndedAt = &now
	m.WinnerID = winnerID
	m.RematchRequest1, m.RematchRequest2 = false, false
	m.RematchDeadline = &dl
	m.Finish = snap

	for i := range m.Participations {
		p := &m.Participations[i]
		won := p.PlayerID == winnerID
		own, err := t.Board(p.PlayerID, m.ID)
		if err != nil {
			return err
		}
		opp, err := t.Board(m.Opponent(p.PlayerID), m.ID)
		if err != nil {
			return err
		}
		streak := 0
		if won {
			streak = streakBefore
		}
		in := scoring.ForMatch(p.PlayerID, won, shots, own, opp, streak)
		bd := scoring.Compute(in)

		pl, err := t.Player(p.PlayerID)
		if err != nil {
			return err
		}
		bd.Total = scoring.Clamp(pl.Score, bd.Total)
		pl.Score += bd.Total
		if err := t.SavePlayer(pl); err != nil {
			return err
		}
		if err := t.AddScore(&domain.Score{
			MatchID:  m.ID,
			PlayerID: p.PlayerID,
			Base:     bd.Base,
			Accuracy: bd.Accuracy,
			Ships:    bd.Ships,
			Survival: bd.Survival,
			Streak:   bd.Streak,
			Total:    bd.Total,
			At:       now,
		}); err != nil {
			return err
		}

		sunk := in.OpponentHitCells / board.CellsPerShip
		if won {
			p.Outcome = domain.OutcomeWon
			atk.ShipsSunk += sunk
			snap.WinnerSunk = sunk
		} else {
			p.Outcome = domain.OutcomeLost
			def.ShipsSunk += sunk
			snap.LoserSunk = sunk
		}
		p.Points = bd.Total
	}
	if err := t.SaveStats(def); err != nil {
		return err
	}

	t.out.RankingChanged(scoring.Periods...)
	s.archiveAfterCommit(t, m, shots)
	s.logger.Info("match_finished", zap.String("match_id", m.ID), zap.String("winner_id", winnerID), zap.Int("shots", len(shots)))
	return nil
}

// UndoLastShot removes the most recent shot and restores the board,
// statistics and turn it changed. Undoing the winning shot reopens the
// match; the score records of that win stay in place.
func (s *Service) UndoLastShot(ctx context.Context, matchID string) (*dto.Match, error) {
	var out *dto.Match
	err := s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if err := s.checkUndo(t, m); err != nil {
			return err
		}
		if t.reject != nil {
			v, err := buildView(t.Session, m, "")
			out = v
			return err
		}
		shots, err := t.Shots(m.ID)
		if err != nil {
			return err
		}
		if len(shots) == 0 {
			v, err := buildView(t.Session, m, "")
			out = v
			return err
		}
		last := shots[len(shots)-1]
		if m.State == domain.MatchFinished && m.WinnerID != last.AttackerID {
			return domain.ErrUndoNotAllowed.Detail("last shot did not decide the match")
		}
		now := s.now()

		def, err := t.Board(last.DefenderID, m.ID)
		if err != nil {
			return err
		}
		if def != nil {
			board.Unattack(def, last.Coordinate, now)
			if err := t.SaveBoard(def); err != nil {
				return err
			}
		}
		atk, err := t.Stats(last.AttackerID)
		if err != nil {
			return err
		}
		stats.RevertShot(atk, last.Hit)

		if m.State == domain.MatchFinished {
			if err := s.reopen(t, m, atk); err != nil {
				return err
			}
		}
		if err := t.SaveStats(atk); err != nil {
			return err
		}
		if err := t.SaveShots(m.ID, shots[:len(shots)-1]); err != nil {
			return err
		}
		m.CurrentTurn = last.AttackerID
		m.UpdatedAt = now
		if err := t.SaveMatch(m); err != nil {
			return err
		}
		t.out.MatchChanged(m.RoomID, m.ID)
		s.logger.Info("match_undo", zap.String("match_id", m.ID), zap.Int("seq", last.Seq), zap.String("coordinate", last.Coordinate))
		v, err := buildView(t.Session, m, "")
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkUndo rejects undo on matches that cannot be reopened. An expired
// rematch window is applied and committed before rejecting.
func (s *Service) checkUndo(t *txn, m *domain.Match) error {
	switch m.State {
	case domain.MatchCancelled:
		return domain.ErrUndoNotAllowed.Detail("match was cancelled")
	case domain.MatchFinished:
		if m.WinnerID == "" {
			return domain.ErrUndoNotAllowed.Detail("match ended in a draw")
		}
		if m.NextMatchID != "" {
			return domain.ErrUndoNotAllowed.Detail("rematch already started")
		}
		fired, err := s.applyRematchTimeout(t, m)
		if err != nil {
			return err
		}
		if fired || m.RematchDeadline == nil {
			t.reject = domain.ErrUndoNotAllowed.Detail("rematch window closed")
		}
	}
	return nil
}

// reopen reverts the decisive win recorded on m. atk holds the winner's
// statistics and is saved by the caller.
func (s *Service) reopen(t *txn, m *domain.Match, atk *domain.PlayerStatistics) error {
	loserID := m.Opponent(m.WinnerID)
	def, err := t.Stats(loserID)
	if err != nil {
		return err
	}
	stats.RevertWin(atk, def, m.Finish)
	if m.Finish != nil {
		atk.ShipsSunk -= m.Finish.WinnerSunk
		def.ShipsSunk -= m.Finish.LoserSunk
		if atk.ShipsSunk < 0 {
			atk.ShipsSunk = 0
		}
		if def.ShipsSunk < 0 {
			def.ShipsSunk = 0
		}
	}
	if err := t.SaveStats(def); err != nil {
		return err
	}
	m.State = domain.MatchInProgress
	m.EndedAt = nil
	m.WinnerID = ""
	m.RematchRequest1, m.RematchRequest2 = false, false
	m.RematchDeadline = nil
	m.Finish = nil
	for i := range m.Participations {
		m.Participations[i].Outcome = domain.OutcomeNone
		m.Participations[i].Points = 0
	}
	s.unarchiveAfterCommit(t, m.ID)
	return nil
}
