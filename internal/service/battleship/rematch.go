package battleship

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/lobby"
	"github.com/Jair0305/battleship/internal/store"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

// RequestRematch sets playerID's rematch flag. When both flags are set a new
// match starts from the same room seats and NextMatchID points at it.
func (s *Service) RequestRematch(ctx context.Context, matchID, playerID string) (*dto.Match, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	var out *dto.Match
	err = s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if fired, err := s.applyRematchTimeout(t, m); err != nil {
			return err
		} else if fired {
			t.reject = domain.ErrRematchExpired
			return nil
		}
		if err := rematchOpen(m); err != nil {
			return err
		}
		p := m.Participation(playerID)
		if p == nil {
			return domain.ErrNotParticipant
		}
		if p.Order == 1 {
			m.RematchRequest1 = true
		} else {
			m.RematchRequest2 = true
		}
		m.UpdatedAt = s.now()
		if m.RematchRequest1 && m.RematchRequest2 {
			if m.RoomID == "" {
				return domain.ErrNoRoom
			}
			r, err := t.Room(m.RoomID)
			if err != nil {
				return err
			}
			next, err := s.startMatch(t, r)
			if err != nil {
				return err
			}
			m.NextMatchID = next.ID
			m.RematchDeadline = nil
			s.logger.Info("match_rematch", zap.String("match_id", m.ID), zap.String("next_match_id", next.ID), zap.String("first_turn", next.CurrentTurn))
		}
		if err := t.SaveMatch(m); err != nil {
			return err
		}
		t.out.MatchChanged(m.RoomID, m.ID)
		v, err := buildView(t.Session, m, playerID)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RejectRematch releases the seat playerID holds in the match's room. The
// window stays open so its timeout still frees the other seat.
func (s *Service) RejectRematch(ctx context.Context, matchID, playerID string) (*dto.Match, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	var out *dto.Match
	err = s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		fired, err := s.applyRematchTimeout(t, m)
		if err != nil {
			return err
		}
		if !fired {
			if err := rematchOpen(m); err != nil {
				return err
			}
			p := m.Participation(playerID)
			if p == nil {
				return domain.ErrNotParticipant
			}
			if p.Order == 1 {
				m.RematchRequest1 = false
			} else {
				m.RematchRequest2 = false
			}
			m.UpdatedAt = s.now()
			if err := t.SaveMatch(m); err != nil {
				return err
			}
			if err := s.releaseSeats(t, m.RoomID, playerID); err != nil {
				return err
			}
			t.out.MatchChanged(m.RoomID, m.ID)
			s.logger.Info("match_rematch_reject", zap.String("match_id", m.ID), zap.String("player_id", playerID))
		}
		v, err := buildView(t.Session, m, playerID)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckRematchTimeout enforces an expired rematch window and reports whether
// it fired. A window fires at most once.
func (s *Service) CheckRematchTimeout(ctx context.Context, matchID string) (bool, error) {
	var fired bool
	err := s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		var err error
		fired, err = s.applyRematchTimeout(t, m)
		return err
	})
	return fired, err
}

// FinishedMatchesAwaitingRematch lists finished matches with an open rematch
// window.
func (s *Service) FinishedMatchesAwaitingRematch(ctx context.Context) ([]string, error) {
	var out []string
	err := s.st.View(ctx, func(sess *store.Session) error {
		ids, err := sess.RematchPending()
		out = ids
		return err
	})
	return out, err
}

func rematchOpen(m *domain.Match) error {
	switch {
	case m.State != domain.MatchFinished:
		return domain.ErrNotFinished
	case m.NextMatchID != "":
		return domain.ErrRematchStarted
	case m.RematchDeadline == nil:
		return domain.ErrRematchExpired
	}
	return nil
}

// applyRematchTimeout frees both seats once the window of a finished match
// has passed and clears the deadline.
func (s *Service) applyRematchTimeout(t *txn, m *domain.Match) (bool, error) {
	if m.State != domain.MatchFinished || m.RematchDeadline == nil || m.NextMatchID != "" {
		return false, nil
	}
	if !s.now().After(*m.RematchDeadline) {
		return false, nil
	}
	m.RematchDeadline = nil
	m.RematchRequest1, m.RematchRequest2 = false, false
	m.UpdatedAt = s.now()
	if err := t.SaveMatch(m); err != nil {
		return false, err
	}
	ids := make([]string, 0, len(m.Participations))
	for _, p := range m.Participations {
		ids = append(ids, p.PlayerID)
	}
	if err := s.releaseSeats(t, m.RoomID, ids...); err != nil {
		return false, err
	}
	t.out.MatchChanged(m.RoomID, m.ID)
	s.logger.Info("match_rematch_timeout", zap.String("match_id", m.ID), zap.String("room_id", m.RoomID))
	return true, nil
}

// releaseSeats vacates the seats the players hold in roomID, if any.
func (s *Service) releaseSeats(t *txn, roomID string, playerIDs ...string) error {
	if roomID == "" {
		return nil
	}
	r, err := t.Room(roomID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil
		}
		return err
	}
	changed := false
	for _, id := range playerIDs {
		if lobby.Leave(r, id) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := t.SaveRoom(r); err != nil {
		return err
	}
	t.out.RoomsChanged()
	t.out.Readiness(r.ID, readinessDTO(lobby.State(r), ""))
	return nil
}
