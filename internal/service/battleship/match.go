package battleship

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/board"
	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/lobby"
	"github.com/Jair0305/battleship/internal/stats"
	"github.com/Jair0305/battleship/internal/store"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

// CreateMatch opens a match hosted by hostID, optionally bound to a room.
// The host moves first once an opponent joins.
func (s *Service) CreateMatch(ctx context.Context, roomID, hostID string) (*dto.Match, error) {
	hostID, err := requireID(hostID, "host id")
	if err != nil {
		return nil, err
	}
	now := s.now()
	m := &domain.Match{
		ID:             s.newID(),
		State:          domain.MatchCreated,
		RoomID:         roomID,
		CreatedAt:      now,
		UpdatedAt:      now,
		CurrentTurn:    hostID,
		Participations: []domain.Participation{{PlayerID: hostID, Order: 1}},
	}
	var out *dto.Match
	err = s.update(ctx, matchLock(m), func(t *txn) error {
		if _, err := t.Player(hostID); err != nil {
			return err
		}
		if roomID != "" {
			if _, err := t.Room(roomID); err != nil {
				return err
			}
		}
		if err := s.consumeDraft(t, hostID, m.ID); err != nil {
			return err
		}
		if err := t.SaveMatch(m); err != nil {
			return err
		}
		if err := t.SaveShots(m.ID, nil); err != nil {
			return err
		}
		t.out.MatchChanged(m.RoomID, m.ID)
		v, err := buildView(t.Session, m, hostID)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("match_create", zap.String("match_id", m.ID), zap.String("room_id", roomID), zap.String("host_id", hostID))
	return out, nil
}

// CreateMatchFromRoom starts a match between the two seat holders with a
// random first mover. An IN_PROGRESS match of the room is returned as is.
func (s *Service) CreateMatchFromRoom(ctx context.Context, roomID string) (*dto.Match, error) {
	roomID, err := requireID(roomID, "room id")
	if err != nil {
		return nil, err
	}
	var out *dto.Match
	err = s.update(ctx, roomLock(roomID), func(t *txn) error {
		r, err := t.Room(roomID)
		if err != nil {
			return err
		}
		m, _, err := s.createFromRoom(t, r)
		if err != nil {
			return err
		}
		v, err := buildView(t.Session, m, "")
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// createFromRoom returns the room's active match or starts a new one.
func (s *Service) createFromRoom(t *txn, r *domain.Room) (*domain.Match, bool, error) {
	if act, err := activeMatch(t.Session, r.ID); err != nil {
		return nil, false, err
	} else if act != nil {
		return act, false, nil
	}
	m, err := s.startMatch(t, r)
	return m, err == nil, err
}

// startMatch creates an IN_PROGRESS match from the room seats.
func (s *Service) startMatch(t *txn, r *domain.Room) (*domain.Match, error) {
	if r.SeatA == "" || r.SeatB == "" {
		return nil, domain.ErrSeatsIncomplete
	}
	first, second := r.SeatA, r.SeatB
	if s.pick(2) == 1 {
		first, second = second, first
	}
	now := s.now()
	started := now
	m := &domain.Match{
		ID:          s.newID(),
		State:       domain.MatchInProgress,
		RoomID:      r.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		StartedAt:   &started,
		CurrentTurn: first,
		Participations: []domain.Participation{
			{PlayerID: first, Order: 1},
			{PlayerID: second, Order: 2},
		},
	}
	for _, p := range []string{first, second} {
		if err := s.consumeDraft(t, p, m.ID); err != nil {
			return nil, err
		}
	}
	if err := t.SaveMatch(m); err != nil {
		return nil, err
	}
	if err := t.SaveShots(m.ID, nil); err != nil {
		return nil, err
	}
	t.out.MatchChanged(m.RoomID, m.ID)
	return m, nil
}

// consumeDraft moves the player's draft board onto the match.
func (s *Service) consumeDraft(t *txn, playerID, matchID string) error {
	draft, err := t.Board(playerID, "")
	if err != nil || draft == nil {
		return err
	}
	b := board.New(playerID, matchID, s.now())
	b.ShipCells = append([]string(nil), draft.ShipCells...)
	if err := t.SaveBoard(b); err != nil {
		return err
	}
	t.DeleteBoard(playerID, "")
	return nil
}

// Join adds playerID as the second participant and starts the match.
func (s *Service) Join(ctx context.Context, matchID, playerID string) (*dto.Match, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	var out *dto.Match
	err = s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if _, err := t.Player(playerID); err != nil {
			return err
		}
		if m.State.Terminal() {
			return domain.ErrMatchTerminal
		}
		if m.Participation(playerID) == nil {
			if len(m.Participations) >= 2 {
				return domain.ErrMatchFull
			}
			if err := s.consumeDraft(t, playerID, m.ID); err != nil {
				return err
			}
			now := s.now()
			m.Participations = append(m.Participations, domain.Participation{PlayerID: playerID, Order: 2})
			m.State = domain.MatchInProgress
			m.StartedAt = &now
			m.CurrentTurn = m.PlayerByOrder(1)
			m.UpdatedAt = now
			if err := t.SaveMatch(m); err != nil {
				return err
			}
			t.out.MatchChanged(m.RoomID, m.ID)
			s.logger.Info("match_join", zap.String("match_id", m.ID), zap.String("player_id", playerID))
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

// RegisterBoard places the participant's ships. Ships can be moved until the
// board takes its first shot.
func (s *Service) RegisterBoard(ctx context.Context, matchID, playerID string, cells []string) (*dto.Match, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	norm, err := board.NormalizeCells(cells)
	if err != nil {
		return nil, err
	}
	if len(norm) == 0 {
		return nil, domain.ErrInvalidArgs.Detail("at least one ship cell is required")
	}
	var out *dto.Match
	err = s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if m.State.Terminal() {
			return domain.ErrMatchTerminal
		}
		if m.Participation(playerID) == nil {
			return domain.ErrNotParticipant
		}
		b, err := t.Board(playerID, m.ID)
		if err != nil {
			return err
		}
		if b == nil {
			b = board.New(playerID, m.ID, s.now())
		}
		if len(b.AttackedCells) > 0 {
			return domain.ErrBoardLocked
		}
		b.ShipCells = norm
		b.UpdatedAt = s.now()
		if err := t.SaveBoard(b); err != nil {
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

// PrepareBoard stores a draft board, consumed when the player next becomes
// a match participant.
func (s *Service) PrepareBoard(ctx context.Context, playerID string, cells []string) (*dto.Board, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	norm, err := board.NormalizeCells(cells)
	if err != nil {
		return nil, err
	}
	if len(norm) == 0 {
		return nil, domain.ErrInvalidArgs.Detail("at least one ship cell is required")
	}
	b := board.New(playerID, "", s.now())
	b.ShipCells = norm
	err = s.update(ctx, "player:"+playerID, func(t *txn) error {
		if _, err := t.Player(playerID); err != nil {
			return err
		}
		return t.SaveBoard(b)
	})
	if err != nil {
		return nil, err
	}
	v := boardView(b, true)
	return &v, nil
}

// Cancel aborts a match that is not over yet. Statistics are untouched.
func (s *Service) Cancel(ctx context.Context, matchID string) (*dto.Match, error) {
	var out *dto.Match
	err := s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if m.State.Terminal() {
			return domain.ErrMatchTerminal
		}
		now := s.now()
		m.State = domain.MatchCancelled
		m.EndedAt = &now
		m.UpdatedAt = now
		m.RematchRequest1, m.RematchRequest2, m.RematchDeadline = false, false, nil
		if err := t.SaveMatch(m); err != nil {
			return err
		}
		if m.RoomID != "" {
			r, err := t.Room(m.RoomID)
			if err != nil {
				return err
			}
			lobby.ResetCycle(r)
			if err := t.SaveRoom(r); err != nil {
				return err
			}
			t.out.Readiness(r.ID, readinessDTO(lobby.State(r), ""))
		}
		t.out.MatchChanged(m.RoomID, m.ID)
		shots, err := t.Shots(m.ID)
		if err != nil {
			return err
		}
		s.archiveAfterCommit(t, m, shots)
		v, err := buildView(t.Session, m, "")
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("match_cancel", zap.String("match_id", out.ID))
	return out, nil
}

// DeclareDraw ends a two-player match as a draw. Both players receive the
// draw bonus; no ranking score is computed.
func (s *Service) DeclareDraw(ctx context.Context, matchID string) (*dto.Match, error) {
	var out *dto.Match
	err := s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if m.State.Terminal() {
			return domain.ErrMatchTerminal
		}
		if len(m.Participations) < 2 {
			return domain.ErrNotInProgress.Detail("a draw needs two players")
		}
		now := s.now()
		dl := now.Add(s.cfg.RematchWindow)
		m.State = domain.MatchFinished
		m.EndedAt = &now
		m.UpdatedAt = now
		m.WinnerID = ""
		m.RematchRequest1, m.RematchRequest2 = false, false
		m.RematchDeadline = &dl
		for i := range m.Participations {
			p := &m.Participations[i]
			p.Outcome = domain.OutcomeDraw
			p.Points = stats.DrawPoints
			st, err := t.Stats(p.PlayerID)
			if err != nil {
				return err
			}
			stats.RecordDraw(st, now)
			if err := t.SaveStats(st); err != nil {
				return err
			}
		}
		if err := t.SaveMatch(m); err != nil {
			return err
		}
		t.out.MatchChanged(m.RoomID, m.ID)
		shots, err := t.Shots(m.ID)
		if err != nil {
			return err
		}
		s.archiveAfterCommit(t, m, shots)
		v, err := buildView(t.Session, m, "")
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("match_draw", zap.String("match_id", out.ID))
	return out, nil
}

// GetMatch returns the stored match record.
func (s *Service) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	matchID, err := requireID(matchID, "match id")
	if err != nil {
		return nil, err
	}
	var out *domain.Match
	err = s.st.View(ctx, func(sess *store.Session) error {
		m, err := sess.Match(matchID)
		out = m
		return err
	})
	return out, err
}

// MatchState returns the match as seen by viewerID after enforcing an expired
// rematch window. Non-participants get the spectator view.
func (s *Service) MatchState(ctx context.Context, matchID, viewerID string) (*dto.Match, error) {
	var out *dto.Match
	err := s.updateMatch(ctx, matchID, func(t *txn, m *domain.Match) error {
		if _, err := s.applyRematchTimeout(t, m); err != nil {
			return err
		}
		v, err := buildView(t.Session, m, viewerID)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveMatchForRoom returns the spectator view of the room's IN_PROGRESS match.
func (s *Service) ActiveMatchForRoom(ctx context.Context, roomID string) (*dto.Match, error) {
	roomID, err := requireID(roomID, "room id")
	if err != nil {
		return nil, err
	}
	var out *dto.Match
	err = s.st.View(ctx, func(sess *store.Session) error {
		if _, err := sess.Room(roomID); err != nil {
			return err
		}
		m, err := activeMatch(sess, roomID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrMatchNotFound.Detail("room %q has no match in progress", roomID)
		}
		v, err := buildView(sess, m, "")
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
