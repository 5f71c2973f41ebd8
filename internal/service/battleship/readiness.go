package battleship

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/lobby"
	"github.com/Jair0305/battleship/internal/store"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

func readinessDTO(r lobby.Readiness, matchID string) dto.Readiness {
	return dto.Readiness{
		RoomID:     r.RoomID,
		ReadyCount: r.ReadyCount,
		Started:    r.Started,
		Deadline:   r.Deadline,
		MatchID:    matchID,
	}
}

// MarkReady flags playerID as ready in the room. The call that completes the
// quorum creates the match from the room's seats; later calls in the same
// cycle only report the state.
func (s *Service) MarkReady(ctx context.Context, roomID, playerID string) (*dto.Readiness, error) {
	roomID, err := requireID(roomID, "room id")
	if err != nil {
		return nil, err
	}
	playerID, err = requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	var out dto.Readiness
	err = s.update(ctx, roomLock(roomID), func(t *txn) error {
		r, err := t.Room(roomID)
		if err != nil {
			return err
		}
		st, err := lobby.MarkReady(r, playerID, s.now(), s.cfg.ReadyWindow)
		if err != nil {
			return err
		}
		var matchID string
		if st.Triggered {
			m, created, err := s.createFromRoom(t, r)
			if err != nil {
				return err
			}
			matchID = m.ID
			if created {
				s.logger.Info("room_quorum_match", zap.String("room_id", r.ID), zap.String("match_id", m.ID), zap.String("first_turn", m.CurrentTurn))
			}
		} else if act, err := activeMatch(t.Session, r.ID); err != nil {
			return err
		} else if act != nil {
			matchID = act.ID
		}
		if err := t.SaveRoom(r); err != nil {
			return err
		}
		out = readinessDTO(st, matchID)
		t.out.Readiness(r.ID, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadinessState reports the room's current readiness cycle.
func (s *Service) ReadinessState(ctx context.Context, roomID string) (*dto.Readiness, error) {
	roomID, err := requireID(roomID, "room id")
	if err != nil {
		return nil, err
	}
	var out dto.Readiness
	err = s.st.View(ctx, func(sess *store.Session) error {
		r, err := sess.Room(roomID)
		if err != nil {
			return err
		}
		var matchID string
		if m, err := activeMatch(sess, roomID); err != nil {
			return err
		} else if m != nil {
			matchID = m.ID
		}
		out = readinessDTO(lobby.State(r), matchID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// activeMatch returns the room's IN_PROGRESS match, or nil.
func activeMatch(sess *store.Session, roomID string) (*domain.Match, error) {
	ids, err := sess.RoomMatchIDs(roomID)
	if err != nil {
		return nil, err
	}
	var found *domain.Match
	for _, id := range ids {
		m, err := sess.Match(id)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				continue
			}
			return nil, err
		}
		if m.State != domain.MatchInProgress {
			continue
		}
		if found == nil || m.CreatedAt.After(found.CreatedAt) {
			found = m
		}
	}
	return found, nil
}
