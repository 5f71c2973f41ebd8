package battleship

import (
	"github.com/Jair0305/battleship/internal/board"
	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/store"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

func boardView(b *domain.Board, own bool) dto.Board {
	v := dto.Board{
		OwnerID:     b.OwnerID,
		ShipsPlaced: board.Placed(b),
		Attacked:    board.CopyAttacked(b),
	}
	if own {
		v.ShipCells = append([]string{}, b.ShipCells...)
	}
	return v
}

// buildView renders m for viewer. Ship cells are only included for the
// viewer's own board; a viewer that is not a participant gets the spectator
// view.
func buildView(sess *store.Session, m *domain.Match, viewer string) (*dto.Match, error) {
	if m.Participation(viewer) == nil {
		viewer = ""
	}
	v := &dto.Match{
		ID:              m.ID,
		State:           string(m.State),
		RoomID:          m.RoomID,
		Viewer:          viewer,
		WinnerID:        m.WinnerID,
		CreatedAt:       m.CreatedAt,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		RematchRequest1: m.RematchRequest1,
		RematchRequest2: m.RematchRequest2,
		RematchDeadline: m.RematchDeadline,
		NextMatchID:     m.NextMatchID,
		Participants:    make([]dto.Participant, 0, len(m.Participations)),
		Boards:          make([]dto.Board, 0, len(m.Participations)),
	}
	if m.State == domain.MatchInProgress {
		v.CurrentTurn = m.CurrentTurn
	}
	for _, p := range m.Participations {
		part := dto.Participant{
			PlayerID: p.PlayerID,
			Order:    p.Order,
			Outcome:  string(p.Outcome),
			Points:   p.Points,
		}
		if pl, err := sess.Player(p.PlayerID); err == nil {
			part.Name = pl.Name
		} else if domain.KindOf(err) != domain.KindNotFound {
			return nil, err
		}
		v.Participants = append(v.Participants, part)

		b, err := sess.Board(p.PlayerID, m.ID)
		if err != nil {
			return nil, err
		}
		if b == nil {
			b = board.New(p.PlayerID, m.ID, m.CreatedAt)
		}
		v.Boards = append(v.Boards, boardView(b, viewer != "" && viewer == p.PlayerID))
	}
	shots, err := sess.Shots(m.ID)
	if err != nil {
		return nil, err
	}
	v.ShotCount = len(shots)
	if n := len(shots); n > 0 {
		last := shotDTO(shots[n-1])
		v.LastShot = &last
	}
	return v, nil
}

func shotDTO(s domain.Shot) dto.Shot {
	return dto.Shot{
		Seq:        s.Seq,
		AttackerID: s.AttackerID,
		DefenderID: s.DefenderID,
		Coordinate: s.Coordinate,
		Hit:        s.Hit,
		At:         s.At,
	}
}
