package battleship

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/lobby"
	"github.com/Jair0305/battleship/internal/store"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

func roomDTO(r *domain.Room) dto.Room {
	return dto.Room{
		ID:         r.ID,
		Name:       r.Name,
		SeatA:      r.SeatA,
		SeatB:      r.SeatB,
		Spectators: r.Spectators,
		Occupancy:  r.Occupancy,
		Available:  r.Available,
	}
}

// RegisterPlayer creates the player or updates its display name.
func (s *Service) RegisterPlayer(ctx context.Context, playerID, name string) (*domain.Player, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = playerID
	}
	var out *domain.Player
	err = s.update(ctx, "player:"+playerID, func(t *txn) error {
		p, err := t.Player(playerID)
		if err != nil {
			if domain.KindOf(err) != domain.KindNotFound {
				return err
			}
			p = &domain.Player{ID: playerID, CreatedAt: s.now()}
		}
		p.Name = name
		out = p
		return t.SavePlayer(p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRoom adds an empty room.
func (s *Service) CreateRoom(ctx context.Context, name string) (*dto.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidArgs.Detail("room name is required")
	}
	r := lobby.NewRoom(s.newID(), name, s.now())
	err := s.update(ctx, roomLock(r.ID), func(t *txn) error {
		if err := t.SaveRoom(r); err != nil {
			return err
		}
		t.out.RoomsChanged()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("room_create", zap.String("room_id", r.ID), zap.String("name", r.Name))
	v := roomDTO(r)
	return &v, nil
}

// EnsureRooms creates rooms for names not present yet. Used for seeding.
func (s *Service) EnsureRooms(ctx context.Context, names []string) error {
	existing := map[string]bool{}
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		existing[r.Name] = true
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || existing[n] {
			continue
		}
		if _, err := s.CreateRoom(ctx, n); err != nil {
			return err
		}
		existing[n] = true
	}
	return nil
}

func (s *Service) ListRooms(ctx context.Context) ([]dto.Room, error) {
	var out []dto.Room
	err := s.st.View(ctx, func(sess *store.Session) error {
		rooms, err := sess.Rooms()
		if err != nil {
			return err
		}
		out = make([]dto.Room, 0, len(rooms))
		for _, r := range rooms {
			out = append(out, roomDTO(r))
		}
		return nil
	})
	return out, err
}

func (s *Service) ListAvailableRooms(ctx context.Context) ([]dto.Room, error) {
	all, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Room, 0, len(all))
	for _, r := range all {
		if r.Available {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (*dto.Room, error) {
	roomID, err := requireID(roomID, "room id")
	if err != nil {
		return nil, err
	}
	var out dto.Room
	err = s.st.View(ctx, func(sess *store.Session) error {
		r, err := sess.Room(roomID)
		if err != nil {
			return err
		}
		out = roomDTO(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// mutateRoom loads the room under its lock, applies fn and saves the room
// when fn reports a change.
func (s *Service) mutateRoom(ctx context.Context, roomID string, fn func(t *txn, r *domain.Room) (bool, error)) (*dto.Room, error) {
	roomID, err := requireID(roomID, "room id")
	if err != nil {
		return nil, err
	}
	var out dto.Room
	err = s.update(ctx, roomLock(roomID), func(t *txn) error {
		r, err := t.Room(roomID)
		if err != nil {
			return err
		}
		hadReady := r.ReadyCount() > 0 || r.ReadyStarted
		changed, err := fn(t, r)
		if err != nil {
			return err
		}
		if changed {
			if err := t.SaveRoom(r); err != nil {
				return err
			}
			t.out.RoomsChanged()
			if hadReady && r.ReadyCount() == 0 && !r.ReadyStarted {
				t.out.Readiness(r.ID, readinessDTO(lobby.State(r), ""))
			}
		}
		out = roomDTO(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignSeat seats a registered player. Claiming a seat held by someone else
// fails with a seat conflict; claiming one's own seat is a no-op.
func (s *Service) AssignSeat(ctx context.Context, roomID, playerID string, seat int) (*dto.Room, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	return s.mutateRoom(ctx, roomID, func(t *txn, r *domain.Room) (bool, error) {
		if _, err := t.Player(playerID); err != nil {
			return false, err
		}
		changed, err := lobby.AssignSeat(r, playerID, seat)
		if err == nil && changed {
			s.logger.Info("room_seat_assign", zap.String("room_id", r.ID), zap.String("player_id", playerID), zap.Int("seat", seat))
		}
		return changed, err
	})
}

// ReleaseSeat empties a seat; releasing an empty seat is a no-op.
func (s *Service) ReleaseSeat(ctx context.Context, roomID string, seat int) (*dto.Room, error) {
	return s.mutateRoom(ctx, roomID, func(_ *txn, r *domain.Room) (bool, error) {
		return lobby.ReleaseSeat(r, seat)
	})
}

// LeaveRoom releases whichever seat playerID holds in the room.
func (s *Service) LeaveRoom(ctx context.Context, roomID, playerID string) (*dto.Room, error) {
	playerID, err := requireID(playerID, "player id")
	if err != nil {
		return nil, err
	}
	return s.mutateRoom(ctx, roomID, func(_ *txn, r *domain.Room) (bool, error) {
		return lobby.Leave(r, playerID), nil
	})
}

func (s *Service) EnterSpectator(ctx context.Context, roomID string) (*dto.Room, error) {
	return s.mutateRoom(ctx, roomID, func(_ *txn, r *domain.Room) (bool, error) {
		lobby.EnterSpectator(r)
		return true, nil
	})
}

func (s *Service) LeaveSpectator(ctx context.Context, roomID string) (*dto.Room, error) {
	return s.mutateRoom(ctx, roomID, func(_ *txn, r *domain.Room) (bool, error) {
		return lobby.LeaveSpectator(r), nil
	})
}
