// Package lobby implements the seat and readiness rules of a room. All
// functions mutate the given room in place and recompute its derived
// occupancy; callers persist the result.
package lobby

import (
	"strings"
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

// ReadyWindow is the advisory countdown shown once both players are ready.
const ReadyWindow = 60 * time.Second

// NewRoom returns an empty, available room.
func NewRoom(id, name string, now time.Time) *domain.Room {
	r := &domain.Room{ID: id, Name: strings.TrimSpace(name), CreatedAt: now}
	Recompute(r)
	return r
}

// Recompute refreshes occupancy and availability from the seats.
func Recompute(r *domain.Room) {
	n := 0
	if r.SeatA != "" {
		n++
	}
	if r.SeatB != "" {
		n++
	}
	r.Occupancy = n
	r.Available = n < 2
	if r.Spectators < 0 {
		r.Spectators = 0
	}
}

func validSeat(seat int) error {
	if seat != 1 && seat != 2 {
		return domain.ErrInvalidSeat
	}
	return nil
}

// AssignSeat places playerID on seat. Same player is a no-op; another
// player on the seat is a conflict. A player moving to the other seat
// vacates the previous one. It returns whether the room changed.
func AssignSeat(r *domain.Room, playerID string, seat int) (bool, error) {
	if err := validSeat(seat); err != nil {
		return false, err
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return false, domain.ErrInvalidArgs.Detail("player id is required")
	}
	holder := r.Seat(seat)
	if holder == playerID {
		return false, nil
	}
	if holder != "" {
		return false, domain.ErrSeatConflict.Detail("seat %d is taken", seat)
	}
	if prev := r.SeatOf(playerID); prev != 0 {
		clearSeat(r, prev)
	}
	setSeat(r, seat, playerID)
	resetCycle(r)
	Recompute(r)
	return true, nil
}

// ReleaseSeat empties seat. It returns whether anyone was removed.
func ReleaseSeat(r *domain.Room, seat int) (bool, error) {
	if err := validSeat(seat); err != nil {
		return false, err
	}
	if r.Seat(seat) == "" {
		return false, nil
	}
	clearSeat(r, seat)
	resetCycle(r)
	Recompute(r)
	return true, nil
}

// Leave releases whatever seat playerID holds.
func Leave(r *domain.Room, playerID string) bool {
	seat := r.SeatOf(strings.TrimSpace(playerID))
	if seat == 0 {
		return false
	}
	changed, _ := ReleaseSeat(r, seat)
	return changed
}

func EnterSpectator(r *domain.Room) {
	r.Spectators++
	Recompute(r)
}

// LeaveSpectator decrements the counter, floored at zero.
func LeaveSpectator(r *domain.Room) bool {
	if r.Spectators <= 0 {
		r.Spectators = 0
		return false
	}
	r.Spectators--
	Recompute(r)
	return true
}

// Readiness is the outcome of a MarkReady call.
type Readiness struct {
	RoomID     string     `json:"room_id"`
	ReadyCount int        `json:"ready_count"`
	Started    bool       `json:"started"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	// Triggered is true only for the call that reached the quorum.
	Triggered bool   `json:"-"`
	MatchID   string `json:"match_id,omitempty"`
}

// State reads the current readiness of the room.
func State(r *domain.Room) Readiness {
	return Readiness{RoomID: r.ID, ReadyCount: r.ReadyCount(), Started: r.ReadyStarted, Deadline: r.ReadyDeadline}
}

// MarkReady flags the seat of playerID as ready. The quorum transition fires
// once per cycle: the first call that sees both seats ready while the cycle is
// not started sets the started flag and the advisory deadline now+window
// (ReadyWindow when window is zero).
func MarkReady(r *domain.Room, playerID string, now time.Time, window time.Duration) (Readiness, error) {
	seat := r.SeatOf(strings.TrimSpace(playerID))
	if seat == 0 {
		return Readiness{}, domain.ErrNotSeated
	}
	if seat == 1 {
		r.ReadyA = true
	} else {
		r.ReadyB = true
	}
	out := State(r)
	if !r.ReadyStarted && r.ReadyCount() >= 2 {
		r.ReadyStarted = true
		if window <= 0 {
			window = ReadyWindow
		}
		dl := now.Add(window)
		r.ReadyDeadline = &dl
		out = State(r)
		out.Triggered = true
	}
	return out, nil
}

// ResetCycle clears ready flags so the room can gather a new quorum.
func ResetCycle(r *domain.Room) { resetCycle(r) }

func resetCycle(r *domain.Room) {
	r.ReadyA = false
	r.ReadyB = false
	r.ReadyStarted = false
	r.ReadyDeadline = nil
}

func setSeat(r *domain.Room, seat int, playerID string) {
	if seat == 1 {
		r.SeatA = playerID
	} else {
		r.SeatB = playerID
	}
}

func clearSeat(r *domain.Room, seat int) { setSeat(r, seat, "") }
