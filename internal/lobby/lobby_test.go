package lobby

import (
	"errors"
	"testing"
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

func checkOccupancy(t *testing.T, r *domain.Room) {
	t.Helper()
	want := 0
	if r.SeatA != "" {
		want++
	}
	if r.SeatB != "" {
		want++
	}
	if r.Occupancy != want || r.Available != (want < 2) {
		t.Fatalf("occupancy invariant broken: %+v", r)
	}
}

func TestSeatLifecycle(t *testing.T) {
	r := NewRoom("r1", " Sala 1 ", time.Now())
	if r.Name != "Sala 1" || !r.Available {
		t.Fatalf("unexpected new room %+v", r)
	}
	if changed, err := AssignSeat(r, "alice", 1); err != nil || !changed {
		t.Fatalf("AssignSeat alice: %v %v", changed, err)
	}
	checkOccupancy(t, r)
	if changed, err := AssignSeat(r, "alice", 1); err != nil || changed {
		t.Fatalf("same player must be a no-op: %v %v", changed, err)
	}
	if _, err := AssignSeat(r, "bob", 1); !errors.Is(err, domain.ErrSeatConflict) {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	if _, err := AssignSeat(r, "bob", 2); err != nil {
		t.Fatalf("AssignSeat bob: %v", err)
	}
	checkOccupancy(t, r)
	if r.Available {
		t.Fatalf("full room must not be available")
	}
	if _, err := AssignSeat(r, "carol", 3); !errors.Is(err, domain.ErrInvalidSeat) {
		t.Fatalf("expected invalid seat, got %v", err)
	}
	if _, err := ReleaseSeat(r, 0); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if changed, _ := ReleaseSeat(r, 1); !changed {
		t.Fatalf("ReleaseSeat should report change")
	}
	if changed, _ := ReleaseSeat(r, 1); changed {
		t.Fatalf("releasing an empty seat is a no-op")
	}
	checkOccupancy(t, r)
	if !Leave(r, "bob") || r.SeatB != "" {
		t.Fatalf("Leave did not free bob's seat: %+v", r)
	}
	checkOccupancy(t, r)
}

func TestMovingSeatVacatesPrevious(t *testing.T) {
	r := NewRoom("r1", "x", time.Now())
	_, _ = AssignSeat(r, "alice", 1)
	if _, err := AssignSeat(r, "alice", 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	if r.SeatA != "" || r.SeatB != "alice" || r.Occupancy != 1 {
		t.Fatalf("unexpected seats after move: %+v", r)
	}
}

func TestSpectatorsClampAtZero(t *testing.T) {
	r := NewRoom("r1", "x", time.Now())
	if LeaveSpectator(r) || r.Spectators != 0 {
		t.Fatalf("spectators went negative: %d", r.Spectators)
	}
	EnterSpectator(r)
	EnterSpectator(r)
	LeaveSpectator(r)
	if r.Spectators != 1 {
		t.Fatalf("spectators = %d", r.Spectators)
	}
}

func TestMarkReadyTriggersOnce(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	r := NewRoom("r1", "x", now)
	_, _ = AssignSeat(r, "alice", 1)
	_, _ = AssignSeat(r, "bob", 2)

	if _, err := MarkReady(r, "mallory", now, 0); !errors.Is(err, domain.ErrNotSeated) {
		t.Fatalf("expected not seated, got %v", err)
	}
	st, err := MarkReady(r, "alice", now, 0)
	if err != nil || st.ReadyCount != 1 || st.Triggered || st.Started {
		t.Fatalf("first ready: %+v %v", st, err)
	}
	st, _ = MarkReady(r, "alice", now, 0)
	if st.ReadyCount != 1 {
		t.Fatalf("ready must be idempotent: %+v", st)
	}
	st, _ = MarkReady(r, "bob", now, 0)
	if !st.Triggered || !st.Started || st.Deadline == nil || !st.Deadline.Equal(now.Add(ReadyWindow)) {
		t.Fatalf("quorum not reached: %+v", st)
	}
	st, _ = MarkReady(r, "bob", now, 0)
	if st.Triggered {
		t.Fatalf("quorum triggered twice")
	}

	_, _ = ReleaseSeat(r, 2)
	if st := State(r); st.ReadyCount != 0 || st.Started {
		t.Fatalf("seat change must reset the cycle: %+v", st)
	}
}
