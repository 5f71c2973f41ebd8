package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

func finished(winner string) *domain.Match {
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	return &domain.Match{
		ID:        "m1",
		State:     domain.MatchFinished,
		RoomID:    "r1",
		StartedAt: &start,
		EndedAt:   &end,
		WinnerID:  winner,
		Participations: []domain.Participation{
			{PlayerID: "alice", Order: 1, Points: 157},
			{PlayerID: "bob", Order: 2},
		},
	}
}

func TestToRow(t *testing.T) {
	rw, err := toRow(finished("bob"), []domain.Shot{{Seq: 1, AttackerID: "alice", Coordinate: "A1"}})
	if err != nil {
		t.Fatalf("toRow: %v", err)
	}
	if rw.Result != "player2" || rw.Player1 != "alice" || rw.Points1 != 157 || rw.ShotCount != 1 {
		t.Fatalf("unexpected row: %+v", rw)
	}
	if rw.DurationMS != 90000 {
		t.Fatalf("duration = %d", rw.DurationMS)
	}
}

func TestResultOf(t *testing.T) {
	cases := map[string]*domain.Match{
		"player1":   finished("alice"),
		"draw":      finished(""),
		"cancelled": {State: domain.MatchCancelled},
		"open":      {State: domain.MatchInProgress},
	}
	for want, m := range cases {
		if got := resultOf(m); got != want {
			t.Fatalf("resultOf = %q, want %q", got, want)
		}
	}
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	if err := r.Archive(context.Background(), finished("bob"), nil); err != nil {
		t.Fatalf("Archive on nil: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

// TestArchiveRoundTrip runs against a real database when
// ARCHIVE_TEST_DATABASE_URL is set.
func TestArchiveRoundTrip(t *testing.T) {
	url := os.Getenv("ARCHIVE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ARCHIVE_TEST_DATABASE_URL not set")
	}
	r, err := NewRepository(url)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer r.Close()
	ctx := context.Background()
	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := r.Archive(ctx, finished("bob"), nil); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if err := r.Archive(ctx, finished("alice"), nil); err != nil {
		t.Fatalf("Archive upsert: %v", err)
	}
	if err := r.Remove(ctx, "m1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestNewRepositoryRequiresURL(t *testing.T) {
	if _, err := NewRepository(" "); err == nil {
		t.Fatalf("expected error")
	}
}
