package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

func TestComputeWinner(t *testing.T) {
	got := Compute(Input{Winner: true, Shots: 3, Hits: 2, OpponentHitCells: 2, OwnIntactCells: 4, StreakBefore: 7})
	want := Breakdown{Base: 100, Accuracy: 33, Ships: 5, Survival: 4, Streak: 25}
	want.Total = want.Base + want.Accuracy + want.Ships + want.Survival + want.Streak
	if got != want {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}
}

func TestComputeLoserIgnoresStreak(t *testing.T) {
	got := Compute(Input{Winner: false, Shots: 0, OwnIntactCells: 0, StreakBefore: 3})
	if got.Base != LossBase || got.Accuracy != 0 || got.Streak != 0 || got.Total != LossBase {
		t.Fatalf("unexpected loser breakdown: %+v", got)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ agg, total, want int }{
		{0, -20, 0},
		{5, -20, -5},
		{50, -20, -20},
		{0, 130, 130},
	}
	for _, c := range cases {
		if got := Clamp(c.agg, c.total); got != c.want {
			t.Fatalf("Clamp(%d,%d) = %d, want %d", c.agg, c.total, got, c.want)
		}
		if c.agg+Clamp(c.agg, c.total) < 0 {
			t.Fatalf("aggregate went negative for %+v", c)
		}
	}
}

func TestForMatchCountsOnlyOwnShots(t *testing.T) {
	own := &domain.Board{ShipCells: []string{"A1", "A2"}, AttackedCells: map[string]bool{"A1": true}}
	opp := &domain.Board{ShipCells: []string{"C1", "C2"}, AttackedCells: map[string]bool{"C1": true, "C2": true, "D4": false}}
	shots := []domain.Shot{
		{AttackerID: "bob", Hit: true},
		{AttackerID: "alice", Hit: true},
		{AttackerID: "bob", Hit: false},
		{AttackerID: "bob", Hit: true},
	}
	in := ForMatch("bob", true, shots, own, opp, 1)
	if in.Shots != 3 || in.Hits != 2 || in.OpponentHitCells != 2 || in.OwnIntactCells != 1 {
		t.Fatalf("unexpected input: %+v", in)
	}
}

func TestWindowFor(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)
	day, err := WindowFor("DIA", now)
	if err != nil || !day.Start.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day window = %v (%v)", day.Start, err)
	}
	week, _ := WindowFor(PeriodWeek, now)
	if !week.Start.Equal(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week window = %v", week.Start)
	}
	all, _ := WindowFor(PeriodAllTime, now)
	if !all.Contains(time.Unix(0, 0)) {
		t.Fatalf("all-time window must contain epoch")
	}
	if _, err := WindowFor("year", now); !errors.Is(err, domain.ErrInvalidPeriod) {
		t.Fatalf("expected invalid period, got %v", err)
	}
}

func TestAggregateOrderAndWindow(t *testing.T) {
	base := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	records := []domain.Score{
		{PlayerID: "old", Total: 500, At: base.Add(-48 * time.Hour)},
		{PlayerID: "bob", Total: 30, At: base.Add(time.Hour)},
		{PlayerID: "alice", Total: 30, At: base.Add(2 * time.Hour)},
		{PlayerID: "carol", Total: 80, At: base.Add(3 * time.Hour)},
		{PlayerID: "bob", Total: -10, At: base.Add(4 * time.Hour)},
		{PlayerID: "alice", Total: -10, At: base.Add(5 * time.Hour)},
	}
	got := Aggregate(records, Window{Period: PeriodDay, Start: base}, 10)
	want := []Entry{{"carol", 80}, {"bob", 20}, {"alice", 20}}
	if len(got) != len(want) {
		t.Fatalf("Aggregate = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if top := Aggregate(records, Window{}, 1); len(top) != 1 || top[0].PlayerID != "old" {
		t.Fatalf("all-time top = %+v", top)
	}
}
