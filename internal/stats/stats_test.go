package stats

import (
	"reflect"
	"testing"
	"time"
)

func TestShotRoundTrip(t *testing.T) {
	for _, hit := range []bool{true, false} {
		s := New("alice")
		s.Hits, s.Misses, s.TotalPoints = 3, 4, 10
		before := *s
		RecordShot(s, hit)
		if reflect.DeepEqual(before, *s) {
			t.Fatalf("RecordShot(hit=%v) changed nothing", hit)
		}
		RevertShot(s, hit)
		if !reflect.DeepEqual(before, *s) {
			t.Fatalf("RevertShot(hit=%v) = %+v, want %+v", hit, *s, before)
		}
	}
}

func TestWinRoundTripRestoresStreaks(t *testing.T) {
	last := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w := New("bob")
	w.Streak, w.BestStreak, w.Wins, w.GamesPlayed, w.LastPlayed = 2, 4, 5, 9, &last
	l := New("alice")
	l.Streak, l.Losses, l.GamesPlayed = 3, 1, 6
	wBefore, lBefore := *w, *l

	snap := RecordWin(w, l, time.Now())
	if w.Streak != 3 || w.BestStreak != 4 || l.Streak != 0 {
		t.Fatalf("unexpected streaks after win: winner=%d best=%d loser=%d", w.Streak, w.BestStreak, l.Streak)
	}
	if w.TotalPoints != VictoryPoints {
		t.Fatalf("victory bonus not applied: %d", w.TotalPoints)
	}

	RevertWin(w, l, snap)
	if !reflect.DeepEqual(wBefore, *w) {
		t.Fatalf("winner not restored: %+v vs %+v", *w, wBefore)
	}
	if !reflect.DeepEqual(lBefore, *l) {
		t.Fatalf("loser not restored: %+v vs %+v", *l, lBefore)
	}
}

func TestPointsNeverNegative(t *testing.T) {
	s := New("carol")
	RevertShot(s, true)
	if s.TotalPoints != 0 || s.Hits != 0 {
		t.Fatalf("expected clamped counters, got %+v", *s)
	}
}

func TestRecordDraw(t *testing.T) {
	s := New("dave")
	s.Streak = 2
	RecordDraw(s, time.Now())
	if s.Draws != 1 || s.GamesPlayed != 1 || s.Streak != 0 || s.TotalPoints != DrawPoints || s.LastPlayed == nil {
		t.Fatalf("unexpected draw stats: %+v", *s)
	}
}
