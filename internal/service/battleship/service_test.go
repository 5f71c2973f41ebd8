package battleship

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/events"
	"github.com/Jair0305/battleship/internal/store"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *Service
	rec   *events.Recorder
	clock *testClock
	room  string
}

func newFixture(t *testing.T, kv store.KV) *fixture {
	t.Helper()
	if kv == nil {
		kv = store.NewMemory()
	}
	st := store.New(kv)
	t.Cleanup(func() { st.Close() })
	var (
		mu  sync.Mutex
		seq int
	)
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	f := &fixture{
		rec:   &events.Recorder{},
		clock: &testClock{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = New(st,
		WithSink(f.rec),
		WithClock(f.clock.Now),
		WithRandom(func(int) int { return 0 }),
		WithIDs(ids),
	)
	ctx := context.Background()
	for _, p := range []string{"alice", "bob"} {
		if _, err := f.svc.RegisterPlayer(ctx, p, p); err != nil {
			t.Fatalf("RegisterPlayer %s: %v", p, err)
		}
	}
	r, err := f.svc.CreateRoom(ctx, "Sala 1")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	f.room = r.ID
	return f
}

// seatAndStart seats alice and bob and marks both ready. With the fixed pick,
// alice (seat 1) moves first.
func (f *fixture) seatAndStart(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.AssignSeat(ctx, f.room, "alice", 1); err != nil {
		t.Fatalf("AssignSeat alice: %v", err)
	}
	if _, err := f.svc.AssignSeat(ctx, f.room, "bob", 2); err != nil {
		t.Fatalf("AssignSeat bob: %v", err)
	}
	if _, err := f.svc.MarkReady(ctx, f.room, "alice"); err != nil {
		t.Fatalf("MarkReady alice: %v", err)
	}
	st, err := f.svc.MarkReady(ctx, f.room, "bob")
	if err != nil {
		t.Fatalf("MarkReady bob: %v", err)
	}
	if st.MatchID == "" {
		t.Fatalf("quorum did not create a match: %+v", st)
	}
	return st.MatchID
}

func (f *fixture) boards(t *testing.T, matchID string, alice, bob []string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.RegisterBoard(ctx, matchID, "alice", alice); err != nil {
		t.Fatalf("RegisterBoard alice: %v", err)
	}
	if _, err := f.svc.RegisterBoard(ctx, matchID, "bob", bob); err != nil {
		t.Fatalf("RegisterBoard bob: %v", err)
	}
}

func (f *fixture) stats(t *testing.T, playerID string) dto.PlayerStats {
	t.Helper()
	st, err := f.svc.PlayerStats(context.Background(), playerID)
	if err != nil {
		t.Fatalf("PlayerStats %s: %v", playerID, err)
	}
	return *st
}

func attacked(v *dto.Match, owner string) map[string]bool {
	for _, b := range v.Boards {
		if b.OwnerID == owner {
			return b.Attacked
		}
	}
	return nil
}

func TestScenarioQuorumCreatesOneMatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)

	m, err := f.svc.GetMatch(ctx, matchID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if m.State != domain.MatchInProgress || len(m.Participations) != 2 {
		t.Fatalf("unexpected match: %+v", m)
	}
	if m.CurrentTurn != "alice" && m.CurrentTurn != "bob" {
		t.Fatalf("turn holder %q is not a participant", m.CurrentTurn)
	}

	// a repeated ready in the same cycle must not create another match
	st, err := f.svc.MarkReady(ctx, f.room, "alice")
	if err != nil {
		t.Fatalf("MarkReady again: %v", err)
	}
	if st.MatchID != matchID || !st.Started || st.ReadyCount != 2 {
		t.Fatalf("unexpected readiness: %+v", st)
	}
	active, err := f.svc.ActiveMatchForRoom(ctx, f.room)
	if err != nil || active.ID != matchID {
		t.Fatalf("ActiveMatchForRoom: %v %+v", err, active)
	}
}

func TestScenarioQuorumOnRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	kv, err := store.OpenRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), "test:")
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	f := newFixture(t, kv)
	matchID := f.seatAndStart(t)
	v, err := f.svc.MatchState(context.Background(), matchID, "alice")
	if err != nil {
		t.Fatalf("MatchState: %v", err)
	}
	if v.State != string(domain.MatchInProgress) || v.CurrentTurn != "alice" {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestConcurrentMarkReadyCreatesExactlyOneMatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.AssignSeat(ctx, f.room, "alice", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AssignSeat(ctx, f.room, "bob", 2); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for _, p := range []string{"alice", "bob", "alice", "bob"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			if _, err := f.svc.MarkReady(ctx, f.room, p); err != nil {
				t.Errorf("MarkReady %s: %v", p, err)
			}
		}(p)
	}
	wg.Wait()

	created := map[string]bool{}
	for _, ev := range f.rec.OfType(events.TypeMatchChanged) {
		created[ev.Subject] = true
	}
	if len(created) != 1 {
		t.Fatalf("expected one match, got %v", created)
	}
}

func TestConcurrentSeatClaimsOneWinner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, p := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := f.svc.AssignSeat(ctx, f.room, p, 1)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	conflicts := 0
	for _, err := range errs {
		if errors.Is(err, domain.ErrSeatConflict) {
			conflicts++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if conflicts != 1 {
		t.Fatalf("expected exactly one seat conflict, got %d", conflicts)
	}
	r, err := f.svc.GetRoom(ctx, f.room)
	if err != nil {
		t.Fatal(err)
	}
	if r.Occupancy != 1 || !r.Available {
		t.Fatalf("occupancy invariant broken: %+v", r)
	}
}

func TestScenarioWinScoresBothPlayers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.pick = func(int) int { return 1 } // bob first
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1", "A2"}, []string{"C3", "C4"})

	res, err := f.svc.Shoot(ctx, matchID, "bob", "a1")
	if err != nil {
		t.Fatalf("Shoot A1: %v", err)
	}
	if !res.Hit || res.Finished || res.Match.CurrentTurn != "bob" {
		t.Fatalf("hit should keep the turn: %+v", res.Match)
	}
	res, err = f.svc.Shoot(ctx, matchID, "bob", "A2")
	if err != nil {
		t.Fatalf("Shoot A2: %v", err)
	}
	if !res.Finished || res.Match.WinnerID != "bob" || res.Match.State != string(domain.MatchFinished) {
		t.Fatalf("expected bob to win: %+v", res.Match)
	}
	if res.Match.RematchDeadline == nil {
		t.Fatalf("rematch deadline not set")
	}

	win, err := f.svc.ScoreBreakdown(ctx, matchID, "bob")
	if err != nil {
		t.Fatalf("ScoreBreakdown bob: %v", err)
	}
	// base 100, accuracy 50, one sunk ship 5, one intact ship 2
	if win.Total != 157 {
		t.Fatalf("unexpected winner score: %+v", win)
	}
	lose, err := f.svc.ScoreBreakdown(ctx, matchID, "alice")
	if err != nil {
		t.Fatalf("ScoreBreakdown alice: %v", err)
	}
	if lose.Total != 0 {
		t.Fatalf("loser aggregate must clamp at zero, got %+v", lose)
	}

	bob := f.stats(t, "bob")
	if bob.Streak != 1 || bob.Wins != 1 || bob.Hits != 2 || bob.TotalPoints != 52 || bob.Score != 157 {
		t.Fatalf("unexpected bob stats: %+v", bob)
	}
	alice := f.stats(t, "alice")
	if alice.Losses != 1 || alice.Score < 0 {
		t.Fatalf("unexpected alice stats: %+v", alice)
	}

	lb, err := f.svc.Leaderboard(ctx, "historico")
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(lb.Entries) == 0 || lb.Entries[0].PlayerID != "bob" || lb.Entries[0].Name != "bob" {
		t.Fatalf("unexpected leaderboard: %+v", lb)
	}
	if n := len(f.rec.OfType(events.TypeRankingChanged)); n != 4 {
		t.Fatalf("expected one ranking event per window, got %d", n)
	}
}

func TestScenarioMissUndoReturnsTurn(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1", "A2"}, []string{"C3", "C4"})
	before := f.stats(t, "alice")

	res, err := f.svc.Shoot(ctx, matchID, "alice", "B7")
	if err != nil {
		t.Fatalf("Shoot: %v", err)
	}
	if res.Hit || res.Match.CurrentTurn != "bob" {
		t.Fatalf("miss should pass the turn: %+v", res.Match)
	}
	v, err := f.svc.UndoLastShot(ctx, matchID)
	if err != nil {
		t.Fatalf("UndoLastShot: %v", err)
	}
	if v.CurrentTurn != "alice" {
		t.Fatalf("turn should return to alice, got %q", v.CurrentTurn)
	}
	if _, ok := attacked(v, "bob")["B7"]; ok {
		t.Fatalf("B7 still attacked")
	}
	if after := f.stats(t, "alice"); after != before {
		t.Fatalf("stats not restored: before %+v after %+v", before, after)
	}
}

func TestUndoHitReturnsTurnToAttacker(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1", "A2"}, []string{"C3", "C4"})

	if _, err := f.svc.Shoot(ctx, matchID, "alice", "B1"); err != nil {
		t.Fatal(err)
	}
	before := f.stats(t, "bob")
	if _, err := f.svc.Shoot(ctx, matchID, "bob", "A1"); err != nil {
		t.Fatal(err)
	}
	v, err := f.svc.UndoLastShot(ctx, matchID)
	if err != nil {
		t.Fatalf("UndoLastShot: %v", err)
	}
	if v.CurrentTurn != "bob" || v.ShotCount != 1 {
		t.Fatalf("unexpected view after undo: %+v", v)
	}
	if after := f.stats(t, "bob"); after != before {
		t.Fatalf("stats not restored: before %+v after %+v", before, after)
	}
}

func TestUndoWinningShotReopensMatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1", "A2"}, []string{"C3", "C4"})

	if _, err := f.svc.Shoot(ctx, matchID, "alice", "C3"); err != nil {
		t.Fatal(err)
	}
	aliceBefore := f.stats(t, "alice")
	bobBefore := f.stats(t, "bob")
	res, err := f.svc.Shoot(ctx, matchID, "alice", "C4")
	if err != nil || !res.Finished {
		t.Fatalf("winning shot: %v %+v", err, res)
	}

	v, err := f.svc.UndoLastShot(ctx, matchID)
	if err != nil {
		t.Fatalf("UndoLastShot: %v", err)
	}
	if v.State != string(domain.MatchInProgress) || v.WinnerID != "" || v.EndedAt != nil || v.RematchDeadline != nil {
		t.Fatalf("match not reopened: %+v", v)
	}
	if v.CurrentTurn != "alice" {
		t.Fatalf("turn should be alice, got %q", v.CurrentTurn)
	}
	for _, p := range v.Participants {
		if p.Outcome != "" {
			t.Fatalf("outcome not cleared: %+v", p)
		}
	}
	a, b := f.stats(t, "alice"), f.stats(t, "bob")
	// ranking aggregate is deliberately not reversed
	a.Score, b.Score = aliceBefore.Score, bobBefore.Score
	if a != aliceBefore || b != bobBefore {
		t.Fatalf("stats not restored:\nalice %+v / %+v\nbob %+v / %+v", aliceBefore, a, bobBefore, b)
	}
	pending, err := f.svc.FinishedMatchesAwaitingRematch(ctx)
	if err != nil || len(pending) != 0 {
		t.Fatalf("reopened match still pending: %v %v", pending, err)
	}
}

func TestShootRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)

	if _, err := f.svc.Shoot(ctx, matchID, "alice", "A1"); !errors.Is(err, domain.ErrOpponentNotReady) {
		t.Fatalf("expected opponent not ready, got %v", err)
	}
	f.boards(t, matchID, []string{"A1", "A2"}, []string{"C3", "C4"})
	if _, err := f.svc.Shoot(ctx, matchID, "bob", "A1"); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("expected not your turn, got %v", err)
	}
	if _, err := f.svc.Shoot(ctx, matchID, "carol", "A1"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected not participant, got %v", err)
	}
	if _, err := f.svc.Shoot(ctx, matchID, "alice", "C3"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Shoot(ctx, matchID, "alice", "c3 "); !errors.Is(err, domain.ErrAlreadyTargeted) {
		t.Fatalf("expected already targeted, got %v", err)
	}
	if _, err := f.svc.RegisterBoard(ctx, matchID, "bob", []string{"D1"}); !errors.Is(err, domain.ErrBoardLocked) {
		t.Fatalf("expected board locked, got %v", err)
	}
	v, err := f.svc.MatchState(ctx, matchID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if v.CurrentTurn != "alice" || v.ShotCount != 1 {
		t.Fatalf("rejected shots changed state: %+v", v)
	}
}

func TestMatchStateVisibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1", "A2"}, []string{"C3", "C4"})

	own, err := f.svc.MatchState(ctx, matchID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range own.Boards {
		if b.OwnerID == "alice" && len(b.ShipCells) != 2 {
			t.Fatalf("own ships hidden: %+v", b)
		}
		if b.OwnerID == "bob" && len(b.ShipCells) != 0 {
			t.Fatalf("opponent ships leaked: %+v", b)
		}
	}
	watcher, err := f.svc.MatchState(ctx, matchID, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range watcher.Boards {
		if len(b.ShipCells) != 0 || !b.ShipsPlaced {
			t.Fatalf("spectator board: %+v", b)
		}
	}
}

func TestScenarioRematchTimeoutReleasesSeats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1"}, []string{"C3"})
	if _, err := f.svc.Shoot(ctx, matchID, "alice", "C3"); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(31 * time.Second)
	fired, err := f.svc.CheckRematchTimeout(ctx, matchID)
	if err != nil || !fired {
		t.Fatalf("timeout did not fire: %v %v", fired, err)
	}
	r, err := f.svc.GetRoom(ctx, f.room)
	if err != nil {
		t.Fatal(err)
	}
	if r.SeatA != "" || r.SeatB != "" || !r.Available || r.Occupancy != 0 {
		t.Fatalf("seats not released: %+v", r)
	}
	if fired, _ := f.svc.CheckRematchTimeout(ctx, matchID); fired {
		t.Fatalf("timeout fired twice")
	}
	if _, err := f.svc.RequestRematch(ctx, matchID, "alice"); !errors.Is(err, domain.ErrRematchExpired) {
		t.Fatalf("expected rematch expired, got %v", err)
	}
}

func TestRematchBothAcceptStartsNewMatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1"}, []string{"C3"})
	if _, err := f.svc.Shoot(ctx, matchID, "alice", "C3"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RequestRematch(ctx, matchID, "alice"); err != nil {
		t.Fatalf("RequestRematch alice: %v", err)
	}
	v, err := f.svc.RequestRematch(ctx, matchID, "bob")
	if err != nil {
		t.Fatalf("RequestRematch bob: %v", err)
	}
	if v.NextMatchID == "" || v.RematchDeadline != nil {
		t.Fatalf("rematch not started: %+v", v)
	}
	next, err := f.svc.GetMatch(ctx, v.NextMatchID)
	if err != nil {
		t.Fatal(err)
	}
	if next.State != domain.MatchInProgress || next.RoomID != f.room || len(next.Participations) != 2 {
		t.Fatalf("unexpected rematch: %+v", next)
	}
	if _, err := f.svc.UndoLastShot(ctx, matchID); !errors.Is(err, domain.ErrUndoNotAllowed) {
		t.Fatalf("undo after rematch should fail, got %v", err)
	}
}

func TestRejectRematchReleasesOnlyRejecter(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1"}, []string{"C3"})
	if _, err := f.svc.Shoot(ctx, matchID, "alice", "C3"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RejectRematch(ctx, matchID, "bob"); err != nil {
		t.Fatalf("RejectRematch: %v", err)
	}
	r, err := f.svc.GetRoom(ctx, f.room)
	if err != nil {
		t.Fatal(err)
	}
	if r.SeatA != "alice" || r.SeatB != "" || r.Occupancy != 1 {
		t.Fatalf("unexpected seats: %+v", r)
	}
}

func TestDrawAndCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	v, err := f.svc.DeclareDraw(ctx, matchID)
	if err != nil {
		t.Fatalf("DeclareDraw: %v", err)
	}
	for _, p := range v.Participants {
		if p.Outcome != string(domain.OutcomeDraw) {
			t.Fatalf("outcome: %+v", p)
		}
	}
	if a := f.stats(t, "alice"); a.Draws != 1 || a.TotalPoints != 20 {
		t.Fatalf("draw stats: %+v", a)
	}
	if _, err := f.svc.UndoLastShot(ctx, matchID); !errors.Is(err, domain.ErrUndoNotAllowed) {
		t.Fatalf("undo on draw should fail, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, matchID); !errors.Is(err, domain.ErrMatchTerminal) {
		t.Fatalf("cancel of finished match should fail, got %v", err)
	}

	other, err := f.svc.CreateMatch(ctx, "", "alice")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if _, err := f.svc.Join(ctx, other.ID, "bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := f.svc.Join(ctx, other.ID, "carol"); err == nil {
		t.Fatalf("third join should fail")
	}
	c, err := f.svc.Cancel(ctx, other.ID)
	if err != nil || c.State != string(domain.MatchCancelled) || c.EndedAt == nil {
		t.Fatalf("Cancel: %v %+v", err, c)
	}
	if b := f.stats(t, "bob"); b.GamesPlayed != 1 {
		t.Fatalf("cancel must not touch stats: %+v", b)
	}
}

func TestJoinConsumesDraftBoard(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.PrepareBoard(ctx, "bob", []string{"e5", "E6"}); err != nil {
		t.Fatalf("PrepareBoard: %v", err)
	}
	m, err := f.svc.CreateMatch(ctx, "", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Join(ctx, m.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	v, err := f.svc.MatchState(ctx, m.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if v.CurrentTurn != "alice" || v.State != string(domain.MatchInProgress) {
		t.Fatalf("unexpected join state: %+v", v)
	}
	for _, b := range v.Boards {
		if b.OwnerID == "bob" && (len(b.ShipCells) != 2 || b.ShipCells[0] != "E5") {
			t.Fatalf("draft not consumed: %+v", b)
		}
	}
}

func TestFailedOperationPublishesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.rec.Reset()
	if _, err := f.svc.Shoot(ctx, matchID, "bob", "A1"); err == nil {
		t.Fatalf("expected rejection")
	}
	if _, err := f.svc.AssignSeat(ctx, f.room, "carol", 1); err == nil {
		t.Fatalf("expected unknown player")
	}
	if evs := f.rec.Events(); len(evs) != 0 {
		t.Fatalf("rejected operations published %d events", len(evs))
	}
	if _, err := f.svc.ReleaseSeat(ctx, f.room, 2); err != nil {
		t.Fatal(err)
	}
	rooms := f.rec.OfType(events.TypeRoomsChanged)
	if len(rooms) != 1 || rooms[0].Payload == nil {
		t.Fatalf("expected one resolved rooms event, got %+v", rooms)
	}
}

func TestConsecutiveHitsKeepTurnUntilMiss(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1"}, []string{"C1", "C2", "C3", "C4"})

	for _, cell := range []string{"C1", "C2", "C3"} {
		res, err := f.svc.Shoot(ctx, matchID, "alice", cell)
		if err != nil {
			t.Fatalf("Shoot %s: %v", cell, err)
		}
		if !res.Hit || res.Finished || res.Match.CurrentTurn != "alice" {
			t.Fatalf("hit on %s should keep the turn: %+v", cell, res.Match)
		}
		if _, err := f.svc.Shoot(ctx, matchID, "bob", "A1"); !errors.Is(err, domain.ErrNotYourTurn) {
			t.Fatalf("bob fired out of turn after %s: %v", cell, err)
		}
	}
	res, err := f.svc.Shoot(ctx, matchID, "alice", "J10")
	if err != nil {
		t.Fatalf("Shoot J10: %v", err)
	}
	if res.Hit || res.Match.CurrentTurn != "bob" {
		t.Fatalf("miss should pass the turn: %+v", res.Match)
	}
}

func TestRematchPublishesBothMatches(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	matchID := f.seatAndStart(t)
	f.boards(t, matchID, []string{"A1"}, []string{"C3"})
	if _, err := f.svc.Shoot(ctx, matchID, "alice", "C3"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RequestRematch(ctx, matchID, "alice"); err != nil {
		t.Fatalf("RequestRematch alice: %v", err)
	}
	f.rec.Reset()
	v, err := f.svc.RequestRematch(ctx, matchID, "bob")
	if err != nil {
		t.Fatalf("RequestRematch bob: %v", err)
	}
	subjects := map[string]*dto.Match{}
	for _, ev := range f.rec.OfType(events.TypeMatchChanged) {
		m, _ := ev.Payload.(*dto.Match)
		subjects[ev.Subject] = m
	}
	old, ok := subjects[matchID]
	if !ok {
		t.Fatalf("no match.changed for finished match %s: %v", matchID, subjects)
	}
	if _, ok := subjects[v.NextMatchID]; !ok {
		t.Fatalf("no match.changed for rematch %s: %v", v.NextMatchID, subjects)
	}
	if old == nil || old.NextMatchID != v.NextMatchID {
		t.Fatalf("finished match payload lacks next match id: %+v", old)
	}
}

func TestCreateMatchFromRoomNeedsBothSeats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.AssignSeat(ctx, f.room, "alice", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CreateMatchFromRoom(ctx, f.room); !errors.Is(err, domain.ErrSeatsIncomplete) {
		t.Fatalf("expected seats incomplete, got %v", err)
	}
}

func TestSendChatRelaysToRoomChannel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.rec.Reset()

	msg, err := f.svc.SendChat(ctx, f.room, "alice", "  buena suerte ")
	if err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if msg.Content != "buena suerte" || msg.Sender != "alice" || msg.Type != "CHAT" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	chats := f.rec.OfType(events.TypeRoomChat)
	if len(chats) != 1 || chats[0].Channel != events.ChatChannel(f.room) || chats[0].Subject != f.room {
		t.Fatalf("unexpected chat events: %+v", chats)
	}
	if got, ok := chats[0].Payload.(dto.ChatMessage); !ok || got.Content != "buena suerte" {
		t.Fatalf("unexpected chat payload: %#v", chats[0].Payload)
	}

	if _, err := f.svc.SendChat(ctx, f.room, "carol", "hi"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected unknown player, got %v", err)
	}
	if _, err := f.svc.SendChat(ctx, "nope", "alice", "hi"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected unknown room, got %v", err)
	}
	if _, err := f.svc.SendChat(ctx, f.room, "alice", "   "); !errors.Is(err, domain.ErrInvalidArgs) {
		t.Fatalf("expected empty message rejection, got %v", err)
	}
	if n := len(f.rec.OfType(events.TypeRoomChat)); n != 1 {
		t.Fatalf("rejected messages were published: %d chat events", n)
	}
}
