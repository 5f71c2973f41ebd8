// Package battleship coordinates rooms, readiness, matches, shots, undo,
// rematches and ranking on top of the record store.
//
// Every mutating operation takes the per-key lock of its serial domain (the
// room for room-bound matches, otherwise the match), runs as one store
// transaction, and hands the events it staged to the sink only after the
// transaction committed.
package battleship

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/events"
	"github.com/Jair0305/battleship/internal/keylock"
	"github.com/Jair0305/battleship/internal/lobby"
	"github.com/Jair0305/battleship/internal/obslog"
	"github.com/Jair0305/battleship/internal/store"
)

const (
	defaultRematchWindow   = 30 * time.Second
	defaultLeaderboardSize = 10
)

// Archiver stores decided or cancelled matches outside the live store.
type Archiver interface {
	Archive(ctx context.Context, m *domain.Match, shots []domain.Shot) error
	Remove(ctx context.Context, matchID string) error
}

type Config struct {
	ReadyWindow     time.Duration
	RematchWindow   time.Duration
	LeaderboardSize int
}

type Service struct {
	st      *store.Store
	locks   *keylock.Locker
	sink    events.Sink
	archive Archiver
	cfg     Config

	now   func() time.Time
	pick  func(n int) int
	newID func() string

	logger *zap.Logger
}

type Option func(*Service)

func WithConfig(cfg Config) Option { return func(s *Service) { s.cfg = cfg } }

func WithSink(sink events.Sink) Option { return func(s *Service) { s.sink = sink } }

func WithArchiver(a Archiver) Option { return func(s *Service) { s.archive = a } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRandom replaces the first-mover draw. pick(n) must return [0,n).
func WithRandom(pick func(n int) int) Option { return func(s *Service) { s.pick = pick } }

// WithIDs replaces the room and match id generator.
func WithIDs(newID func() string) Option { return func(s *Service) { s.newID = newID } }

func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		st:    st,
		locks: keylock.New(),
		sink:  events.Discard{},
		now:   time.Now,
		pick:  cryptoPick,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.ReadyWindow <= 0 {
		s.cfg.ReadyWindow = lobby.ReadyWindow
	}
	if s.cfg.RematchWindow <= 0 {
		s.cfg.RematchWindow = defaultRematchWindow
	}
	if s.cfg.LeaderboardSize <= 0 {
		s.cfg.LeaderboardSize = defaultLeaderboardSize
	}
	if s.logger == nil {
		s.logger = obslog.L()
	}
	return s
}

func cryptoPick(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return int(time.Now().UnixNano() % int64(n))
	}
	return int(v.Int64())
}

// txn is the state of one operation attempt.
type txn struct {
	*store.Session
	out   *events.Outbox
	after []func(ctx context.Context)
	// reject is returned to the caller after the transaction committed.
	reject error
}

func (t *txn) afterCommit(fn func(ctx context.Context)) { t.after = append(t.after, fn) }

func roomLock(roomID string) string { return "room:" + strings.TrimSpace(roomID) }

func matchLock(m *domain.Match) string {
	if m.RoomID != "" {
		return roomLock(m.RoomID)
	}
	return "match:" + m.ID
}

// update runs fn under lockKey in one transaction, then dispatches the staged
// events and post-commit hooks.
func (s *Service) update(ctx context.Context, lockKey string, fn func(t *txn) error) error {
	if lockKey != "" {
		unlock := s.locks.Lock(lockKey)
		defer unlock()
	}
	var t *txn
	err := s.st.Update(ctx, func(sess *store.Session) error {
		t = &txn{Session: sess, out: &events.Outbox{}}
		return fn(t)
	})
	if err != nil {
		return err
	}
	s.commit(ctx, t)
	return t.reject
}

// updateMatch resolves the lock domain of matchID, then runs update.
func (s *Service) updateMatch(ctx context.Context, matchID string, fn func(t *txn, m *domain.Match) error) error {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return domain.ErrInvalidArgs.Detail("match id is required")
	}
	var key string
	if err := s.st.View(ctx, func(sess *store.Session) error {
		m, err := sess.Match(matchID)
		if err != nil {
			return err
		}
		key = matchLock(m)
		return nil
	}); err != nil {
		return err
	}
	return s.update(ctx, key, func(t *txn) error {
		m, err := t.Match(matchID)
		if err != nil {
			return err
		}
		return fn(t, m)
	})
}

func (s *Service) commit(ctx context.Context, t *txn) {
	if t == nil {
		return
	}
	if t.out.Len() > 0 {
		evs := t.out.Events()
		now := s.now()
		for i := range evs {
			evs[i].At = now
			if evs[i].Payload == nil {
				s.resolvePayload(ctx, &evs[i])
			}
		}
		s.sink.Dispatch(evs)
	}
	for _, fn := range t.after {
		fn(ctx)
	}
}

// resolvePayload fills an event from committed state. Failures leave the
// payload empty; subscribers can still re-fetch.
func (s *Service) resolvePayload(ctx context.Context, ev *events.Event) {
	var (
		payload any
		err     error
	)
	switch ev.Type {
	case events.TypeRoomsChanged:
		payload, err = s.ListRooms(ctx)
	case events.TypeMatchChanged:
		payload, err = s.publicView(ctx, ev.Subject)
	case events.TypeRankingChanged:
		payload, err = s.Leaderboard(ctx, ev.Subject)
	}
	if err != nil {
		s.logger.Warn("event_payload_error", zap.String("type", ev.Type), zap.String("subject", ev.Subject), zap.Error(err))
		return
	}
	ev.Payload = payload
}

func (s *Service) publicView(ctx context.Context, matchID string) (any, error) {
	var out any
	err := s.st.View(ctx, func(sess *store.Session) error {
		m, err := sess.Match(matchID)
		if err != nil {
			return err
		}
		v, err := buildView(sess, m, "")
		out = v
		return err
	})
	return out, err
}

func (s *Service) archiveAfterCommit(t *txn, m *domain.Match, shots []domain.Shot) {
	if s.archive == nil {
		return
	}
	snapshot := *m
	snapshot.Participations = append([]domain.Participation(nil), m.Participations...)
	log := append([]domain.Shot(nil), shots...)
	t.afterCommit(func(ctx context.Context) {
		if err := s.archive.Archive(ctx, &snapshot, log); err != nil {
			s.logger.Error("match_archive_error", zap.String("match_id", snapshot.ID), zap.String("state", string(snapshot.State)), zap.Error(err))
			return
		}
		s.logger.Info("match_archive", zap.String("match_id", snapshot.ID), zap.String("state", string(snapshot.State)), zap.String("winner_id", snapshot.WinnerID))
	})
}

func (s *Service) unarchiveAfterCommit(t *txn, matchID string) {
	if s.archive == nil {
		return
	}
	t.afterCommit(func(ctx context.Context) {
		if err := s.archive.Remove(ctx, matchID); err != nil {
			s.logger.Error("match_unarchive_error", zap.String("match_id", matchID), zap.Error(err))
		}
	})
}

func requireID(v, what string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.ErrInvalidArgs.Detail("%s is required", what)
	}
	return v, nil
}
