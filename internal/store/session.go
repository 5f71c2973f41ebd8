package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

func keyRoom(id string) string { return "room:" + strings.TrimSpace(id) }
func keyRoomMatches(id string) string { return keyRoom(id) + ":matches" }
func keyRooms() string { return "rooms" }
func keyPlayer(id string) string { return "player:" + strings.TrimSpace(id) }
func keyStats(id string) string { return "stats:" + strings.TrimSpace(id) }
func keyMatch(id string) string { return "match:" + strings.TrimSpace(id) }
func keyShots(matchID string) string { return keyMatch(matchID) + ":shots" }
func keyScore(matchID, playerID string) string { return "score:" + scoreMember(matchID, playerID) }
func keyScoresByTime() string { return "scores:by_time" }
func keyRematchPending() string { return "matches:rematch_pending" }

func keyBoard(playerID, matchID string) string {
	if strings.TrimSpace(matchID) == "" {
		matchID = "draft"
	}
	return "board:" + strings.TrimSpace(playerID) + ":" + strings.TrimSpace(matchID)
}

func scoreMember(matchID, playerID string) string {
	return strings.TrimSpace(matchID) + ":" + strings.TrimSpace(playerID)
}

// Store exposes typed records over a KV backend.
type Store struct {
	kv KV
}

func New(kv KV) *Store { return &Store{kv: kv} }

func (s *Store) Close() error { return s.kv.Close() }

// Update runs fn in one atomic transaction.
func (s *Store) Update(ctx context.Context, fn func(*Session) error) error {
	return s.kv.Update(ctx, func(tx Tx) error { return fn(&Session{ctx: ctx, tx: tx}) })
}

// View runs fn against a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(*Session) error) error {
	return s.kv.View(ctx, func(tx Tx) error { return fn(&Session{ctx: ctx, tx: tx}) })
}

// Session is the typed record API of one transaction. Loaders return
// defensive copies; nothing is written until Save* is called.
type Session struct {
	ctx context.Context
	tx  Tx
}

func (s *Session) load(key string, v any) (bool, error) {
	raw, ok, err := s.tx.Get(s.ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Session) save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.tx.Set(key, raw)
	return nil
}

// Rooms

func (s *Session) Room(id string) (*domain.Room, error) {
	var r domain.Room
	ok, err := s.load(keyRoom(id), &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrRoomNotFound.Detail("room %q not found", id)
	}
	return &r, nil
}

func (s *Session) SaveRoom(r *domain.Room) error {
	if err := s.save(keyRoom(r.ID), r); err != nil {
		return err
	}
	s.tx.AddMember(keyRooms(), r.ID)
	return nil
}

// Rooms returns every room ordered by creation time, then name.
func (s *Session) Rooms() ([]*domain.Room, error) {
	ids, err := s.tx.Members(s.ctx, keyRooms())
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]*domain.Room, 0, len(ids))
	for _, id := range ids {
		r, err := s.Room(id)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// RoomMatchIDs lists ids of matches created for a room.
func (s *Session) RoomMatchIDs(roomID string) ([]string, error) {
	return s.tx.Members(s.ctx, keyRoomMatches(roomID))
}

// Players

func (s *Session) Player(id string) (*domain.Player, error) {
	var p domain.Player
	ok, err := s.load(keyPlayer(id), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrPlayerNotFound.Detail("player %q not found", id)
	}
	return &p, nil
}

func (s *Session) SavePlayer(p *domain.Player) error { return s.save(keyPlayer(p.ID), p) }

// Stats returns the player's statistics, zeroed when none were written yet.
func (s *Session) Stats(playerID string) (*domain.PlayerStatistics, error) {
	st := &domain.PlayerStatistics{PlayerID: playerID}
	if _, err := s.load(keyStats(playerID), st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Session) SaveStats(st *domain.PlayerStatistics) error {
	return s.save(keyStats(st.PlayerID), st)
}

// Matches

func (s *Session) Match(id string) (*domain.Match, error) {
	var m domain.Match
	ok, err := s.load(keyMatch(id), &m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrMatchNotFound.Detail("match %q not found", id)
	}
	return &m, nil
}

// SaveMatch writes the match and keeps the room index and the pending
// rematch index in step with its state.
func (s *Session) SaveMatch(m *domain.Match) error {
	if err := s.save(keyMatch(m.ID), m); err != nil {
		return err
	}
	if m.RoomID != "" {
		s.tx.AddMember(keyRoomMatches(m.RoomID), m.ID)
	}
	if m.State == domain.MatchFinished && m.RematchDeadline != nil && m.NextMatchID == "" {
		s.tx.AddMember(keyRematchPending(), m.ID)
	} else {
		s.tx.RemoveMember(keyRematchPending(), m.ID)
	}
	return nil
}

// RematchPending lists finished matches whose rematch window is still open.
func (s *Session) RematchPending() ([]string, error) {
	return s.tx.Members(s.ctx, keyRematchPending())
}

func (s *Session) Shots(matchID string) ([]domain.Shot, error) {
	var shots []domain.Shot
	if _, err := s.load(keyShots(matchID), &shots); err != nil {
		return nil, err
	}
	return shots, nil
}

func (s *Session) SaveShots(matchID string, shots []domain.Shot) error {
	if shots == nil {
		shots = []domain.Shot{}
	}
	return s.save(keyShots(matchID), shots)
}

// Boards

// Board returns the board of playerID for matchID ("" for the draft), or
// nil when none exists.
func (s *Session) Board(playerID, matchID string) (*domain.Board, error) {
	var b domain.Board
	ok, err := s.load(keyBoard(playerID, matchID), &b)
	if err != nil || !ok {
		return nil, err
	}
	if b.AttackedCells == nil {
		b.AttackedCells = map[string]bool{}
	}
	return &b, nil
}

func (s *Session) SaveBoard(b *domain.Board) error {
	return s.save(keyBoard(b.OwnerID, b.MatchID), b)
}

func (s *Session) DeleteBoard(playerID, matchID string) {
	s.tx.Delete(keyBoard(playerID, matchID))
}

// Scores

func (s *Session) Score(matchID, playerID string) (*domain.Score, error) {
	var sc domain.Score
	ok, err := s.load(keyScore(matchID, playerID), &sc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrScoreNotFound.Detail("no score for player %q in match %q", playerID, matchID)
	}
	return &sc, nil
}

// AddScore appends a score record and indexes it by time.
func (s *Session) AddScore(sc *domain.Score) error {
	if err := s.save(keyScore(sc.MatchID, sc.PlayerID), sc); err != nil {
		return err
	}
	s.tx.AddScored(keyScoresByTime(), scoreMember(sc.MatchID, sc.PlayerID), float64(sc.At.UnixMilli()))
	return nil
}

// ScoresSince returns the records at or after since in time order. A zero
// since returns every record.
func (s *Session) ScoresSince(since time.Time) ([]domain.Score, error) {
	min := math.Inf(-1)
	if !since.IsZero() {
		min = float64(since.UnixMilli())
	}
	members, err := s.tx.RangeSince(s.ctx, keyScoresByTime(), min)
	if err != nil {
		return nil, fmt.Errorf("range scores: %w", err)
	}
	out := make([]domain.Score, 0, len(members))
	for _, m := range members {
		var sc domain.Score
		ok, err := s.load("score:"+m, &sc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sc)
		}
	}
	return out, nil
}
