// Package archive keeps decided and cancelled matches in Postgres for
// reporting. The live store stays authoritative; archive writes are best
// effort.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Jair0305/battleship/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS battleship_match_results (
    match_id      TEXT PRIMARY KEY,
    room_id       TEXT NOT NULL DEFAULT '',
    state         TEXT NOT NULL,
    player1_id    TEXT NOT NULL DEFAULT '',
    player2_id    TEXT NOT NULL DEFAULT '',
    winner_id     TEXT NOT NULL DEFAULT '',
    result        TEXT NOT NULL,
    player1_points INTEGER NOT NULL DEFAULT 0,
    player2_points INTEGER NOT NULL DEFAULT 0,
    shot_count    INTEGER NOT NULL DEFAULT 0,
    shots         JSONB NOT NULL DEFAULT '[]',
    started_at    TIMESTAMPTZ,
    ended_at      TIMESTAMPTZ,
    duration_ms   BIGINT NOT NULL DEFAULT 0
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the result table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// row is the flattened archive form of a match.
type row struct {
	MatchID    string
	RoomID     string
	State      string
	Player1    string
	Player2    string
	WinnerID   string
	Result     string
	Points1    int
	Points2    int
	ShotCount  int
	Shots      string
	StartedAt  *time.Time
	EndedAt    *time.Time
	DurationMS int64
}

func resultOf(m *domain.Match) string {
	switch {
	case m.State == domain.MatchCancelled:
		return "cancelled"
	case m.WinnerID != "":
		if m.WinnerID == m.PlayerByOrder(1) {
			return "player1"
		}
		return "player2"
	case m.State == domain.MatchFinished:
		return "draw"
	}
	return "open"
}

func toRow(m *domain.Match, shots []domain.Shot) (row, error) {
	if shots == nil {
		shots = []domain.Shot{}
	}
	raw, err := json.Marshal(shots)
	if err != nil {
		return row{}, fmt.Errorf("encode shots: %w", err)
	}
	rw := row{
		MatchID:   m.ID,
		RoomID:    m.RoomID,
		State:     string(m.State),
		WinnerID:  m.WinnerID,
		Result:    resultOf(m),
		ShotCount: len(shots),
		Shots:     string(raw),
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
	}
	for _, p := range m.Participations {
		switch p.Order {
		case 1:
			rw.Player1, rw.Points1 = p.PlayerID, p.Points
		case 2:
			rw.Player2, rw.Points2 = p.PlayerID, p.Points
		}
	}
	if m.StartedAt != nil && m.EndedAt != nil {
		if d := m.EndedAt.Sub(*m.StartedAt).Milliseconds(); d > 0 {
			rw.DurationMS = d
		}
	}
	return rw, nil
}

// Archive upserts the final state of m.
func (r *Repository) Archive(ctx context.Context, m *domain.Match, shots []domain.Shot) error {
	if r == nil || r.db == nil || m == nil {
		return nil
	}
	rw, err := toRow(m, shots)
	if err != nil {
		return err
	}
	q := `INSERT INTO battleship_match_results (
        match_id, room_id, state, player1_id, player2_id, winner_id, result,
        player1_points, player2_points, shot_count, shots,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
      ) ON CONFLICT (match_id) DO UPDATE SET
        room_id=EXCLUDED.room_id,
        state=EXCLUDED.state,
        player1_id=EXCLUDED.player1_id,
        player2_id=EXCLUDED.player2_id,
        winner_id=EXCLUDED.winner_id,
        result=EXCLUDED.result,
        player1_points=EXCLUDED.player1_points,
        player2_points=EXCLUDED.player2_points,
        shot_count=EXCLUDED.shot_count,
        shots=EXCLUDED.shots,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		rw.MatchID, rw.RoomID, rw.State,
		rw.Player1, rw.Player2, rw.WinnerID, rw.Result,
		rw.Points1, rw.Points2, rw.ShotCount, rw.Shots,
		rw.StartedAt, rw.EndedAt, rw.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("archive match %s: %w", m.ID, err)
	}
	return nil
}

// Remove deletes the archived row of a match that was reopened.
func (r *Repository) Remove(ctx context.Context, matchID string) error {
	if r == nil || r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM battleship_match_results WHERE match_id=$1`, matchID); err != nil {
		return fmt.Errorf("unarchive match %s: %w", matchID, err)
	}
	return nil
}
