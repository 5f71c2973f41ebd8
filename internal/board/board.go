// Package board holds the hidden-grid rules of a single player's board.
// Coordinates are opaque strings; they are only trimmed and upper-cased so
// "a1" and "A1 " address the same cell.
package board

import (
	"sort"
	"strings"
	"time"

	"github.com/Jair0305/battleship/internal/domain"
)

// CellsPerShip is the fixed ship length used by scoring.
const CellsPerShip = 2

// Normalize canonicalises a coordinate. It returns "" for blank input.
func Normalize(coord string) string {
	return strings.ToUpper(strings.TrimSpace(coord))
}

// NormalizeCells canonicalises, de-duplicates and sorts ship cells.
func NormalizeCells(cells []string) ([]string, error) {
	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		n := Normalize(c)
		if n == "" {
			return nil, domain.ErrInvalidCoordinate.Detail("empty ship coordinate")
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// New returns an empty board for owner. matchID "" makes a draft.
func New(ownerID, matchID string, now time.Time) *domain.Board {
	return &domain.Board{
		OwnerID:       ownerID,
		MatchID:       matchID,
		ShipCells:     []string{},
		AttackedCells: map[string]bool{},
		UpdatedAt:     now,
	}
}

// Placed reports whether any ship cell is registered.
func Placed(b *domain.Board) bool {
	return b != nil && len(b.ShipCells) > 0
}

// HasShip reports whether coord is a ship cell.
func HasShip(b *domain.Board, coord string) bool {
	for _, c := range b.ShipCells {
		if c == coord {
			return true
		}
	}
	return false
}

// Attack records a shot at coord and returns whether it hit.
// A coordinate can be attacked only once.
func Attack(b *domain.Board, coord string, now time.Time) (bool, error) {
	coord = Normalize(coord)
	if coord == "" {
		return false, domain.ErrInvalidCoordinate
	}
	if b.AttackedCells == nil {
		b.AttackedCells = map[string]bool{}
	}
	if _, done := b.AttackedCells[coord]; done {
		return false, domain.ErrAlreadyTargeted.Detail("cell %s was already attacked", coord)
	}
	hit := HasShip(b, coord)
	b.AttackedCells[coord] = hit
	b.UpdatedAt = now
	return hit, nil
}

// Unattack removes coord from the attacked cells.
func Unattack(b *domain.Board, coord string, now time.Time) {
	delete(b.AttackedCells, Normalize(coord))
	b.UpdatedAt = now
}

// AllSunk reports whether every ship cell was hit. A board without ships is
// never sunk.
func AllSunk(b *domain.Board) bool {
	if !Placed(b) {
		return false
	}
	for _, c := range b.ShipCells {
		if !b.AttackedCells[c] {
			return false
		}
	}
	return true
}

// HitCells counts ship cells that were hit.
func HitCells(b *domain.Board) int {
	if b == nil {
		return 0
	}
	n := 0
	for _, c := range b.ShipCells {
		if b.AttackedCells[c] {
			n++
		}
	}
	return n
}

// IntactCells counts ship cells never hit.
func IntactCells(b *domain.Board) int {
	if b == nil {
		return 0
	}
	return len(b.ShipCells) - HitCells(b)
}

// CopyAttacked returns a copy of the attacked-cell map.
func CopyAttacked(b *domain.Board) map[string]bool {
	out := make(map[string]bool)
	if b == nil {
		return out
	}
	for k, v := range b.AttackedCells {
		out[k] = v
	}
	return out
}
