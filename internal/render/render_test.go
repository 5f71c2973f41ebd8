package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

func TestParseCell(t *testing.T) {
	cases := []struct {
		in   string
		want Cell
		ok   bool
	}{
		{"A1", Cell{0, 0}, true},
		{" b7", Cell{1, 6}, true},
		{"J10", Cell{9, 9}, true},
		{"A0", Cell{}, false},
		{"7B", Cell{}, false},
		{"sub-1", Cell{}, false},
		{"", Cell{}, false},
	}
	for _, c := range cases {
		got, ok := ParseCell(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParseCell(%q) = %+v,%v want %+v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestPNGSize(t *testing.T) {
	b := dto.Board{
		OwnerID:   "alice",
		ShipCells: []string{"A1", "A2", "L3"},
		Attacked:  map[string]bool{"A1": true, "C5": false, "opaque": false},
	}
	raw, err := PNG(context.Background(), b, Options{CellSize: 20})
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// L is row 12, so the grid grows to 12x12
	if w := img.Bounds().Dx(); w != 12*20+64 {
		t.Fatalf("width = %d", w)
	}
}

func TestPNGHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PNG(ctx, dto.Board{OwnerID: "bob"}, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
