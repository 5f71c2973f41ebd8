// Package render draws a PNG snapshot of one board as a viewer may see it.
// Coordinates of the form <row letter><column number> ("B7") are placed on
// the grid; other coordinates stay opaque and are not drawn.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

const (
	defaultGrid = 10
	maxGrid     = 26
)

type Options struct {
	// Title is shown above the grid. Defaults to the owner id.
	Title string
	// CellSize in pixels, 40 when zero.
	CellSize int
}

// Cell is a parsed grid coordinate, zero based.
type Cell struct {
	Row, Col int
}

// ParseCell reads "B7" as row 1, column 6. ok is false for coordinates that
// do not follow the letter-number form.
func ParseCell(coord string) (Cell, bool) {
	c := strings.ToUpper(strings.TrimSpace(coord))
	if len(c) < 2 {
		return Cell{}, false
	}
	r := rune(c[0])
	if r < 'A' || r > 'Z' {
		return Cell{}, false
	}
	for _, d := range c[1:] {
		if !unicode.IsDigit(d) {
			return Cell{}, false
		}
	}
	n, err := strconv.Atoi(c[1:])
	if err != nil || n < 1 || n > maxGrid {
		return Cell{}, false
	}
	return Cell{Row: int(r - 'A'), Col: n - 1}, true
}

// gridSize is the side of the square grid needed for b, at least 10.
func gridSize(b dto.Board) int {
	n := defaultGrid
	grow := func(coord string) {
		if c, ok := ParseCell(coord); ok {
			if c.Row+1 > n {
				n = c.Row + 1
			}
			if c.Col+1 > n {
				n = c.Col + 1
			}
		}
	}
	for _, c := range b.ShipCells {
		grow(c)
	}
	for c := range b.Attacked {
		grow(c)
	}
	return n
}

var (
	waterColor      = color.RGBA{R: 38, G: 92, B: 140, A: 255}
	waterAltColor   = color.RGBA{R: 44, G: 102, B: 152, A: 255}
	backgroundColor = color.RGBA{R: 18, G: 22, B: 34, A: 255}
	panelColor      = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	textPrimary     = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordColor      = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// PNG renders b. Ship cells are only drawn when present in b, which the
// coordinator fills for the owner's own view.
func PNG(ctx context.Context, b dto.Board, opts Options) ([]byte, error) {
	cell := opts.CellSize
	if cell <= 0 {
		cell = 40
	}
	const (
		margin      = 32
		titleHeight = 34
		gapToGrid   = 14
		radius      = 10
	)
	n := gridSize(b)
	gridPx := n * cell
	origin := image.Pt(margin, margin+titleHeight+gapToGrid)
	img := image.NewRGBA(image.Rect(0, 0, gridPx+margin*2, origin.Y+gridPx+margin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = b.OwnerID
	}
	titleRect := image.Rect(origin.X, margin, origin.X+gridPx, margin+titleHeight)
	drawRoundedPanel(img, titleRect, radius, panelColor)
	drawCenteredString(drawer, titleRect, title, textPrimary)

	drawWater(img, n, cell, origin)
	for _, c := range b.ShipCells {
		if err := drawMarkerAt(img, c, markerShip, cell, origin); err != nil {
			return nil, err
		}
	}
	for c, hit := range b.Attacked {
		m := markerMiss
		if hit {
			m = markerHit
		}
		if err := drawMarkerAt(img, c, m, cell, origin); err != nil {
			return nil, err
		}
	}
	drawCoordinates(drawer, n, cell, origin, margin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawWater(dst imagedraw.Image, n, cell int, origin image.Point) {
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			clr := waterColor
			if (row+col)%2 == 1 {
				clr = waterAltColor
			}
			imagedraw.Draw(dst, cellRect(Cell{Row: row, Col: col}, cell, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawMarkerAt(dst imagedraw.Image, coord string, m marker, cell int, origin image.Point) error {
	c, ok := ParseCell(coord)
	if !ok {
		return nil
	}
	icon, err := renderMarker(m, cell)
	if err != nil {
		return err
	}
	imagedraw.Draw(dst, cellRect(c, cell, origin), icon, image.Point{}, imagedraw.Over)
	return nil
}

func cellRect(c Cell, cell int, origin image.Point) image.Rectangle {
	x := origin.X + c.Col*cell
	y := origin.Y + c.Row*cell
	return image.Rect(x, y, x+cell, y+cell)
}

func drawCoordinates(drawer *font.Drawer, n, cell int, origin image.Point, margin int) {
	drawer.Src = image.NewUniform(coordColor)
	ascent := drawer.Face.Metrics().Ascent.Ceil()
	for i := 0; i < n; i++ {
		center := origin.Y + i*cell + cell/2
		drawCenteredText(drawer, string(rune('A'+i)), origin.X-margin/2, center+ascent/2)
		colCenter := origin.X + i*cell + cell/2
		drawCenteredText(drawer, strconv.Itoa(i+1), colCenter, origin.Y+n*cell+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawQuarterDisc(img, c, radius, clr, rect)
	}
}

// drawQuarterDisc fills the disc around center, clipped to the corner square
// outside the panel's straight parts.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, clr color.Color, rect image.Rectangle) {
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > r2 {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			inCorner := (p.X < rect.Min.X+radius || p.X >= rect.Max.X-radius) && (p.Y < rect.Min.Y+radius || p.Y >= rect.Max.Y-radius)
			if inCorner && p.In(rect) {
				img.Set(p.X, p.Y, clr)
			}
		}
	}
}
