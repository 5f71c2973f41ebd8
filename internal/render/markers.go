package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type marker int

const (
	markerShip marker = iota
	markerHit
	markerMiss
)

var markerSVG = map[marker]string{
	markerShip: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<rect x="8" y="16" width="48" height="32" rx="10" ry="10" style="fill: #5b6b82;stroke: #2b3444;stroke-width:3"/>
</svg>`,
	markerHit: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<circle cx="32" cy="32" r="20" style="fill: #e2483d;stroke: #7a1a14;stroke-width:3"/>
<path d="M20 20 L44 44 M44 20 L20 44" style="stroke: #fff3e0;stroke-width:6;fill:none"/>
</svg>`,
	markerMiss: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<circle cx="32" cy="32" r="9" style="fill: #eef4fb;stroke: 000000;stroke-width:2"/>
</svg>`,
}

type markerCacheKey struct {
	m    marker
	size int
}

var (
	markerCache   = map[markerCacheKey]image.Image{}
	markerCacheMu sync.RWMutex
)

func renderMarker(m marker, size int) (image.Image, error) {
	key := markerCacheKey{m: m, size: size}

	markerCacheMu.RLock()
	if img, ok := markerCache[key]; ok {
		markerCacheMu.RUnlock()
		return img, nil
	}
	markerCacheMu.RUnlock()

	src, ok := markerSVG[m]
	if !ok {
		return nil, fmt.Errorf("unknown marker %d", m)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG([]byte(src))))
	if err != nil {
		return nil, fmt.Errorf("parse marker svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	markerCacheMu.Lock()
	markerCache[key] = img
	markerCacheMu.Unlock()
	return img, nil
}

// sanitizeSVG normalises inline styles oksvg fails to parse.
func sanitizeSVG(svg []byte) []byte {
	s := string(svg)
	s = strings.ReplaceAll(s, "stroke: 000000", "stroke:#000000")
	s = strings.ReplaceAll(s, "fill: 000000", "fill:#000000")
	s = strings.ReplaceAll(s, "fill: #", "fill:#")
	s = strings.ReplaceAll(s, "stroke: #", "stroke:#")
	return []byte(s)
}
