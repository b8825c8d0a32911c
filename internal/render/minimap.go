// Package render draws room snapshots for the debug minimap endpoint.
package render

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"midnight-chase/internal/game"
)

const (
	DefaultSize = 480
	MinSize     = 120
	MaxSize     = 1920

	headerHeight = 20
)

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrid       = color.RGBA{30, 30, 45, 255}
	colorHeader     = color.RGBA{230, 230, 240, 255}
	colorItem       = color.RGBA{255, 200, 40, 255}
	colorItemTaken  = color.RGBA{80, 70, 40, 255}
	colorCat        = color.RGBA{255, 140, 0, 255}
	colorHunter     = color.RGBA{255, 62, 62, 255}
	colorRunner     = color.RGBA{70, 160, 255, 255}
	colorTagged     = color.RGBA{110, 110, 120, 255}
)

// RoleColor returns the fill used for a player marker.
func RoleColor(p game.PlayerSnapshot) color.RGBA {
	switch {
	case p.Role == game.RoleHunter:
		return colorHunter
	case p.Tagged:
		return colorTagged
	default:
		return colorRunner
	}
}

// Minimap renders snap as a size x size PNG of the world with a status line on top.
// size is clamped to [MinSize, MaxSize].
func Minimap(snap game.Snapshot, size int) ([]byte, error) {
	size = min(max(size, MinSize), MaxSize)
	scale := float64(size) / game.WorldSize

	dc := gg.NewContext(size, size+headerHeight)
	dc.SetFontFace(basicfont.Face7x13)

	drawBackground(dc)
	drawHeader(dc, snap, float64(size))

	// world below the header, in world units
	dc.Push()
	dc.Translate(0, headerHeight)
	dc.Scale(scale, scale)
	drawGrid(dc, 1/scale)
	drawCollectibles(dc, snap.Collectibles)
	drawCat(dc, snap.Cat, 1/scale)
	drawPlayers(dc, snap.Players)
	dc.Pop()

	drawNames(dc, snap.Players, scale)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode minimap: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBackground(dc *gg.Context) {
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
	dc.Fill()
}

func drawHeader(dc *gg.Context, snap game.Snapshot, width float64) {
	line := fmt.Sprintf("%s  %s  items %d", snap.ClockDisplay(), snap.Status, snap.Remaining())
	if snap.Status == game.StatusEnded {
		line = fmt.Sprintf("%s  %s", snap.ClockDisplay(), snap.Message)
	}
	dc.SetColor(colorHeader)
	dc.DrawStringAnchored(line, width/2, headerHeight/2, 0.5, 0.5)
}

// drawGrid draws the spawn cells; lineWidth is one pixel in world units.
func drawGrid(dc *gg.Context, lineWidth float64) {
	dc.SetColor(colorGrid)
	dc.SetLineWidth(lineWidth)
	for i := 0; i <= game.GridSize; i++ {
		v := float64(i) * game.CellSize
		dc.DrawLine(v, 0, v, game.WorldSize)
		dc.Stroke()
		dc.DrawLine(0, v, game.WorldSize, v)
		dc.Stroke()
	}
}

func drawCollectibles(dc *gg.Context, items []game.CollectibleSnapshot) {
	for _, c := range items {
		if c.Collected {
			dc.SetColor(colorItemTaken)
		} else {
			dc.SetColor(colorItem)
		}
		dc.DrawCircle(c.X, c.Y, 10)
		dc.Fill()
	}
}

func drawCat(dc *gg.Context, cat game.CatSnapshot, px float64) {
	dc.SetColor(colorCat)
	dc.DrawCircle(cat.X, cat.Y, game.CatMargin)
	dc.Fill()

	// resting cats get a ring
	if cat.Mode == game.CatRest {
		dc.SetLineWidth(2 * px)
		dc.DrawCircle(cat.X, cat.Y, game.CatMargin+8)
		dc.Stroke()
	}
}

func drawPlayers(dc *gg.Context, players []game.PlayerSnapshot) {
	for _, p := range players {
		dc.SetColor(RoleColor(p))
		dc.DrawCircle(p.X, p.Y, 16)
		dc.Fill()
	}
}

// drawNames writes labels in pixel space so the font is not scaled.
func drawNames(dc *gg.Context, players []game.PlayerSnapshot, scale float64) {
	dc.SetColor(colorHeader)
	for _, p := range players {
		x := p.X * scale
		y := p.Y*scale + headerHeight + 16*scale + 8
		dc.DrawStringAnchored(p.Name, x, y, 0.5, 0.5)
	}
}
