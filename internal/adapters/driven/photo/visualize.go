package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure Analyser implements the visualizer interface.
var _ driven.PhotoVisualizer = (*Analyser)(nil)

var (
	gridColour   = color.RGBA{R: 255, G: 255, A: 255}
	markerColour = color.RGBA{R: 255, A: 255}
	panelColour  = color.RGBA{A: 160}
)

// Visualize draws the rule of thirds grid, its four intersections and the
// key metrics over the photo, and encodes the result as PNG.
func (a *Analyser) Visualize(ctx context.Context, data []byte, analysis *domain.PhotoAnalysis) ([]byte, error) {
	src, _, err := decode(data)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	drawThirds(dst)
	if analysis != nil {
		drawMetrics(dst, []string{
			fmt.Sprintf("Brightness: %.1f", analysis.Brightness),
			fmt.Sprintf("Contrast: %.2f", analysis.Contrast),
			fmt.Sprintf("Sharpness: %.1f", analysis.Sharpness),
			fmt.Sprintf("Rule of thirds: %.2f", analysis.RuleOfThirds),
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode visualization: %w", err)
	}
	return buf.Bytes(), nil
}

// drawThirds draws the grid lines and a dot on each intersection.
// Line width and dot size grow with the image.
func drawThirds(dst *image.RGBA) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	width := max(1, max(w, h)/400)
	radius := max(2, max(w, h)/100)
	xs := []int{w / 3, 2 * w / 3}
	ys := []int{h / 3, 2 * h / 3}

	grid := image.NewUniform(gridColour)
	for _, x := range xs {
		draw.Draw(dst, image.Rect(x, 0, x+width, h), grid, image.Point{}, draw.Src)
	}
	for _, y := range ys {
		draw.Draw(dst, image.Rect(0, y, w, y+width), grid, image.Point{}, draw.Src)
	}
	for _, x := range xs {
		for _, y := range ys {
			fillCircle(dst, x, y, radius, markerColour)
		}
	}
}

func fillCircle(dst *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r && image.Pt(x, y).In(dst.Bounds()) {
				dst.SetRGBA(x, y, c)
			}
		}
	}
}

// drawMetrics writes lines of text on a translucent panel in the top left corner.
func drawMetrics(dst *image.RGBA, lines []string) {
	face := basicfont.Face7x13
	const pad = 6
	lineHeight := face.Metrics().Height.Ceil()
	widest := 0
	for _, l := range lines {
		widest = max(widest, font.MeasureString(face, l).Ceil())
	}
	panel := image.Rect(0, 0, widest+2*pad, len(lines)*lineHeight+2*pad).Intersect(dst.Bounds())
	draw.Draw(dst, panel, image.NewUniform(panelColour), image.Point{}, draw.Over)

	d := &font.Drawer{Dst: dst, Src: image.White, Face: face}
	for i, l := range lines {
		d.Dot = fixed.P(pad, pad+(i+1)*lineHeight-face.Metrics().Descent.Ceil())
		d.DrawString(l)
	}
}
