// Package photo measures and enhances submitted photos.
package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure Analyser implements the interface.
var _ driven.PhotoAnalyser = (*Analyser)(nil)

// Analysis limits.
const (
	// DefaultMaxEdge is the long edge images are downscaled to before measuring.
	DefaultMaxEdge = 768

	// MaxPixels rejects images whose header declares more pixels than this.
	MaxPixels = 120_000_000

	// edgeThreshold is the gradient magnitude counted as an edge.
	edgeThreshold = 100.0
)

// Analyser computes exposure, contrast, sharpness, colour and composition metrics.
type Analyser struct {
	maxEdge int
}

// NewAnalyser creates an analyser. maxEdge <= 0 uses DefaultMaxEdge.
func NewAnalyser(maxEdge int) *Analyser {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	return &Analyser{maxEdge: maxEdge}
}

// Analyse decodes the image and measures it.
func (a *Analyser) Analyse(ctx context.Context, data []byte) (*domain.PhotoAnalysis, error) {
	src, format, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rgba := a.downscale(src)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := measure(rgba)
	b := src.Bounds()
	return &domain.PhotoAnalysis{
		Width:        b.Dx(),
		Height:       b.Dy(),
		AspectRatio:  float64(b.Dx()) / float64(b.Dy()),
		Brightness:   m.brightness,
		Contrast:     m.contrast,
		Sharpness:    m.sharpness,
		ColorBalance: m.balance,
		RuleOfThirds: m.thirds,
		Format:       format,
	}, nil
}

// decode checks the image header against the size limits before decoding.
func decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty image", domain.ErrInvalidInput)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode image header: %v", domain.ErrUnsupportedType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: image has no pixels", domain.ErrInvalidInput)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, "", fmt.Errorf("%w: image is %dx%d, too large", domain.ErrInvalidInput, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return src, format, nil
}

// downscale fits src within maxEdge on its long side and converts it to RGBA.
func (a *Analyser) downscale(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if long := max(w, h); long > a.maxEdge {
		scale := float64(a.maxEdge) / float64(long)
		w = max(1, int(math.Round(float64(w)*scale)))
		h = max(1, int(math.Round(float64(h)*scale)))
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return dst
}

type metrics struct {
	brightness float64
	contrast   float64
	sharpness  float64
	thirds     float64
	balance    domain.ColorBalance
}

func measure(img *image.RGBA) metrics {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	n := float64(w * h)

	gray := make([]float64, w*h)
	var sumR, sumG, sumB, sumGray, sumGray2 float64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			r, g, b := float64(row[x*4]), float64(row[x*4+1]), float64(row[x*4+2])
			v := 0.299*r + 0.587*g + 0.114*b
			gray[y*w+x] = v
			sumR += r
			sumG += g
			sumB += b
			sumGray += v
			sumGray2 += v * v
		}
	}

	meanR, meanG, meanB := sumR/n, sumG/n, sumB/n
	meanGray := sumGray / n
	variance := math.Max(0, sumGray2/n-meanGray*meanGray)

	m := metrics{
		brightness: (meanR + meanG + meanB) / 3,
		contrast:   math.Sqrt(variance) / 255,
		sharpness:  laplacianVariance(gray, w, h),
		thirds:     thirdsScore(gray, w, h),
		balance:    domain.ColorBalance{Red: 1, Green: 1, Blue: 1},
	}
	if avg := (meanR + meanG + meanB) / 3; avg > 0 {
		m.balance = domain.ColorBalance{Red: meanR / avg, Green: meanG / avg, Blue: meanB / avg}
	}
	return m
}

// laplacianVariance is the variance of the 4-neighbour Laplacian over
// interior pixels. Higher is sharper.
func laplacianVariance(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	var sum, sum2 float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			l := gray[i-w] + gray[i+w] + gray[i-1] + gray[i+1] - 4*gray[i]
			sum += l
			sum2 += l * l
		}
	}
	n := float64((w - 2) * (h - 2))
	mean := sum / n
	return math.Max(0, sum2/n-mean*mean)
}

// thirdsScore compares the share of edge pixels near the four thirds
// intersections with the share expected if edges were spread uniformly.
// The result is clamped to 0..1; 0.5 means no preference.
func thirdsScore(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	edges := make([]bool, w*h)
	total := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			gx := (gray[i-w+1] + 2*gray[i+1] + gray[i+w+1]) - (gray[i-w-1] + 2*gray[i-1] + gray[i+w-1])
			gy := (gray[i+w-1] + 2*gray[i+w] + gray[i+w+1]) - (gray[i-w-1] + 2*gray[i-w] + gray[i-w+1])
			if math.Hypot(gx, gy) > edgeThreshold {
				edges[i] = true
				total++
			}
		}
	}
	if total == 0 {
		return 0
	}

	region := min(w, h) / 10
	if region == 0 {
		return 0
	}
	near := 0
	for _, p := range [][2]int{{w / 3, h / 3}, {2 * w / 3, h / 3}, {w / 3, 2 * h / 3}, {2 * w / 3, 2 * h / 3}} {
		x1, x2 := max(0, p[0]-region), min(w, p[0]+region)
		y1, y2 := max(0, p[1]-region), min(h, p[1]+region)
		for y := y1; y < y2; y++ {
			for x := x1; x < x2; x++ {
				if edges[y*w+x] {
					near++
				}
			}
		}
	}

	expected := float64(4*(2*region)*(2*region)) / float64(w*h)
	actual := float64(near) / float64(total)
	return math.Min(1, actual/(expected*2))
}
