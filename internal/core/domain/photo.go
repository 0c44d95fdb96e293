package domain

import (
	"fmt"
	"strings"
)

// PhotoAnalysis is the technical signal computed from a photo's pixels.
type PhotoAnalysis struct {
	// Width and Height are the original pixel dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// AspectRatio is Width / Height.
	AspectRatio float64 `json:"aspect_ratio"`

	// Brightness is the mean grey level in 0..255.
	Brightness float64 `json:"brightness"`

	// Contrast is the grey standard deviation divided by 255.
	Contrast float64 `json:"contrast"`

	// Sharpness is the variance of the Laplacian of the grey image.
	Sharpness float64 `json:"sharpness"`

	// ColorBalance is each channel's mean relative to the grey mean.
	ColorBalance ColorBalance `json:"color_balance"`

	// RuleOfThirds is the share of edge energy near the thirds lines, 0..1.
	RuleOfThirds float64 `json:"rule_of_thirds"`

	// Format is the decoded image format (jpeg, png, gif, webp).
	Format string `json:"format"`
}

// ColorBalance holds per-channel means relative to the overall mean.
type ColorBalance struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// MaxDeviation returns the largest absolute deviation of a channel from 1.
func (c ColorBalance) MaxDeviation() float64 {
	dev := 0.0
	for _, v := range []float64{c.Red, c.Green, c.Blue} {
		d := v - 1
		if d < 0 {
			d = -d
		}
		if d > dev {
			dev = d
		}
	}
	return dev
}

// Thresholds used to describe a photo in words.
const (
	DarkBrightness     = 80.0
	BrightBrightness   = 180.0
	LowContrast        = 0.3
	HighContrast       = 0.7
	BlurrySharpness    = 100.0
	SharpSharpness     = 500.0
	PoorComposition    = 0.3
	GoodComposition    = 0.6
	ColorCastDeviation = 0.15
)

// Aspects returns short phrases describing the analysis, used to build
// retrieval queries and prompt context.
func (a *PhotoAnalysis) Aspects() []string {
	var aspects []string
	switch {
	case a.Brightness < DarkBrightness:
		aspects = append(aspects, "dark underexposed image")
	case a.Brightness > BrightBrightness:
		aspects = append(aspects, "bright overexposed image")
	}
	switch {
	case a.Contrast < LowContrast:
		aspects = append(aspects, "low contrast")
	case a.Contrast > HighContrast:
		aspects = append(aspects, "high contrast")
	}
	switch {
	case a.RuleOfThirds < PoorComposition:
		aspects = append(aspects, "poor composition centered subject")
	case a.RuleOfThirds > GoodComposition:
		aspects = append(aspects, "good composition rule of thirds")
	}
	switch {
	case a.Sharpness < BlurrySharpness:
		aspects = append(aspects, "blurry soft focus")
	case a.Sharpness > SharpSharpness:
		aspects = append(aspects, "sharp detailed focus")
	}
	if a.ColorBalance.MaxDeviation() > ColorCastDeviation {
		aspects = append(aspects, "color cast white balance")
	}
	if a.Height > a.Width {
		aspects = append(aspects, "portrait orientation")
	}
	return aspects
}

// Describe renders the analysis as prompt context.
func (a *PhotoAnalysis) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dimensions: %dx%d (aspect ratio %.2f)\n", a.Width, a.Height, a.AspectRatio)
	fmt.Fprintf(&b, "Brightness: %.1f/255 (ideal 80-180)\n", a.Brightness)
	fmt.Fprintf(&b, "Contrast: %.2f (ideal 0.4-0.7)\n", a.Contrast)
	fmt.Fprintf(&b, "Sharpness: %.1f (below 100 is blurry, above 500 is sharp)\n", a.Sharpness)
	fmt.Fprintf(&b, "Rule of thirds: %.2f (0-1)\n", a.RuleOfThirds)
	fmt.Fprintf(&b, "Color balance: R %.2f G %.2f B %.2f", a.ColorBalance.Red, a.ColorBalance.Green, a.ColorBalance.Blue)
	return b.String()
}

// PhotoContext is everything known about a submitted photo.
type PhotoContext struct {
	// Name is the file name or caller-supplied label.
	Name string

	// Note is an optional free-text description from the submitter.
	Note string

	// Analysis is nil when the image could not be decoded.
	Analysis *PhotoAnalysis
}

// Aspects returns descriptive phrases for retrieval.
func (p *PhotoContext) Aspects() []string {
	if p == nil || p.Analysis == nil {
		return nil
	}
	return p.Analysis.Aspects()
}

// Describe renders the photo context for a prompt.
func (p *PhotoContext) Describe() string {
	if p == nil {
		return "No photo information available."
	}
	var parts []string
	if p.Name != "" {
		parts = append(parts, "Photo: "+p.Name)
	}
	if p.Note != "" {
		parts = append(parts, "Photographer's note: "+p.Note)
	}
	if p.Analysis != nil {
		parts = append(parts, p.Analysis.Describe())
	}
	if len(parts) == 0 {
		return "No photo information available."
	}
	return strings.Join(parts, "\n")
}
