package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinTextContrast is the WCAG AA ratio for normal text.
const MinTextContrast = 4.5

// ContrastPair is a foreground/background combination the theme renders.
type ContrastPair struct {
	Name       string
	Foreground string
	Background string
}

// ContrastResult is the measured ratio of one pair.
type ContrastResult struct {
	ContrastPair
	Ratio float64
}

// Legible reports whether the pair meets MinTextContrast.
func (r ContrastResult) Legible() bool {
	return r.Ratio >= MinTextContrast
}

// CheckContrast measures every pair. Colors must be #rrggbb or #rrggbbaa
// (alpha ignored).
func CheckContrast(pairs []ContrastPair) ([]ContrastResult, error) {
	results := make([]ContrastResult, 0, len(pairs))
	for _, p := range pairs {
		ratio, err := ContrastRatio(p.Foreground, p.Background)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		results = append(results, ContrastResult{ContrastPair: p, Ratio: ratio})
	}
	return results, nil
}

// ContrastRatio returns the WCAG contrast ratio between two hex colors.
func ContrastRatio(fg, bg string) (float64, error) {
	l1, err := luminance(fg)
	if err != nil {
		return 0, err
	}
	l2, err := luminance(bg)
	if err != nil {
		return 0, err
	}
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05), nil
}

func luminance(hex string) (float64, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 && len(h) != 8 {
		return 0, fmt.Errorf("invalid color %q", hex)
	}
	var channels [3]float64
	for i := range channels {
		v, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid color %q", hex)
		}
		channels[i] = linearize(float64(v) / 255)
	}
	return 0.2126*channels[0] + 0.7152*channels[1] + 0.0722*channels[2], nil
}

// linearize converts an sRGB channel to linear light.
func linearize(c float64) float64 {
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
