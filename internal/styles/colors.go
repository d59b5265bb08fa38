// Package styles repairs color contrast at the stylesheet level: WCAG
// contrast math, replacement color search, and selector-scoped rule
// generation appended to a project's global stylesheet.
package styles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ContrastRatioMax is the ratio of pure black on pure white, the highest
// value the WCAG formula can produce.
const ContrastRatioMax = 21.0

// DefaultRequiredRatio is the WCAG AA threshold for normal-size text.
const DefaultRequiredRatio = 4.5

const (
	luminanceThreshold = 0.5
	contrastAdjustment = 0.05

	channelThreshold = 0.03928
	channelDivisor   = 12.92
	channelGamma     = 2.4
)

// Candidate palettes tried in order when searching for a compliant
// replacement, darkest-first against light backgrounds and lightest-first
// against dark ones.
var (
	darkCandidates = []string{
		"#000000", "#212121", "#424242", "#000080", "#006400",
		"#8B0000", "#4A4A4A", "#2C2C2C",
	}
	lightCandidates = []string{
		"#FFFFFF", "#F5F5F5", "#E0E0E0", "#FFD700", "#00FFFF",
		"#FFFF00", "#D3D3D3", "#C0C0C0",
	}
)

// RGB is a color with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// ParseHex parses #rgb and #rrggbb forms, with or without the leading hash.
func ParseHex(hex string) (RGB, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func adjustChannel(c float64) float64 {
	if c <= channelThreshold {
		return c / channelDivisor
	}
	return math.Pow((c+0.055)/1.055, channelGamma)
}

// Luminance computes relative luminance per WCAG 2.x.
func Luminance(c RGB) float64 {
	r := adjustChannel(float64(c.R) / 255.0)
	g := adjustChannel(float64(c.G) / 255.0)
	b := adjustChannel(float64(c.B) / 255.0)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ContrastRatio computes the WCAG contrast ratio between two hex colors,
// in [1, 21].
func ContrastRatio(hexA, hexB string) (float64, error) {
	a, err := ParseHex(hexA)
	if err != nil {
		return 0, err
	}
	b, err := ParseHex(hexB)
	if err != nil {
		return 0, err
	}
	lumA, lumB := Luminance(a), Luminance(b)
	lighter, darker := math.Max(lumA, lumB), math.Min(lumA, lumB)
	if darker == 0 {
		return ContrastRatioMax, nil
	}
	return (lighter + contrastAdjustment) / (darker + contrastAdjustment), nil
}

// IsLight reports whether a background color counts as light, which decides
// the candidate palette.
func IsLight(hex string) bool {
	c, err := ParseHex(hex)
	if err != nil {
		return true
	}
	return Luminance(c) > luminanceThreshold
}

// ParseRequiredRatio parses the "4.5:1" form audit reports use for expected
// contrast ratios. Anything unparseable falls back to the AA default.
func ParseRequiredRatio(s string) float64 {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), ":1")
	if trimmed == "" {
		return DefaultRequiredRatio
	}
	ratio, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || ratio <= 0 {
		return DefaultRequiredRatio
	}
	return ratio
}

// FindContrastingColor returns a text color that reaches the required ratio
// against the given background: dark candidates on light backgrounds, light
// candidates on dark ones, falling back to plain black or white when no
// candidate reaches the ratio. An unparseable background yields black.
func FindContrastingColor(bgHex string, requiredRatio float64) string {
	if _, err := ParseHex(bgHex); err != nil {
		return "#000000"
	}

	lightBg := IsLight(bgHex)
	candidates := lightCandidates
	if lightBg {
		candidates = darkCandidates
	}

	for _, candidate := range candidates {
		if ratio, err := ContrastRatio(candidate, bgHex); err == nil && ratio >= requiredRatio {
			return candidate
		}
	}

	if lightBg {
		return "#000000"
	}
	return "#FFFFFF"
}
