// Package output classifies packaging tool output for display.
package output

import "strings"

// Color is a display color tag for a chunk of text
type Color int

const (
	ColorDefault Color = iota // white / neutral
	ColorRed
	ColorAmber
	ColorGreen
)

// String returns the color name
func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorAmber:
		return "amber"
	case ColorGreen:
		return "green"
	default:
		return "default"
	}
}

// Classify picks the display color of a chunk of text by keyword.
//
// Precedence: "error" (case-sensitive) or "failed" (any case) is red, then
// "warning" is amber, then "SUCCESSFUL" or "completed" is green.
func Classify(text string) Color {
	hasError := strings.Contains(text, "error")
	hasFailed := strings.Contains(strings.ToLower(text), "failed")

	switch {
	case hasError || hasFailed:
		return ColorRed
	case strings.Contains(text, "warning"):
		return ColorAmber
	case strings.Contains(text, "SUCCESSFUL") || strings.Contains(text, "completed"):
		return ColorGreen
	default:
		return ColorDefault
	}
}
