package layout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Ellipsis is appended to shortened text
const Ellipsis = "..."

// Truncate fits text into maxWidth pixels as measured by face.
// Text that already fits is returned unchanged. Otherwise the result is the
// longest rune prefix p for which p+Ellipsis fits, or "" if not even the
// ellipsis does.
func Truncate(face font.Face, text string, maxWidth int) string {
	limit := fixed.I(maxWidth)
	if font.MeasureString(face, text) <= limit {
		return text
	}

	runes := []rune(text)
	for n := len(runes) - 1; n >= 0; n-- {
		candidate := string(runes[:n]) + Ellipsis
		if font.MeasureString(face, candidate) <= limit {
			return candidate
		}
	}
	return ""
}
