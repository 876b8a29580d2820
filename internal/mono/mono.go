// Package mono holds the 1-bit bitmap helpers shared by the art pipeline,
// the layout engine and the display sessions.
package mono

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Palette index values
const (
	Black uint8 = 0
	White uint8 = 1
)

// Palette is the two-colour palette of every bitmap produced by this package
var Palette = color.Palette{color.Black, color.White}

// Method selects how continuous-tone images are reduced to two colours
type Method string

const (
	// FloydSteinberg is error-diffusion dithering
	FloydSteinberg Method = "floyd-steinberg"
	// Ordered is 4x4 Bayer matrix dithering
	Ordered Method = "ordered"
	// Threshold is a hard cut at mid-grey, used for text
	Threshold Method = "threshold"
)

// ParseMethod validates a configured dithering name
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case FloydSteinberg, Ordered, Threshold:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown dither method %q", s)
	}
}

// New returns an all-white bitmap
func New(r image.Rectangle) *image.Paletted {
	p := image.NewPaletted(r, Palette)
	for i := range p.Pix {
		p.Pix[i] = White
	}
	return p
}

// Convert reduces src to a bitmap with the given method
func Convert(src image.Image, m Method) *image.Paletted {
	switch m {
	case FloydSteinberg:
		dst := image.NewPaletted(src.Bounds(), Palette)
		draw.FloydSteinberg.Draw(dst, dst.Bounds(), src, src.Bounds().Min)
		return dst
	case Ordered:
		return ordered(src)
	default:
		return threshold(src, 128)
	}
}

// IsBlack reports whether the pixel at (x, y) is ink
func IsBlack(p *image.Paletted, x, y int) bool {
	return p.ColorIndexAt(x, y) == Black
}

func luma(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}

func threshold(src image.Image, level uint8) *image.Paletted {
	b := src.Bounds()
	dst := image.NewPaletted(b, Palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if luma(src.At(x, y)) >= level {
				dst.SetColorIndex(x, y, White)
			} else {
				dst.SetColorIndex(x, y, Black)
			}
		}
	}
	return dst
}

var bayer4 = [4][4]int{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

func ordered(src image.Image) *image.Paletted {
	b := src.Bounds()
	dst := image.NewPaletted(b, Palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// (2k+1)*8 spreads the 16 levels across 8..248
			level := (bayer4[y&3][x&3]*2 + 1) * 8
			if int(luma(src.At(x, y))) >= level {
				dst.SetColorIndex(x, y, White)
			} else {
				dst.SetColorIndex(x, y, Black)
			}
		}
	}
	return dst
}
