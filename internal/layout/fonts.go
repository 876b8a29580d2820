package layout

import (
	"fmt"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Point sizes, 1pt == 1px at 72 DPI
const (
	TitleSize  = 18
	ArtistSize = 16
	StatusSize = 12
)

// Fonts are the faces used by the composer
type Fonts struct {
	Status font.Face // header, status lines, album
	Title  font.Face
	Artist font.Face
}

// LoadFonts loads faces from a TTF file, or the embedded Go fonts when path is empty
func LoadFonts(path string) (Fonts, error) {
	if path == "" {
		return embeddedFonts()
	}

	var fonts Fonts
	var err error
	if fonts.Status, err = gg.LoadFontFace(path, StatusSize); err != nil {
		return Fonts{}, fmt.Errorf("failed to load font %s: %w", path, err)
	}
	if fonts.Title, err = gg.LoadFontFace(path, TitleSize); err != nil {
		return Fonts{}, fmt.Errorf("failed to load font %s: %w", path, err)
	}
	if fonts.Artist, err = gg.LoadFontFace(path, ArtistSize); err != nil {
		return Fonts{}, fmt.Errorf("failed to load font %s: %w", path, err)
	}
	return fonts, nil
}

func embeddedFonts() (Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return Fonts{}, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return Fonts{}, fmt.Errorf("failed to parse embedded font: %w", err)
	}

	face := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}

	var fonts Fonts
	if fonts.Status, err = face(regular, StatusSize); err != nil {
		return Fonts{}, err
	}
	if fonts.Title, err = face(bold, TitleSize); err != nil {
		return Fonts{}, err
	}
	if fonts.Artist, err = face(regular, ArtistSize); err != nil {
		return Fonts{}, err
	}
	return fonts, nil
}
