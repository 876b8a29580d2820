package layout

import (
	"image"
	"strings"
	"testing"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Face7x13 advances every glyph by 7px
var face = basicfont.Face7x13

func testFonts() Fonts {
	return Fonts{Status: face, Title: face, Artist: face}
}

func newTestComposer(rotate bool) *Composer {
	return NewComposer(zap.NewNop(), Options{Width: 250, Height: 122, Rotate180: rotate}, testFonts())
}

func blackArt(size int) *image.Paletted {
	p := image.NewPaletted(image.Rect(0, 0, size, size), mono.Palette)
	for i := range p.Pix {
		p.Pix[i] = mono.Black
	}
	return p
}

func inkIn(p *image.Paletted, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mono.IsBlack(p, x, y) {
				n++
			}
		}
	}
	return n
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		want     string
	}{
		{"fits unchanged", "abcdefghij", 70, "abcdefghij"},
		{"shortened with ellipsis", "abcdefghij", 40, "ab..."},
		{"ellipsis alone", "abcdefghij", 21, "..."},
		{"nothing fits", "abcdefghij", 20, ""},
		{"empty string", "", 10, ""},
		{"multibyte runes stay whole", "ééééééé", 42, "ééé..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(face, tt.text, tt.maxWidth))
		})
	}
}

func TestTruncate_LongestFittingPrefix(t *testing.T) {
	text := strings.Repeat("The quick brown fox ", 5)
	for maxWidth := 21; maxWidth < 200; maxWidth += 13 {
		got := Truncate(face, text, maxWidth)
		require.True(t, strings.HasSuffix(got, Ellipsis))
		assert.LessOrEqual(t, font.MeasureString(face, got), fixed.I(maxWidth))

		prefix := []rune(strings.TrimSuffix(got, Ellipsis))
		longer := string([]rune(text)[:len(prefix)+1]) + Ellipsis
		assert.Greater(t, font.MeasureString(face, longer), fixed.I(maxWidth),
			"a one-rune longer prefix should not fit at width %d", maxWidth)
	}
}

func TestCompose_Bounds(t *testing.T) {
	frame := newTestComposer(false).Compose(domain.NowPlayingState{}, domain.ArtResolution{})
	assert.Equal(t, image.Rect(0, 0, 250, 122), frame.Bitmap.Bounds())
	assert.False(t, frame.Rotated)
	assert.Positive(t, inkIn(frame.Bitmap, image.Rect(0, 0, 120, 20)), "header should be drawn")
}

func TestCompose_ArtPlacement(t *testing.T) {
	url := "https://img/a.jpg"
	state := domain.NowPlayingState{
		Title:     domain.StringPtr(strings.Repeat("Very Long Title ", 10)),
		Artist:    domain.StringPtr("Artist"),
		ImageURL:  domain.StringPtr(url),
		IsPlaying: true,
	}

	t.Run("matching art is pasted flush right", func(t *testing.T) {
		frame := newTestComposer(false).Compose(state, domain.ArtResolution{URL: url, Bitmap: blackArt(40), Found: true})
		assert.True(t, mono.IsBlack(frame.Bitmap, 249, 0))
		assert.True(t, mono.IsBlack(frame.Bitmap, 210, 39))
		// text is limited to 250-40-5-5 = 200px starting at x=5
		assert.Zero(t, inkIn(frame.Bitmap, image.Rect(205, 0, 210, 40)))
	})

	t.Run("stale art is ignored", func(t *testing.T) {
		frame := newTestComposer(false).Compose(state, domain.ArtResolution{URL: "https://img/old.jpg", Bitmap: blackArt(40), Found: true})
		assert.False(t, mono.IsBlack(frame.Bitmap, 249, 0))
	})

	t.Run("without art the title uses the full width", func(t *testing.T) {
		frame := newTestComposer(false).Compose(state, domain.ArtAbsent(url))
		assert.Positive(t, inkIn(frame.Bitmap, image.Rect(205, titleY, 245, titleY+13)))
		assert.Zero(t, inkIn(frame.Bitmap, image.Rect(245, 0, 250, 122)))
	})
}

func TestLineWidth(t *testing.T) {
	c := newTestComposer(false)
	art := blackArt(48)

	assert.Equal(t, 240, c.lineWidth(titleY, nil))
	assert.Equal(t, 250-48-10, c.lineWidth(titleY, art))
	// album line starts below the art plus clearance
	assert.Equal(t, 240, c.lineWidth(albumY, art))
}

func TestCompose_StatusFrames(t *testing.T) {
	art := domain.ArtResolution{URL: "https://img/a.jpg", Bitmap: blackArt(40), Found: true}

	tests := []struct {
		name  string
		state domain.NowPlayingState
	}{
		{"nothing playing", domain.NowPlayingState{Error: domain.ErrorNothingPlaying, ImageURL: domain.StringPtr(art.URL)}},
		{"paused", domain.NowPlayingState{Title: domain.StringPtr("Song"), ImageURL: domain.StringPtr(art.URL)}},
		{"transient error", domain.NowPlayingState{Error: domain.ErrorTransient, ErrorMessage: "status 502"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := newTestComposer(false).Compose(tt.state, art)
			assert.False(t, mono.IsBlack(frame.Bitmap, 249, 0), "status frames never carry art")
			assert.Positive(t, inkIn(frame.Bitmap, image.Rect(0, titleY, 250, titleY+15)), "status line drawn")
			assert.Zero(t, inkIn(frame.Bitmap, image.Rect(0, artistY, 250, 122)), "single line only")
		})
	}
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "No music playing", idleLine(domain.NowPlayingState{Error: domain.ErrorNothingPlaying}))
	assert.Equal(t, "Paused: Song", idleLine(domain.NowPlayingState{Title: domain.StringPtr("Song")}))
	assert.Equal(t, "Error: status 502", errorLine(domain.NowPlayingState{Error: domain.ErrorTransient, ErrorMessage: "status 502"}))
	assert.Equal(t, "Error: Feed unavailable", errorLine(domain.NowPlayingState{Error: domain.ErrorFatal}))
}

func TestCompose_Rotate180(t *testing.T) {
	frame := newTestComposer(true).Compose(domain.NowPlayingState{Error: domain.ErrorNothingPlaying}, domain.ArtResolution{})
	assert.True(t, frame.Rotated)
	assert.Zero(t, inkIn(frame.Bitmap, image.Rect(0, 0, 120, 20)), "header moved away from top-left")
	assert.Positive(t, inkIn(frame.Bitmap, image.Rect(130, 102, 250, 122)), "header is bottom-right")
}

func TestLoadFonts_Embedded(t *testing.T) {
	fonts, err := LoadFonts("")
	require.NoError(t, err)
	require.NotNil(t, fonts.Title)
	assert.Greater(t, font.MeasureString(fonts.Title, "Now"), fixed.I(0))
}

func TestLoadFonts_MissingFile(t *testing.T) {
	_, err := LoadFonts("/nonexistent/font.ttf")
	assert.Error(t, err)
}
