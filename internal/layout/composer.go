// Package layout renders a NowPlayingState into a panel-sized 1-bit frame.
package layout

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/mono"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

const (
	margin = 5
	// minimum vertical gap between the art's bottom edge and a full-width line
	artClearance = 4

	headerY = 5
	titleY  = 25
	artistY = 50
	albumY  = 72
	statusY = 94

	// DefaultHeader is drawn at the top-left of every frame
	DefaultHeader = "Now Playing:"
	idleText      = "No music playing"
	pausedText    = "Paused"
	playingText   = "Playing"
	feedDownText  = "Feed unavailable"
)

// Options configures the composed frame
type Options struct {
	Width     int
	Height    int
	Header    string
	Rotate180 bool
}

// Composer implements domain.Composer
type Composer struct {
	logger *zap.Logger
	opts   Options
	fonts  Fonts
}

// NewComposer creates a composer for a landscape panel
func NewComposer(logger *zap.Logger, opts Options, fonts Fonts) *Composer {
	if opts.Header == "" {
		opts.Header = DefaultHeader
	}
	return &Composer{logger: logger, opts: opts, fonts: fonts}
}

// Compose draws state, pasting art only when it belongs to the state's image URL
func (c *Composer) Compose(state domain.NowPlayingState, art domain.ArtResolution) domain.Frame {
	w, h := c.opts.Width, c.opts.Height

	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	c.drawText(dc, c.fonts.Status, c.opts.Header, margin, headerY, w-2*margin)

	var artImg *image.Paletted
	switch state.Playback() {
	case domain.PlaybackActive:
		if art.Found && art.Bitmap != nil && art.URL == state.ImageURLOr("") {
			artImg = art.Bitmap
		} else if art.Found {
			c.logger.Debug("Ignoring art for a different track", zap.String("artURL", art.URL))
		}
		c.drawTrack(dc, state, artImg)
	case domain.PlaybackIdle:
		c.drawText(dc, c.fonts.Status, idleLine(state), margin, titleY, w-2*margin)
	case domain.PlaybackError:
		c.drawText(dc, c.fonts.Status, errorLine(state), margin, titleY, w-2*margin)
	}

	canvas := imaging.Clone(dc.Image())
	if artImg != nil {
		canvas = imaging.Paste(canvas, artImg, image.Pt(w-artImg.Bounds().Dx(), 0))
	}
	if c.opts.Rotate180 {
		canvas = imaging.Rotate180(canvas)
	}

	return domain.Frame{
		Bitmap:  mono.Convert(canvas, mono.Threshold),
		Rotated: c.opts.Rotate180,
	}
}

func (c *Composer) drawTrack(dc *gg.Context, state domain.NowPlayingState, art *image.Paletted) {
	lines := []struct {
		text string
		face font.Face
		y    int
	}{
		{state.TitleOr(""), c.fonts.Title, titleY},
		{state.ArtistOr(""), c.fonts.Artist, artistY},
		{state.AlbumOr(""), c.fonts.Status, albumY},
		{playingText, c.fonts.Status, statusY},
	}

	for _, l := range lines {
		if l.text == "" {
			continue
		}
		c.drawText(dc, l.face, l.text, margin, l.y, c.lineWidth(l.y, art))
	}
}

// lineWidth is the room left for a line whose top edge sits at y
func (c *Composer) lineWidth(y int, art *image.Paletted) int {
	full := c.opts.Width - 2*margin
	if art == nil {
		return full
	}
	b := art.Bounds()
	if y >= b.Dy()+artClearance {
		return full
	}
	return c.opts.Width - b.Dx() - margin - margin
}

// drawText draws text with its top-left corner at (x, y)
func (c *Composer) drawText(dc *gg.Context, face font.Face, text string, x, y, maxWidth int) {
	text = Truncate(face, text, maxWidth)
	if text == "" {
		return
	}
	dc.SetFontFace(face)
	dc.DrawStringAnchored(text, float64(x), float64(y), 0, 1)
}

func idleLine(state domain.NowPlayingState) string {
	if state.Error == domain.ErrorNothingPlaying || state.Title == nil {
		return idleText
	}
	return pausedText + ": " + *state.Title
}

func errorLine(state domain.NowPlayingState) string {
	if state.ErrorMessage == "" {
		return "Error: " + feedDownText
	}
	return "Error: " + state.ErrorMessage
}
