package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/genricoloni/nowink/internal/mono"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/webp" // WebP format support
)

const defaultArtSize = 96

// ArtConfig holds the album-art pipeline settings
type ArtConfig struct {
	Size         int // edge of the square output bitmap
	CornerRadius int // 0 keeps square corners
	Dither       mono.Method
}

// ArtProcessor turns downloaded album art into a square 1-bit bitmap
type ArtProcessor struct {
	logger *zap.Logger
	config ArtConfig
	mask   *image.Alpha // rounded-corner coverage, nil when disabled
}

// NewArtProcessor creates a processor for the given configuration
func NewArtProcessor(logger *zap.Logger, cfg ArtConfig) *ArtProcessor {
	if cfg.Size <= 0 {
		cfg.Size = defaultArtSize
	}
	if cfg.Dither == "" {
		cfg.Dither = mono.FloydSteinberg
	}
	p := &ArtProcessor{logger: logger, config: cfg}
	if cfg.CornerRadius > 0 {
		p.mask = roundedMask(cfg.Size, cfg.CornerRadius)
	}
	return p
}

// Size returns the edge length of produced bitmaps
func (p *ArtProcessor) Size() int {
	return p.config.Size
}

// Process decodes imageData and returns a Size x Size bitmap
func (p *ArtProcessor) Process(ctx context.Context, imageData []byte) (*image.Paletted, error) {
	// 1. Decode, honouring EXIF orientation
	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dy() == 0 || bounds.Dx() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Scale so the longer side fills the square, up or down
	size := p.config.Size
	w, h := fitDimensions(bounds.Dx(), bounds.Dy(), size)
	p.logger.Debug("Resizing album art",
		zap.Int("srcW", bounds.Dx()), zap.Int("srcH", bounds.Dy()),
		zap.Int("w", w), zap.Int("h", h))
	scaled := imaging.Resize(img, w, h, imaging.Lanczos)

	// 3. Center on a white square canvas
	canvas := imaging.PasteCenter(imaging.New(size, size, color.White), scaled)

	// 4. Round the corners
	if p.mask != nil {
		applyMask(canvas, p.mask)
	}

	// 5. Reduce to two colours
	bitmap := mono.Convert(imaging.Grayscale(canvas), p.config.Dither)

	p.logger.Debug("Album art processed", zap.Int("size", size), zap.String("dither", string(p.config.Dither)))
	return bitmap, nil
}

// fitDimensions scales w x h so that its longer side equals size
func fitDimensions(w, h, size int) (int, int) {
	if w >= h {
		nh := (h*size + w/2) / w
		return size, max(nh, 1)
	}
	nw := (w*size + h/2) / h
	return max(nw, 1), size
}

// roundedMask is opaque inside the rounded square and transparent outside
func roundedMask(size, radius int) *image.Alpha {
	dc := gg.NewContext(size, size)
	dc.SetColor(color.Black)
	dc.DrawRoundedRectangle(0, 0, float64(size), float64(size), float64(radius))
	dc.Fill()
	return dc.AsMask()
}

// applyMask blends every pixel towards white by its uncovered fraction
func applyMask(img *image.NRGBA, mask *image.Alpha) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := uint32(mask.AlphaAt(x-b.Min.X, y-b.Min.Y).A)
			if a == 0xff {
				continue
			}
			i := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := uint32(img.Pix[i+c])
				img.Pix[i+c] = uint8((v*a + 0xff*(0xff-a)) / 0xff)
			}
		}
	}
}
