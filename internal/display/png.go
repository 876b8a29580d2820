package display

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/mono"
	"go.uber.org/zap"
)

// LatestFile is rewritten on every panel write of a Preview session
const LatestFile = "latest.png"

// Preview is a Session that writes every panel update to a PNG file
type Preview struct {
	logger *zap.Logger
	dir    string
	width  int
	height int

	mu       sync.Mutex
	seq      int
	asleep   bool
	lastPath string
}

// NewPreview creates a session writing into dir
func NewPreview(logger *zap.Logger, dir string, width, height int) *Preview {
	return &Preview{
		logger: logger,
		dir:    dir,
		width:  width,
		height: height,
	}
}

// Init creates the output directory
func (p *Preview) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return hardware("init", err)
	}
	p.asleep = false
	return nil
}

// Clear writes a frame filled with c
func (p *Preview) Clear(c color.Color) error {
	bitmap := mono.New(image.Rect(0, 0, p.width, p.height))
	if idx := uint8(mono.Palette.Index(c)); idx != mono.White {
		for i := range bitmap.Pix {
			bitmap.Pix[i] = idx
		}
	}
	return p.write("clear", bitmap)
}

// DisplayFull writes frame-NNNN-full.png
func (p *Preview) DisplayFull(frame domain.Frame) error {
	return p.write("full", frame.Bitmap)
}

// DisplayPartial writes frame-NNNN-partial.png
func (p *Preview) DisplayPartial(frame domain.Frame) error {
	return p.write("partial", frame.Bitmap)
}

// DisplayPartialBase writes frame-NNNN-base.png
func (p *Preview) DisplayPartialBase(frame domain.Frame) error {
	return p.write("base", frame.Bitmap)
}

// Sleep only logs
func (p *Preview) Sleep() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asleep = true
	p.logger.Debug("Preview panel asleep")
	return nil
}

// Close is a no-op
func (p *Preview) Close() error {
	return nil
}

// LastPath returns the file written by the most recent update
func (p *Preview) LastPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPath
}

func (p *Preview) write(kind string, bitmap *image.Paletted) error {
	if bitmap == nil {
		return hardware(kind, fmt.Errorf("empty frame"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.asleep {
		return hardware(kind, fmt.Errorf("panel is asleep"))
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return hardware(kind, err)
	}

	p.seq++
	path := filepath.Join(p.dir, fmt.Sprintf("frame-%04d-%s.png", p.seq, kind))
	if err := imaging.Save(bitmap, path); err != nil {
		return hardware(kind, err)
	}
	if err := imaging.Save(bitmap, filepath.Join(p.dir, LatestFile)); err != nil {
		return hardware(kind, err)
	}

	p.lastPath = path
	p.logger.Debug("Preview frame written", zap.String("path", path))
	return nil
}
