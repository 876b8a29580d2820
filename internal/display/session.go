// Package display holds the e-paper Session implementations.
package display

import (
	"fmt"

	"github.com/genricoloni/nowink/internal/domain"
	"go.uber.org/zap"
)

// Supported display.driver values
const (
	DriverWaveshare = "waveshare2in13v4"
	DriverPNG       = "png"
)

// Options selects and configures a Session
type Options struct {
	Driver     string
	PreviewDir string
	Width      int
	Height     int
}

// NewSession returns the Session for the configured driver
func NewSession(logger *zap.Logger, opts Options) (domain.Session, error) {
	switch opts.Driver {
	case DriverWaveshare:
		return NewWaveshare(logger), nil
	case DriverPNG:
		return NewPreview(logger, opts.PreviewDir, opts.Width, opts.Height), nil
	default:
		return nil, fmt.Errorf("unknown display driver %q", opts.Driver)
	}
}
