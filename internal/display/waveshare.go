package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/nowink/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
)

// panel is the subset of the periph e-paper driver used by the session
type panel interface {
	Init() error
	Clear(c color.Color) error
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Sleep() error
	Halt() error
	Bounds() image.Rectangle
}

// openFunc opens the SPI bus and the panel driver
type openFunc func() (panel, spi.PortCloser, error)

// Waveshare drives a Waveshare 2.13" v4 HAT over SPI.
// Landscape frames are turned 90 degrees clockwise onto the portrait controller.
type Waveshare struct {
	logger *zap.Logger
	open   openFunc

	mu     sync.Mutex
	dev    panel
	port   spi.PortCloser
	base   *image.Paletted
	asleep bool
}

// NewWaveshare returns a session that opens the hardware on first use
func NewWaveshare(logger *zap.Logger) *Waveshare {
	return &Waveshare{
		logger: logger,
		open:   openHat,
	}
}

func openHat() (panel, spi.PortCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open("")
	if err != nil {
		return nil, nil, fmt.Errorf("open spi port: %w", err)
	}

	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("open waveshare hat: %w", err), port.Close())
	}
	return dev, port, nil
}

// device opens the panel lazily. Caller holds mu.
func (w *Waveshare) device() (panel, error) {
	if w.dev != nil {
		return w.dev, nil
	}
	dev, port, err := w.open()
	if err != nil {
		return nil, hardware("open", err)
	}
	w.dev, w.port = dev, port
	w.logger.Info("E-paper panel opened", zap.Stringer("bounds", dev.Bounds()))
	return dev, nil
}

// Init wakes the controller
func (w *Waveshare) Init() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dev, err := w.device()
	if err != nil {
		return err
	}
	if err := dev.Init(); err != nil {
		return hardware("init", err)
	}
	w.asleep = false
	return nil
}

// Clear fills the panel with c
func (w *Waveshare) Clear(c color.Color) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dev, err := w.device()
	if err != nil {
		return err
	}
	if err := dev.Clear(c); err != nil {
		return hardware("clear", err)
	}
	return nil
}

// DisplayFull writes the frame with a full refresh
func (w *Waveshare) DisplayFull(frame domain.Frame) error {
	return w.draw("display full", frame)
}

// DisplayPartial writes the frame on top of the last base image.
// The v4 driver has no partial update mode: its Draw always runs the full
// waveform, so a partial write costs the same as a full one.
func (w *Waveshare) DisplayPartial(frame domain.Frame) error {
	return w.draw("display partial", frame)
}

// DisplayPartialBase records the reference image
func (w *Waveshare) DisplayPartialBase(frame domain.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base = frame.Bitmap
	return nil
}

func (w *Waveshare) draw(op string, frame domain.Frame) error {
	if frame.Bitmap == nil {
		return hardware(op, fmt.Errorf("empty frame"))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dev, err := w.device()
	if err != nil {
		return err
	}

	img := toPanel(frame.Bitmap, dev.Bounds())
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		return hardware(op, err)
	}
	return nil
}

// toPanel maps a landscape bitmap onto the controller's portrait memory layout
func toPanel(src *image.Paletted, bounds image.Rectangle) *image1bit.VerticalLSB {
	var oriented image.Image = src
	if src.Bounds().Dx() > src.Bounds().Dy() && bounds.Dx() < bounds.Dy() {
		oriented = imaging.Rotate270(src)
	}

	dst := image1bit.NewVerticalLSB(bounds)
	draw.Draw(dst, bounds, &image.Uniform{C: image1bit.On}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, oriented, oriented.Bounds().Min, draw.Src)
	return dst
}

// Sleep puts the controller into deep sleep
func (w *Waveshare) Sleep() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dev == nil {
		return nil
	}
	if err := w.dev.Sleep(); err != nil {
		return hardware("sleep", err)
	}
	w.asleep = true
	return nil
}

// Close halts the driver and releases the SPI port. The session may be
// reopened by a later Init. Halt clears the panel, so it is skipped once the
// controller is in deep sleep: a sleeping controller never drops BUSY.
func (w *Waveshare) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dev == nil {
		return nil
	}

	var err error
	if !w.asleep {
		if haltErr := w.dev.Halt(); haltErr != nil {
			err = multierr.Append(err, hardware("halt", haltErr))
		}
	}
	if w.port != nil {
		if closeErr := w.port.Close(); closeErr != nil {
			err = multierr.Append(err, hardware("close spi port", closeErr))
		}
	}
	w.dev, w.port, w.asleep = nil, nil, false
	return err
}

func hardware(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrDisplayHardware, op, err)
}
