package light

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

type RGB struct {
	R, G, B uint8
}

var Black = RGB{}

func (c RGB) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

func (c RGB) scale(brightness float64) RGB {
	return RGB{
		R: uint8(float64(c.R) * brightness),
		G: uint8(float64(c.G) * brightness),
		B: uint8(float64(c.B) * brightness),
	}
}

// Strip is an addressable LED strip. Writes are buffered until Show.
type Strip interface {
	Len() int
	SetPixel(index int, c RGB)
	Fill(c RGB)
	Show() error
}

// SimulatedStrip keeps pixels in memory, for running without LED hardware.
type SimulatedStrip struct {
	Brightness float64
	Pin        string

	pixels []RGB
	shown  []RGB
	shows  int
}

func NewSimulatedStrip(pin string, numPixels int, brightness float64) *SimulatedStrip {
	log.Debugf("simulated strip on %s: %d pixels, brightness %.2f", pin, numPixels, brightness)
	return &SimulatedStrip{
		Brightness: brightness,
		Pin:        pin,
		pixels:     make([]RGB, numPixels),
		shown:      make([]RGB, numPixels),
	}
}

func (s *SimulatedStrip) Len() int {
	return len(s.pixels)
}

func (s *SimulatedStrip) SetPixel(index int, c RGB) {
	if index < 0 || index >= len(s.pixels) {
		log.Warnf("invalid pixel index %d, valid range: 0-%d", index, len(s.pixels)-1)
		return
	}
	s.pixels[index] = c.scale(s.Brightness)
}

func (s *SimulatedStrip) Fill(c RGB) {
	scaled := c.scale(s.Brightness)
	for i := range s.pixels {
		s.pixels[i] = scaled
	}
}

func (s *SimulatedStrip) Show() error {
	copy(s.shown, s.pixels)
	s.shows++
	log.Debugf("simulated strip show: %v", s.shown)
	return nil
}

// Pixels returns what the last Show displayed.
func (s *SimulatedStrip) Pixels() []RGB {
	out := make([]RGB, len(s.shown))
	copy(out, s.shown)
	return out
}

func (s *SimulatedStrip) Shows() int {
	return s.shows
}
