package light

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type State int

const (
	StateOff State = iota
	StateWorking
	StateLit
)

func (s State) String() string {
	switch s {
	case StateWorking:
		return "working"
	case StateLit:
		return "aqi_lit"
	default:
		return "off"
	}
}

const (
	workingPixels     = 16
	workingPeriod     = 8
	DefaultFrameDelay = 200 * time.Millisecond
)

var (
	workingOn  = RGB{100, 100, 100}
	workingOff = RGB{0, 0, 10}
)

// Frame computes the pixels of one render. In half mode only pixels whose index
// parity matches odd are lit.
func Frame(c RGB, length int, half, odd bool) []RGB {
	parity := 0
	if odd {
		parity = 1
	}

	pixels := make([]RGB, length)
	for idx := range pixels {
		if !half || idx%2 == parity {
			pixels[idx] = c
		} else {
			pixels[idx] = Black
		}
	}
	return pixels
}

// Policy maps consensus AQI values onto a strip.
// It owns the half mode parity, which flips on every render.
type Policy struct {
	FrameDelay time.Duration

	strip   Strip
	levels  Levels
	useHalf bool
	odd     bool
	state   State
	level   string
}

func NewPolicy(strip Strip, levels Levels, useHalf bool) *Policy {
	return &Policy{
		FrameDelay: DefaultFrameDelay,
		strip:      strip,
		levels:     levels,
		useHalf:    useHalf,
	}
}

func (p *Policy) State() State {
	return p.state
}

// Level is the name of the level currently lit, empty when not lit.
func (p *Policy) Level() string {
	return p.level
}

// SetLight renders the level matching aqi. When no level matches, the strip
// is left untouched and false is returned.
func (p *Policy) SetLight(aqi float64) (Level, bool, error) {
	level, ok := p.levels.Select(aqi)
	if !ok {
		log.Warnf("no light level configured for pm2.5 AQI %.1f, light not updated", aqi)
		return Level{}, false, nil
	}

	if level.Name != p.level || p.state != StateLit {
		log.Infof("setting new light level to: %s for pm2.5 AQI: %.1f", level.Name, aqi)
	}
	if err := p.SetRGB(level.Color); err != nil {
		return level, true, err
	}
	p.level = level.Name
	return level, true, nil
}

func (p *Policy) SetRGB(c RGB) error {
	log.Debugf("update LED with RGB: %s", c)
	for idx, px := range Frame(c, p.strip.Len(), p.useHalf, p.odd) {
		p.strip.SetPixel(idx, px)
	}
	p.odd = !p.odd

	if err := p.strip.Show(); err != nil {
		return errors.Wrap(err, "failed to show strip")
	}
	p.state = StateLit
	return nil
}

// Working plays the chaser animation for the given number of loops and then
// turns the strip off. Each loop is a chase over 8 pixels followed by a dim pause.
func (p *Policy) Working(ctx context.Context, loops int) error {
	p.state = StateWorking
	p.level = ""

	n := min(workingPixels, p.strip.Len())
	for l := 0; l < loops; l++ {
		for i := 0; i < workingPixels; i++ {
			for idx := 0; idx < n; idx++ {
				if idx%workingPeriod == i {
					p.strip.SetPixel(idx, workingOn)
				} else {
					p.strip.SetPixel(idx, workingOff)
				}
			}
			if err := p.strip.Show(); err != nil {
				return errors.Wrap(err, "failed to show strip")
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.FrameDelay):
			}
		}
	}

	return p.Off()
}

func (p *Policy) Off() error {
	p.strip.Fill(Black)
	p.state = StateOff
	p.level = ""
	return errors.Wrap(p.strip.Show(), "failed to show strip")
}
