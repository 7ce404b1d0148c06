package light

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Level lights the strip in Color for AQI values below Threshold.
type Level struct {
	Threshold float64
	Name      string
	Color     RGB
}

// Levels is ordered by ascending threshold.
type Levels []Level

func NewLevels(levels ...Level) (Levels, error) {
	l := append(Levels(nil), levels...)
	sort.SliceStable(l, func(i, j int) bool { return l[i].Threshold < l[j].Threshold })
	for i := 1; i < len(l); i++ {
		if l[i].Threshold == l[i-1].Threshold {
			return nil, errors.Errorf("levels %s and %s share threshold %v", l[i-1].Name, l[i].Name, l[i].Threshold)
		}
	}
	return l, nil
}

// ParseLevel reads a level written as "r,g,b|threshold".
func ParseLevel(name, s string) (Level, error) {
	parts := strings.Split(strings.TrimSpace(s), "|")
	if len(parts) != 2 {
		return Level{}, errors.Errorf("level %s: expected r,g,b|threshold, got %q", name, s)
	}

	channels := strings.Split(parts[0], ",")
	if len(channels) != 3 {
		return Level{}, errors.Errorf("level %s: expected 3 color channels, got %q", name, parts[0])
	}
	var rgb [3]uint8
	for i, ch := range channels {
		v, err := strconv.ParseUint(strings.TrimSpace(ch), 10, 8)
		if err != nil {
			return Level{}, errors.Wrapf(err, "level %s: bad color channel", name)
		}
		rgb[i] = uint8(v)
	}

	th, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Level{}, errors.Wrapf(err, "level %s: bad threshold", name)
	}

	return Level{Threshold: th, Name: name, Color: RGB{rgb[0], rgb[1], rgb[2]}}, nil
}

// Select returns the first level whose threshold is above aqi.
// No level matches when aqi is at or above the highest threshold.
func (l Levels) Select(aqi float64) (Level, bool) {
	for _, level := range l {
		if aqi < level.Threshold {
			return level, true
		}
	}
	return Level{}, false
}
