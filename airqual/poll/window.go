package poll

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ActiveWindow is a daily window of whole hours. It crosses midnight when
// Start is not before End.
type ActiveWindow struct {
	Start, End int
}

// AlwaysActive covers the whole day.
var AlwaysActive = ActiveWindow{Start: 0, End: 24}

// ParseActiveWindow reads "start-end" in hours, e.g. "7-22".
func ParseActiveWindow(s string) (ActiveWindow, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return ActiveWindow{}, errors.Errorf("active time %q is not start-end", s)
	}

	var hours [2]int
	for i, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return ActiveWindow{}, errors.Wrapf(err, "active time %q", s)
		}
		if h < 0 || h > 24 {
			return ActiveWindow{}, errors.Errorf("active time %q: hour %d out of range", s, h)
		}
		hours[i] = h
	}
	return ActiveWindow{Start: hours[0], End: hours[1]}, nil
}

func (w ActiveWindow) Contains(t time.Time) bool {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	now := t.Sub(midnight)
	start := time.Duration(w.Start) * time.Hour
	end := time.Duration(w.End) * time.Hour

	if start < end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}

func (w ActiveWindow) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.Start, w.End)
}
