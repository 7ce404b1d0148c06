package poll

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alepar/airqual/airqual"
	"github.com/alepar/airqual/airqual/export"
	"github.com/alepar/airqual/airqual/light"
)

const (
	MaxConsecutiveFailures = 3
	StartupLoops           = 3
	ErrorLoops             = 20
)

var ErrUnhealthy = errors.New("reached an unhealthy state")

// FetchError lists the sensors whose fetch failed in one cycle.
type FetchError struct {
	Failed map[string]error
}

func (e *FetchError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name, err := range e.Failed {
		names = append(names, fmt.Sprintf("%s: %s", name, err))
	}
	sort.Strings(names)
	return fmt.Sprintf("failed to update %d sensor(s): %s", len(e.Failed), strings.Join(names, "; "))
}

// SnapshotPublisher receives the snapshot of every completed cycle.
type SnapshotPublisher interface {
	Publish(airqual.Snapshot)
}

type Runner struct {
	Sensors  []*airqual.Sensor
	Fetcher  airqual.Fetcher
	Light    *light.Policy
	Window   ActiveWindow
	Interval time.Duration

	// Strict fails the whole cycle when any sensor fails to fetch.
	// Otherwise failed sensors are only logged and age out by TTL.
	Strict bool

	Status    SnapshotPublisher
	Exporters []export.Exporter

	// OnCycle and OnFailure are optional hooks, used for metrics.
	OnCycle   func(airqual.Snapshot)
	OnFailure func(error)

	// Now is the wall clock; time.Now when nil.
	Now func() time.Time

	failures int
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run polls until ctx is done or the runner becomes unhealthy. The strip is
// turned off before returning either way.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		if err := r.Light.Off(); err != nil {
			log.Errorf("failed to turn light off: %s", err)
		}
	}()

	log.Infof("starting main loop with a %s update frequency", r.Interval)
	if err := r.Light.Working(ctx, StartupLoops); err != nil && ctx.Err() == nil {
		log.Errorf("startup light failed: %s", err)
	}

	for {
		if ctx.Err() != nil {
			log.Info("shutting down the system...")
			return nil
		}

		if err := r.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error(err)
			if r.OnFailure != nil {
				r.OnFailure(err)
			}

			r.failures++
			if r.failures >= MaxConsecutiveFailures {
				log.Error("reached an unhealthy state, will exit...")
				return errors.Wrapf(ErrUnhealthy, "%d consecutive failed cycles", r.failures)
			}
			if err := r.Light.Working(ctx, ErrorLoops); err != nil && ctx.Err() == nil {
				log.Errorf("error light failed: %s", err)
			}
			continue
		}
		r.failures = 0

		select {
		case <-ctx.Done():
		case <-time.After(r.Interval):
		}
	}
}

// Failures is the number of consecutive failed cycles.
func (r *Runner) Failures() int {
	return r.failures
}

// Cycle runs one poll: fetch, aggregate, render, publish. Outside the active
// window it only turns the light off.
func (r *Runner) Cycle(ctx context.Context) error {
	now := r.now()
	if !r.Window.Contains(now) {
		log.Debugf("outside active time (%s), lights off", r.Window)
		return r.Light.Off()
	}

	fetchErr := r.UpdateAll(ctx)
	if fetchErr != nil {
		if r.Strict {
			return fetchErr
		}
		log.Warn(fetchErr)
	}

	consensus := airqual.NewSummary(r.Sensors)
	log.Debugf("got a new pm2.5 AQI value: %.1f (%s, %d sensors)", consensus.AQI.Value, consensus.AQI.Method, consensus.Sensors)

	if _, _, err := r.Light.SetLight(consensus.AQI.Value); err != nil {
		return err
	}

	snap := airqual.Snapshot{
		Time:      now,
		Consensus: consensus,
		Light:     airqual.LightReport{State: r.Light.State().String(), Level: r.Light.Level()},
		Sensors:   make([]airqual.SensorReport, 0, len(r.Sensors)),
	}
	for _, s := range r.Sensors {
		report := s.Report()
		if u, ok := r.Fetcher.(interface{ URL(*airqual.Sensor) string }); ok {
			report.APIURL = u.URL(s)
		}
		snap.Sensors = append(snap.Sensors, report)
	}

	if r.Status != nil {
		r.Status.Publish(snap)
	}
	if r.OnCycle != nil {
		r.OnCycle(snap)
	}
	for _, e := range r.Exporters {
		if err := e.Export(ctx, snap); err != nil {
			log.Warnf("export failed: %s", err)
		}
	}
	return nil
}

// UpdateAll fetches every sensor concurrently and waits for all of them.
// Sensors that answered are updated even when others failed.
func (r *Runner) UpdateAll(ctx context.Context) error {
	var mu sync.Mutex
	failed := map[string]error{}

	var g errgroup.Group
	for _, s := range r.Sensors {
		s := s
		g.Go(func() error {
			err := r.update(ctx, s)
			if err != nil {
				mu.Lock()
				failed[s.Name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return &FetchError{Failed: failed}
	}
	return nil
}

func (r *Runner) update(ctx context.Context, s *airqual.Sensor) error {
	raw, err := r.Fetcher.Fetch(ctx, s)
	if err != nil {
		return err
	}
	return s.Update(raw)
}
