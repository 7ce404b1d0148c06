package airqual

import "context"

type Fetcher interface {

	// returns the raw provider response for one sensor
	Fetch(ctx context.Context, sensor *Sensor) ([]byte, error)
}
