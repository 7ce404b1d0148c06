package export

import (
	"context"

	"github.com/alepar/airqual/airqual"
)

// Exporter ships a completed cycle snapshot somewhere outside the process.
type Exporter interface {
	Export(ctx context.Context, snap airqual.Snapshot) error
}
