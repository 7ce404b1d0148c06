package status

import (
	"sync/atomic"

	"github.com/alepar/airqual/airqual"
)

// Store holds the latest cycle snapshot. Publish swaps it atomically, readers
// never see a partially built snapshot.
type Store struct {
	latest atomic.Pointer[airqual.Snapshot]
}

func (s *Store) Publish(snap airqual.Snapshot) {
	s.latest.Store(&snap)
}

// Latest returns nil until the first cycle completed.
func (s *Store) Latest() *airqual.Snapshot {
	return s.latest.Load()
}
