package ingest

import "sync/atomic"

// Stats counts processed requests by outcome and chunks by step.
type Stats struct {
	Acknowledged atomic.Int64
	Skipped      atomic.Int64
	Requeued     atomic.Int64
	Fatal        atomic.Int64

	ChunksStored    atomic.Int64
	ChunksPublished atomic.Int64
	ChunksSkipped   atomic.Int64
}

func (s *Stats) record(o Outcome) {
	switch o {
	case Acknowledged:
		s.Acknowledged.Add(1)
	case Skipped:
		s.Skipped.Add(1)
	case Requeue:
		s.Requeued.Add(1)
	case Fatal:
		s.Fatal.Add(1)
	}
}

// Snapshot returns the current counters keyed by name.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"acknowledged":     s.Acknowledged.Load(),
		"skipped":          s.Skipped.Load(),
		"requeued":         s.Requeued.Load(),
		"fatal":            s.Fatal.Load(),
		"chunks_stored":    s.ChunksStored.Load(),
		"chunks_published": s.ChunksPublished.Load(),
		"chunks_skipped":   s.ChunksSkipped.Load(),
	}
}
