package ingest

// Outcome is how a delivery is settled after Handle returns.
type Outcome int

const (
	// Acknowledged: every chunk was stored and published.
	Acknowledged Outcome = iota

	// Skipped: the request was invalid or its file unusable. The delivery is
	// acknowledged and never retried.
	Skipped

	// Requeue: a transient failure or shutdown interrupted the request. The
	// delivery is returned to the queue.
	Requeue

	// Fatal: the process cannot continue. The delivery is returned to the
	// queue and the consumer stops.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Acknowledged:
		return "acknowledged"
	case Skipped:
		return "skipped"
	case Requeue:
		return "requeue"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}
