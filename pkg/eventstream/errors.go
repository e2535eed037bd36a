package eventstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/docmem/pkg/broker"
)

// ErrInvalidMemory indicates a memory without an ID was given to a publisher.
var ErrInvalidMemory = errors.New("memory has no id")

// PublishError reports a failed publish of one memory event.
type PublishError struct {
	ID         string
	RoutingKey string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing memory %s to %q: %v", e.ID, e.RoutingKey, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Temporary reports whether a retry may succeed. A missing exchange or topic
// and a lost producer connection are never temporary.
func (e *PublishError) Temporary() bool {
	if errors.Is(e.Err, broker.ErrTopologyNotFound) ||
		errors.Is(e.Err, broker.ErrAuth) ||
		errors.Is(e.Err, broker.ErrConnectionLost) {
		return false
	}
	return errors.Is(e.Err, broker.ErrChannelClosed) ||
		errors.Is(e.Err, broker.ErrConnection) ||
		errors.Is(e.Err, broker.ErrNotConfirmed) ||
		errors.Is(e.Err, context.DeadlineExceeded)
}
