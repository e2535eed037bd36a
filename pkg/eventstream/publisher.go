package eventstream

import (
	"context"

	"github.com/papercomputeco/docmem/pkg/memory"
)

// Publisher emits one event per stored memory. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, m memory.Memory, routingKey string) error
	Close() error
}
