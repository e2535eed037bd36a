package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docmem/pkg/memory"
)

// PublishCall is one recorded MockPublisher.Publish.
type PublishCall struct {
	Memory     memory.Memory
	RoutingKey string
}

// MockPublisher is an eventstream.Publisher that records calls and can fail
// on demand.
type MockPublisher struct {
	mu    sync.Mutex
	Calls []PublishCall

	// FailOn makes Publish fail for memories whose content equals the key.
	// The error is returned FailTimes times (0 means always).
	FailOn    map[string]error
	FailTimes int
	failures  map[string]int

	// OnPublish, when set, runs before each successful record.
	OnPublish func(m memory.Memory)
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailOn:   map[string]error{},
		failures: map[string]int{},
	}
}

func (p *MockPublisher) Publish(ctx context.Context, m memory.Memory, routingKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.FailOn[m.Content]; ok {
		if p.FailTimes == 0 || p.failures[m.Content] < p.FailTimes {
			p.failures[m.Content]++
			return err
		}
	}

	if p.OnPublish != nil {
		p.OnPublish(m)
	}
	p.Calls = append(p.Calls, PublishCall{Memory: m, RoutingKey: routingKey})
	return nil
}

func (p *MockPublisher) Close() error {
	return nil
}

// Snapshot returns a copy of the recorded calls.
func (p *MockPublisher) Snapshot() []PublishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishCall(nil), p.Calls...)
}
