package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docmem/pkg/broker"
)

// SentMessage is one recorded MockProducer.Send.
type SentMessage struct {
	RoutingKey string
	Message    broker.Message
}

// MockProducer is a broker.Producer and broker.Reopener that records sends.
// Errs are returned by successive Send calls before sends start succeeding.
type MockProducer struct {
	mu      sync.Mutex
	Sent    []SentMessage
	Errs    []error
	Reopens int
	Closed  bool

	// ReopenErr is returned by Reopen when set.
	ReopenErr error
}

func NewMockProducer() *MockProducer {
	return &MockProducer{}
}

func (m *MockProducer) Send(ctx context.Context, routingKey string, msg broker.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		return err
	}
	m.Sent = append(m.Sent, SentMessage{RoutingKey: routingKey, Message: msg})
	return nil
}

func (m *MockProducer) Reopen(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reopens++
	return m.ReopenErr
}

func (m *MockProducer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Snapshot returns a copy of the recorded sends.
func (m *MockProducer) Snapshot() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Sent...)
}

// MockDelivery is a broker.Delivery that records its settlement.
type MockDelivery struct {
	ID   string
	Data []byte

	mu       sync.Mutex
	acked    bool
	nacked   bool
	requeued bool
}

func NewMockDelivery(id string, body []byte) *MockDelivery {
	return &MockDelivery{ID: id, Data: body}
}

func (d *MockDelivery) Body() []byte      { return d.Data }
func (d *MockDelivery) MessageID() string { return d.ID }

func (d *MockDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked = true
	return nil
}

func (d *MockDelivery) Nack(requeue bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nacked = true
	d.requeued = requeue
	return nil
}

// State reports how the delivery was settled.
func (d *MockDelivery) State() (acked, nacked, requeued bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked, d.nacked, d.requeued
}

// MockSource is a broker.Source fed from a channel the test controls.
type MockSource struct {
	C      chan broker.Delivery
	Failed error
	Closed bool
}

func NewMockSource(buffer int) *MockSource {
	return &MockSource{C: make(chan broker.Delivery, buffer)}
}

func (s *MockSource) Deliveries(_ context.Context) (<-chan broker.Delivery, error) {
	return s.C, nil
}

func (s *MockSource) Err() error   { return s.Failed }
func (s *MockSource) Close() error { s.Closed = true; return nil }

var (
	_ broker.Producer = (*MockProducer)(nil)
	_ broker.Reopener = (*MockProducer)(nil)
	_ broker.Delivery = (*MockDelivery)(nil)
	_ broker.Source   = (*MockSource)(nil)
)
