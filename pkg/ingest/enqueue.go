package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/docmem/pkg/broker"
)

// Enqueuer sends assimilation requests for local files.
type Enqueuer struct {
	producer   broker.Producer
	routingKey string
	logger     *slog.Logger
}

// NewEnqueuer sends through producer with routingKey. Over the AMQP default
// exchange the routing key is the request queue.
func NewEnqueuer(producer broker.Producer, routingKey string, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{
		producer:   producer,
		routingKey: routingKey,
		logger:     logger,
	}
}

// Enqueue sends one request for path and returns it.
func (e *Enqueuer) Enqueue(ctx context.Context, path string) (AssimilationRequest, error) {
	req, err := NewRequest(path)
	if err != nil {
		return AssimilationRequest{}, err
	}

	body, err := req.Marshal()
	if err != nil {
		return AssimilationRequest{}, fmt.Errorf("encoding request: %w", err)
	}

	msg := broker.Message{
		Body:        body,
		ContentType: "application/json",
		MessageID:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
	}
	if err := e.producer.Send(ctx, e.routingKey, msg); err != nil {
		return AssimilationRequest{}, fmt.Errorf("sending request for %s: %w", req.FilePath, err)
	}

	e.logger.Debug("enqueued assimilation request", "file_path", req.FilePath, "message_id", msg.MessageID)
	return req, nil
}
