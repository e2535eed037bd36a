// Package kafka implements the broker boundary on Kafka. Queues map to topics
// read through a consumer group; exchanges map to topics written with the
// routing key as the message key.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/docmem/pkg/broker"
)

// checkTopic asks the first reachable broker for the topic's partitions.
func checkTopic(ctx context.Context, brokers []string, topic string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("%w: no kafka brokers configured", broker.ErrUnexpected)
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}

		partitions, err := conn.ReadPartitions(topic)
		conn.Close()
		if err != nil {
			return fmt.Errorf("looking up topic %q: %w", topic, classify(err))
		}
		if len(partitions) == 0 {
			return fmt.Errorf("%w: topic %q has no partitions", broker.ErrTopologyNotFound, topic)
		}
		return nil
	}
	return fmt.Errorf("dialing kafka: %w", classify(lastErr))
}

func classify(err error) error {
	if err == nil {
		return nil
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		switch kerr {
		case kafka.UnknownTopicOrPartition:
			return fmt.Errorf("%w: %w", broker.ErrTopologyNotFound, err)
		case kafka.SASLAuthenticationFailed, kafka.TopicAuthorizationFailed,
			kafka.GroupAuthorizationFailed, kafka.ClusterAuthorizationFailed:
			return fmt.Errorf("%w: %w", broker.ErrAuth, err)
		}
		if kerr.Temporary() {
			return fmt.Errorf("%w: %w", broker.ErrConnection, err)
		}
		return fmt.Errorf("%w: %w", broker.ErrUnexpected, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %w", broker.ErrConnection, err)
	}
	return fmt.Errorf("%w: %w", broker.ErrUnexpected, err)
}
