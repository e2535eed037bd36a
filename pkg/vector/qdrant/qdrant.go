// Package qdrant provides a vector driver backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docmem/pkg/vector"
)

// DefaultPort is Qdrant's gRPC port.
const DefaultPort = 6334

// contentKey is the payload field that holds the chunk text.
const contentKey = "content"

// Driver implements vector.Driver with Qdrant points. Document IDs must be
// UUIDs.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host" or "host:port" of the gRPC endpoint.
	Target string

	Collection string
	Dimensions uint

	APIKey string
	UseTLS bool
}

// NewDriver connects to Qdrant and gets or creates the collection with
// cosine distance.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("qdrant target is required")
	}
	if c.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %w", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, c.Collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("checking collection %q: %w", c.Collection, classify(err))
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %q: %w", c.Collection, classify(err))
		}
	}

	logger.Info("connected to Qdrant",
		"host", host,
		"port", port,
		"collection", c.Collection,
		"created", !exists,
	)

	return &Driver{
		client:     client,
		collection: c.Collection,
		logger:     logger,
	}, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// no port given
		return target, DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

// classify marks transient gRPC failures with vector.ErrConnection.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return fmt.Errorf("%w: %w", vector.ErrConnection, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	return err
}

// Upsert writes documents as points, waiting for the write to be applied.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		payload := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		payload[contentKey] = doc.Content

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", classify(err))
	}

	d.logger.Debug("upserted documents to qdrant",
		"collection", d.collection,
		"count", len(docs),
	)
	return nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", classify(err))
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := vector.Document{
			ID:       p.GetId().GetUuid(),
			Metadata: make(map[string]string, len(p.GetPayload())),
		}
		for k, v := range p.GetPayload() {
			if k == contentKey {
				doc.Content = v.GetStringValue()
				continue
			}
			doc.Metadata[k] = v.GetStringValue()
		}
		if vec := p.GetVectors().GetVector(); vec != nil {
			doc.Embedding = vec.GetData()
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs(ids)...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", classify(err))
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", classify(err))
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func pointIDs(ids []string) []*qdrant.PointId {
	out := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		out[i] = qdrant.NewID(id)
	}
	return out
}

var _ vector.Driver = (*Driver)(nil)
