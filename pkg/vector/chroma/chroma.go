// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/docmem/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for docmem memories.
	DefaultCollectionName = "documents"

	DefaultMaxRetries    = 10
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultMaxRetryDelay = 10 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds the get-or-create attempts made while Chroma is
	// still starting up.
	MaxRetries int

	// RetryDelay is the first backoff delay; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, getting or creating the
// configured collection. Startup failures are retried with exponential backoff.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        strings.TrimRight(c.URL, "/"),
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err := d.getOrCreateCollection(context.Background())
		if err == nil {
			d.collectionID = collectionID
			logger.Info("connected to Chroma",
				"url", c.URL,
				"collection", collectionName,
				"collection_id", collectionID,
			)
			return d, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}
		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	return nil, fmt.Errorf("getting or creating collection %q after %d attempts: %w", collectionName, maxRetries, lastErr)
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+collectionsPath+"/"+d.collectionName, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending get request: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	var collection chromaCollection
	err = d.post(ctx, collectionsPath, chromaCreateRequest{Name: d.collectionName, GetOrCreate: true}, &collection)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	return collection.ID, nil
}

// post sends body as JSON to path and decodes the response into out when
// out is non-nil.
func (d *Driver) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending request: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d: %s", vector.ErrConnection, resp.StatusCode, string(body))
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// Upsert stores documents with their content, metadata and embeddings.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}
	for i, doc := range docs {
		reqBody.IDs[i] = doc.ID
		reqBody.Embeddings[i] = doc.Embedding
		reqBody.Documents[i] = doc.Content

		meta := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		reqBody.Metadatas[i] = meta
	}

	if err := d.post(ctx, d.collectionPath("upsert"), reqBody, nil); err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}

	d.logger.Debug("upserted documents to chroma",
		"collection", d.collectionName,
		"count", len(docs),
	)

	return nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var getResp chromaGetResponse
	err := d.post(ctx, d.collectionPath("get"), chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "metadatas", "embeddings"},
	}, &getResp)
	if err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i] = vector.Document{ID: id}

		if i < len(getResp.Documents) {
			docs[i].Content = getResp.Documents[i]
		}

		if i < len(getResp.Metadatas) && getResp.Metadatas[i] != nil {
			docs[i].Metadata = make(map[string]string, len(getResp.Metadatas[i]))
			for k, v := range getResp.Metadatas[i] {
				docs[i].Metadata[k] = fmt.Sprint(v)
			}
		}

		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.post(ctx, d.collectionPath("delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	d.logger.Debug("deleted documents from chroma",
		"collection", d.collectionName,
		"count", len(ids),
	)

	return nil
}

// Count returns the number of documents in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+d.collectionPath("count"), nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: sending count request: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	var n int
	if err := decodeResponse(resp, &n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
