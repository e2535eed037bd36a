// Package embeddingutils builds the configured embeddings.Embedder.
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/docmem/pkg/embeddings"
	"github.com/papercomputeco/docmem/pkg/embeddings/hash"
	"github.com/papercomputeco/docmem/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "hash":
		return hash.NewEmbedder(o.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
