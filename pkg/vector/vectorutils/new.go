// Package vectorutils builds the configured vector.Driver.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docmem/pkg/vector"
	"github.com/papercomputeco/docmem/pkg/vector/chroma"
	"github.com/papercomputeco/docmem/pkg/vector/inmemory"
	"github.com/papercomputeco/docmem/pkg/vector/qdrant"
	"github.com/papercomputeco/docmem/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	Dimensions   uint
	Logger       *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "inmemory":
		return inmemory.NewDriver(o.Collection, o.Dimensions), nil
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:     o.Target,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
