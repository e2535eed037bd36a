package ingest

import (
	"context"
	"errors"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/config"
	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/extract"
	"github.com/papercomputeco/docmem/pkg/memory"
)

// ErrMessageFormat marks an inbound body that is not a valid request.
var ErrMessageFormat = errors.New("malformed assimilation request")

// Kind is the failure domain of an error.
type Kind int

const (
	KindNone Kind = iota
	KindConfig
	KindConnection
	KindTopology
	KindFormat
	KindAccess
	KindStore
	KindPublish
	KindCanceled
	KindUnknown
)

var kindNames = map[Kind]string{
	KindNone:       "none",
	KindConfig:     "config",
	KindConnection: "connection",
	KindTopology:   "topology",
	KindFormat:     "format",
	KindAccess:     "access",
	KindStore:      "store",
	KindPublish:    "publish",
	KindCanceled:   "canceled",
	KindUnknown:    "unknown",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Classify returns the failure domain of err. A missing exchange reported
// through a publish is classified as topology.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		cfgErr     *config.Error
		accessErr  *extract.AccessError
		storeErr   *memory.StoreError
		publishErr *eventstream.PublishError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.Is(err, ErrMessageFormat):
		return KindFormat
	case errors.As(err, &accessErr):
		return KindAccess
	case errors.Is(err, broker.ErrTopologyNotFound):
		return KindTopology
	case errors.Is(err, broker.ErrConnectionLost):
		return KindConnection
	case errors.As(err, &storeErr):
		return KindStore
	case errors.As(err, &publishErr):
		return KindPublish
	case errors.Is(err, broker.ErrAuth), errors.Is(err, broker.ErrConnection), errors.Is(err, broker.ErrUnexpected):
		return KindConnection
	default:
		return KindUnknown
	}
}

type temporary interface {
	Temporary() bool
}

type rejected interface {
	Rejected() bool
}

// Rejected reports whether err refuses the content of one request rather
// than the service as a whole.
func Rejected(err error) bool {
	var r rejected
	return errors.As(err, &r) && r.Rejected()
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
