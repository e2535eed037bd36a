package memory

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/papercomputeco/docmem/pkg/embeddings"
	"github.com/papercomputeco/docmem/pkg/vector"
)

// StoreError reports a failed Upsert of one memory.
type StoreError struct {
	ID  string
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storing memory %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure may succeed on retry: the store or
// embedder was unreachable, overloaded or too slow.
func (e *StoreError) Temporary() bool {
	if errors.Is(e.Err, vector.ErrConnection) ||
		errors.Is(e.Err, embeddings.ErrUnavailable) ||
		errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return true
	}
	return false
}

// Rejected reports whether the content itself was refused. Retrying the
// same content cannot succeed, but other content may.
func (e *StoreError) Rejected() bool {
	return errors.Is(e.Err, embeddings.ErrRejected)
}
