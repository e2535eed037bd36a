package eventstream

import (
	"encoding/json"
	"time"

	"github.com/papercomputeco/docmem/pkg/memory"
)

// ContentType is the content type of every published event body.
const ContentType = "application/json"

// MemoryEvent is the outbound payload emitted once per stored memory.
type MemoryEvent struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Content   string `json:"content"`
}

// NewMemoryEvent builds the event for m. CreatedAt is RFC 3339 in UTC.
func NewMemoryEvent(m memory.Memory) MemoryEvent {
	return MemoryEvent{
		ID:        m.ID,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		Content:   m.Content,
	}
}

// Marshal returns the JSON body of the event.
func (e MemoryEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
