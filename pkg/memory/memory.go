// Package memory persists document chunks as memories in a vector store.
//
// A Memory is one stored chunk plus its identity and creation time. Its ID is
// derived from the chunk's origin and content, so redelivering the same file
// resolves every chunk to the ID it was stored under the first time.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Metadata keys written with every memory.
const (
	KeySourcePath = "source_path"
	KeySource     = "source"
	KeyFileName   = "file_name"
	KeyOrdinal    = "ordinal"
	KeyCreatedAt  = "created_at"
)

// Namespace is the UUIDv5 namespace for memory IDs.
var Namespace = uuid.MustParse("7d0f2c9e-4b1a-5e6f-9a3c-d8e2b4f61a07")

// Memory is an immutable stored chunk.
type Memory struct {
	ID        string
	CreatedAt time.Time
	Content   string
}

// NewID returns the deterministic ID for the chunk at ordinal in sourcePath
// with the given content: a UUIDv5 over
// "sourcePath NUL ordinal NUL hex(sha256(content))".
func NewID(sourcePath string, ordinal int, content string) string {
	sum := sha256.Sum256([]byte(content))

	name := make([]byte, 0, len(sourcePath)+2+20+hex.EncodedLen(len(sum)))
	name = append(name, sourcePath...)
	name = append(name, 0)
	name = strconv.AppendInt(name, int64(ordinal), 10)
	name = append(name, 0)
	name = hex.AppendEncode(name, sum[:])

	return uuid.NewSHA1(Namespace, name).String()
}

// New builds a Memory for a chunk, stamping it with now in UTC.
func New(sourcePath string, ordinal int, content string, now time.Time) Memory {
	return Memory{
		ID:        NewID(sourcePath, ordinal, content),
		CreatedAt: now.UTC(),
		Content:   content,
	}
}

// NewMetadata returns the metadata stored alongside a memory.
func NewMetadata(sourcePath, fileName string, ordinal int, createdAt time.Time) map[string]string {
	return map[string]string{
		KeySourcePath: sourcePath,
		KeySource:     sourcePath,
		KeyFileName:   fileName,
		KeyOrdinal:    strconv.Itoa(ordinal),
		KeyCreatedAt:  createdAt.UTC().Format(time.RFC3339Nano),
	}
}
