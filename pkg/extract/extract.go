// Package extract turns a file on disk into its ordered page texts.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extractor returns the ordered page texts of the document at path.
// Implementations fail with *AccessError when the path is unreadable or the
// content cannot be parsed.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// AccessError reports a file that could not be read or parsed.
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// Registry dispatches to an Extractor by lowercase file extension and falls
// back to plain text for anything it does not know.
type Registry struct {
	byExt    map[string]Extractor
	fallback Extractor
	logger   *slog.Logger
}

// NewRegistry returns a registry with the text, markdown, HTML and PDF
// extractors registered.
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{
		byExt:    map[string]Extractor{},
		fallback: NewTextExtractor(),
		logger:   logger,
	}

	md := NewMarkdownExtractor()
	html := NewHTMLExtractor()
	r.Register(".md", md)
	r.Register(".markdown", md)
	r.Register(".html", html)
	r.Register(".htm", html)
	r.Register(".pdf", NewPDFExtractor())
	return r
}

// Register binds ext (with leading dot) to e, replacing any previous binding.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Extract implements Extractor.
func (r *Registry) Extract(ctx context.Context, path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		e = r.fallback
	}

	pages, err := e.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("extracted document",
		"path", path,
		"extension", ext,
		"pages", len(pages),
	)
	return pages, nil
}

// Join concatenates page texts with a single newline, the form the chunker
// consumes.
func Join(pages []string) string {
	return strings.Join(pages, "\n")
}

// readFile reads path, honouring ctx cancellation before the read starts.
func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &AccessError{Path: path, Op: "read", Err: err}
	}
	return data, nil
}

// normalize converts text to valid UTF-8 in NFC form with LF line endings.
func normalize(s string) string {
	s = strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\r\n", "\n")
	return norm.NFC.String(s)
}
