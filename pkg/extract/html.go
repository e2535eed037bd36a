package extract

import (
	"bytes"
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"
)

// HTMLExtractor returns the readable article text of an HTML document.
type HTMLExtractor struct{}

func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

func (e *HTMLExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, &AccessError{Path: path, Op: "parse html", Err: err}
	}

	var parts []string
	if title := strings.TrimSpace(article.Title); title != "" {
		parts = append(parts, title)
	}
	if body := strings.TrimSpace(article.TextContent); body != "" {
		parts = append(parts, body)
	}
	return []string{normalize(strings.Join(parts, "\n\n"))}, nil
}
