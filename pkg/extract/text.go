package extract

import "context"

// TextExtractor reads a file as UTF-8 text and returns it as a single page.
// Invalid byte sequences are dropped.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return []string{normalize(string(data))}, nil
}
