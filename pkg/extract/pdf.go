package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor returns one text per PDF page, in page order. Pages without a
// text layer yield an empty string.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (pages []string, err error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &AccessError{Path: path, Op: "open pdf", Err: errors.New("empty file")}
	}

	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &AccessError{Path: path, Op: "parse pdf", Err: errors.New("malformed pdf")}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &AccessError{Path: path, Op: "open pdf", Err: err}
	}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &AccessError{Path: path, Op: "read pdf page", Err: err}
		}
		pages = append(pages, normalize(strings.TrimSpace(text)))
	}
	return pages, nil
}
