package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor parses Markdown with goldmark and returns the document's
// text content without markup. Each block ends with a blank line.
type MarkdownExtractor struct {
	md goldmark.Markdown
}

func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{md: goldmark.New()}
}

func (e *MarkdownExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	src, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	doc := e.md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := range lines.Len() {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				b.WriteByte('\n')
				return ast.WalkSkipChildren, nil
			}
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				b.WriteByte('\n')
				if n.Kind() != ast.KindTextBlock {
					b.WriteByte('\n')
				}
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &AccessError{Path: path, Op: "parse markdown", Err: err}
	}

	return []string{normalize(b.String())}, nil
}
