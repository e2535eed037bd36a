// Package chunker splits extracted document text into sanitized, ordered
// chunks. Every function in this package is pure and deterministic.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy names a segmentation policy.
type Strategy string

const (
	// StrategySentence splits at a period immediately followed by a newline
	// (LF or CRLF).
	StrategySentence Strategy = "sentence"

	// StrategyParagraph splits on blank lines.
	StrategyParagraph Strategy = "paragraph"

	// StrategyWindow cuts fixed-size rune windows that overlap their neighbours.
	StrategyWindow Strategy = "window"
)

const (
	DefaultWindowSize    = 1000
	DefaultWindowOverlap = 200
)

// TextChunk is one sanitized slice of a document. It only lives for the
// duration of a single request.
type TextChunk struct {
	// Ordinal is the zero-based position of the chunk after filtering.
	Ordinal int

	// Content is the sanitized, non-empty chunk text.
	Content string

	// SourcePath is the file the chunk was extracted from.
	SourcePath string
}

// Config selects and parameterizes the segmentation strategy.
type Config struct {
	Strategy Strategy

	// WindowSize and WindowOverlap are only used by StrategyWindow.
	WindowSize    int
	WindowOverlap int
}

// Chunker turns raw text into a chunk sequence. It holds no mutable state and
// is safe for concurrent use.
type Chunker struct {
	strategy Strategy
	segment  func(string) []string
}

// New returns a Chunker for the configured strategy. An empty strategy selects
// StrategySentence.
func New(c Config) (*Chunker, error) {
	switch c.Strategy {
	case StrategySentence, "":
		return &Chunker{strategy: StrategySentence, segment: SplitSentences}, nil
	case StrategyParagraph:
		return &Chunker{strategy: StrategyParagraph, segment: SplitParagraphs}, nil
	case StrategyWindow:
		size, overlap := c.WindowSize, c.WindowOverlap
		if size == 0 {
			size, overlap = DefaultWindowSize, DefaultWindowOverlap
		}
		if size < 1 {
			return nil, fmt.Errorf("window size must be positive, got %d", size)
		}
		if overlap < 0 || overlap >= size {
			return nil, fmt.Errorf("window overlap must be in [0, %d), got %d", size, overlap)
		}
		return &Chunker{
			strategy: StrategyWindow,
			segment: func(text string) []string {
				return SplitWindows(text, size, overlap)
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported chunking strategy: %s", c.Strategy)
	}
}

// Strategy reports the segmentation strategy in use.
func (c *Chunker) Strategy() Strategy {
	return c.strategy
}

// Chunk segments text, sanitizes every segment and drops the ones left empty.
// Ordinals are assigned after filtering, starting at zero. Text with nothing
// extractable yields an empty slice.
func (c *Chunker) Chunk(sourcePath, text string) []TextChunk {
	var chunks []TextChunk
	for _, segment := range c.segment(text) {
		content := strings.TrimSpace(Sanitize(segment))
		if content == "" {
			continue
		}

		chunks = append(chunks, TextChunk{
			Ordinal:    len(chunks),
			Content:    content,
			SourcePath: sourcePath,
		})
	}
	return chunks
}

var (
	sentenceBreak  = regexp.MustCompile(`\.\r?\n`)
	paragraphBreak = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
)

// SplitSentences splits text at every period that is immediately followed by
// a newline. The period and newline are consumed by the split. Segments are
// trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	return trimAll(sentenceBreak.Split(text, -1))
}

// SplitParagraphs splits text on blank lines: a newline, optional horizontal
// whitespace, then another newline. CRLF counts as a newline.
func SplitParagraphs(text string) []string {
	return trimAll(paragraphBreak.Split(text, -1))
}

// SplitWindows cuts text into windows of size runes, each starting
// size-overlap runes after the previous one. The final window may be shorter.
func SplitWindows(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || size < 1 || overlap < 0 || overlap >= size {
		return nil
	}

	step := size - overlap
	var windows []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return trimAll(windows)
}

func trimAll(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
