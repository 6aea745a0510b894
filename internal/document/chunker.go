package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunker splits document text into overlapping chunks of at most size
// bytes (plus the overlap prefix), always cutting on UTF-8 rune boundaries.
// Cuts prefer paragraph breaks, then line breaks, then sentence ends, then
// word boundaries, falling back to a fixed-width cut for unbroken runs.
type Chunker struct {
	size    int
	overlap int
}

// separators in preference order. Each chunk ends just after the last
// occurrence inside the size window.
var separators = []string{"\n\n", "\n", ". ", " "}

// NewChunker validates the split geometry. Overlap must leave room for
// forward progress, so it is bounded by size-1.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits the document into chunks covering the full text. Consecutive
// chunks share the trailing overlap characters of the preceding chunk. The
// non-overlapping regions tile the original text exactly.
func (c *Chunker) Chunk(doc Document) ([]Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: document text is empty", ErrIngestion)
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrIngestion)
	}

	var chunks []Chunk
	start := 0
	for start < len(doc.Text) {
		end := c.cut(doc.Text, start)

		// Extend backwards into the previous segment for overlap, but
		// never past its start. The backtrack counts bytes, so it can
		// land inside a multibyte rune; advance to the next rune start
		// to keep every chunk valid UTF-8.
		chunkStart := start
		if len(chunks) > 0 {
			chunkStart = start - c.overlap
			if prev := chunks[len(chunks)-1].SourceOffset; chunkStart < prev {
				chunkStart = prev
			}
			for chunkStart < start && !utf8.RuneStart(doc.Text[chunkStart]) {
				chunkStart++
			}
		}

		text := doc.Text[chunkStart:end]
		chunks = append(chunks, Chunk{
			ID:           chunkID(chunkStart, text),
			Text:         text,
			Page:         doc.PageAt(chunkStart),
			SourceOffset: chunkStart,
		})
		start = end
	}

	return chunks, nil
}

// cut returns the end offset of the segment starting at start. Segments are
// at most size characters; the cut lands after the last preferred separator
// within the window when one exists.
func (c *Chunker) cut(text string, start int) int {
	if len(text)-start <= c.size {
		return len(text)
	}

	window := text[start : start+c.size]
	for _, sep := range separators {
		// A separator at index 0 would make an empty segment.
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + i + len(sep)
		}
	}
	return fixedCut(text, start, c.size)
}

// fixedCut places a fixed-width cut at most size bytes after start without
// splitting a rune: the cut backs up to the nearest rune start, or swallows
// one whole rune when backing up would make the segment empty.
func fixedCut(text string, start, size int) int {
	end := start + size
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		_, width := utf8.DecodeRuneInString(text[start:])
		return start + width
	}
	return end
}
