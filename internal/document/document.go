// Package document handles source document parsing and chunking.
//
// A parsed Document carries the full extracted text plus the byte offset at
// which each page begins, so chunks can report the page they originated on.
// The Chunker splits the text into overlapping chunks, preferring paragraph
// and sentence boundaries over hard cuts.
package document

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
)

// ErrIngestion indicates the source document could not be turned into chunks.
// All parsing and chunking failures wrap this sentinel.
var ErrIngestion = errors.New("document ingestion failed")

// Page marks where a 1-based page starts within Document.Text.
type Page struct {
	Number int
	Offset int
}

// Document is the parsed form of a source file: the concatenated text of all
// pages plus the page boundaries, ordered by offset.
type Document struct {
	Text  string
	Pages []Page
}

// PageAt returns the 1-based page number containing the given text offset.
func (d Document) PageAt(offset int) int {
	if len(d.Pages) == 0 {
		return 0
	}
	// First page whose offset is beyond the target, minus one.
	i := sort.Search(len(d.Pages), func(i int) bool {
		return d.Pages[i].Offset > offset
	})
	if i == 0 {
		return d.Pages[0].Number
	}
	return d.Pages[i-1].Number
}

// Chunk is a contiguous slice of document text with provenance. Text includes
// the overlap prefix shared with the preceding chunk; SourceOffset is the
// offset of Text within the document. Page is the page containing the chunk
// start (first page wins when a chunk spans pages).
type Chunk struct {
	ID           string
	Text         string
	Page         int
	SourceOffset int
}

// chunkID derives a stable identifier from the chunk position and content,
// so re-ingesting the same document yields the same IDs.
func chunkID(offset int, text string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d:%s", offset, text))
	return fmt.Sprintf("chunk_%x", sum[:8])
}
