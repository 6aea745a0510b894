package document

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// singlePage wraps text as a one-page document.
func singlePage(text string) Document {
	return Document{Text: text, Pages: []Page{{Number: 1, Offset: 0}}}
}

// reconstruct rebuilds the original text from the non-overlapping regions of
// consecutive chunks.
func reconstruct(t *testing.T, chunks []Chunk) string {
	t.Helper()
	if len(chunks) == 0 {
		return ""
	}
	rebuilt := chunks[0].Text
	prevEnd := chunks[0].SourceOffset + len(chunks[0].Text)
	for _, ch := range chunks[1:] {
		skip := prevEnd - ch.SourceOffset
		if skip < 0 || skip > len(ch.Text) {
			t.Fatalf("chunk at offset %d does not connect to previous end %d", ch.SourceOffset, prevEnd)
		}
		rebuilt += ch.Text[skip:]
		prevEnd = ch.SourceOffset + len(ch.Text)
	}
	return rebuilt
}

func TestNewChunker_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	c, err := NewChunker(100, 10)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		doc  Document
	}{
		{"empty text", singlePage("")},
		{"whitespace only", singlePage("   \n\n  ")},
		{"no pages", Document{Text: "some text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Chunk(tt.doc); !errors.Is(err, ErrIngestion) {
				t.Errorf("Chunk() error = %v, want ErrIngestion", err)
			}
		})
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c, _ := NewChunker(1000, 200)

	doc := singlePage("A short paragraph that fits in one chunk.")
	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() unexpected error: %v", err)
	}
	if got, want := len(chunks), 1; got != want {
		t.Fatalf("Chunk() produced %d chunks, want %d", got, want)
	}
	if chunks[0].Text != doc.Text {
		t.Errorf("Chunk() text = %q, want full document text", chunks[0].Text)
	}
	if got, want := chunks[0].Page, 1; got != want {
		t.Errorf("Chunk() page = %d, want %d", got, want)
	}
}

func TestChunk_CoverageAndOverlap(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{
			name:    "paragraphs",
			size:    80,
			overlap: 20,
			text: "First paragraph with some words in it.\n\n" +
				"Second paragraph, a bit longer than the first one, with more words.\n\n" +
				"Third paragraph. It has two sentences in it.\n\n" +
				"Fourth and final paragraph closing the document.",
		},
		{
			name:    "sentences without paragraph breaks",
			size:    60,
			overlap: 15,
			text: "One sentence here. Another sentence follows it. " +
				"A third sentence keeps going. Then a fourth one. And a fifth to finish.",
		},
		{
			name:    "unbroken run forces fixed cuts",
			size:    32,
			overlap: 8,
			text:    strings.Repeat("x", 200),
		},
		{
			name:    "zero overlap",
			size:    40,
			overlap: 0,
			text:    strings.Repeat("word and more words here. ", 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChunker(tt.size, tt.overlap)
			if err != nil {
				t.Fatal(err)
			}
			doc := singlePage(tt.text)
			chunks, err := c.Chunk(doc)
			if err != nil {
				t.Fatalf("Chunk() unexpected error: %v", err)
			}
			if len(chunks) < 2 {
				t.Fatalf("Chunk() produced %d chunks, want at least 2", len(chunks))
			}

			// Every chunk is a faithful slice of the source at its offset.
			for i, ch := range chunks {
				if got := tt.text[ch.SourceOffset : ch.SourceOffset+len(ch.Text)]; got != ch.Text {
					t.Errorf("chunk %d text does not match source at offset %d", i, ch.SourceOffset)
				}
				if len(ch.Text) > tt.size+tt.overlap {
					t.Errorf("chunk %d len = %d, want <= %d", i, len(ch.Text), tt.size+tt.overlap)
				}
				if len(strings.TrimSpace(ch.Text)) == 0 {
					t.Errorf("chunk %d is empty", i)
				}
			}

			// Non-overlapping regions reproduce the original text.
			if got := reconstruct(t, chunks); got != tt.text {
				t.Errorf("reconstructed text differs from original:\ngot  %q\nwant %q", got, tt.text)
			}

			// Each chunk starts with the trailing characters of its
			// predecessor when overlap is configured.
			if tt.overlap > 0 {
				for i := 1; i < len(chunks); i++ {
					prev, cur := chunks[i-1], chunks[i]
					shared := prev.SourceOffset + len(prev.Text) - cur.SourceOffset
					if shared <= 0 {
						t.Errorf("chunks %d and %d share no text", i-1, i)
						continue
					}
					if !strings.HasSuffix(prev.Text, cur.Text[:shared]) {
						t.Errorf("chunk %d prefix is not a suffix of chunk %d", i, i-1)
					}
				}
			}
		})
	}
}

func TestChunk_MultibyteRuneBoundaries(t *testing.T) {
	// Byte-offset cuts and overlap backtracks must never land inside a
	// multibyte rune; every emitted chunk stays valid UTF-8.
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{
			name:    "unbroken CJK run forces fixed cuts",
			size:    100,
			overlap: 20,
			text:    strings.Repeat("內容測試中文字符邊界", 40),
		},
		{
			name:    "mixed ascii and CJK with word boundaries",
			size:    64,
			overlap: 16,
			text:    strings.Repeat("chunking 邊界測試 with mixed 字符 content. ", 12),
		},
		{
			name:    "four byte runes",
			size:    10,
			overlap: 3,
			text:    strings.Repeat("\U0001F600\U0001F680", 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChunker(tt.size, tt.overlap)
			if err != nil {
				t.Fatal(err)
			}
			chunks, err := c.Chunk(singlePage(tt.text))
			if err != nil {
				t.Fatalf("Chunk() unexpected error: %v", err)
			}
			if len(chunks) < 2 {
				t.Fatalf("Chunk() produced %d chunks, want at least 2", len(chunks))
			}

			for i, ch := range chunks {
				if !utf8.ValidString(ch.Text) {
					t.Errorf("chunk %d is not valid UTF-8: %q", i, ch.Text)
				}
				if got := tt.text[ch.SourceOffset : ch.SourceOffset+len(ch.Text)]; got != ch.Text {
					t.Errorf("chunk %d text does not match source at offset %d", i, ch.SourceOffset)
				}
			}

			if got := reconstruct(t, chunks); got != tt.text {
				t.Errorf("reconstructed text differs from original")
			}
		})
	}
}

func TestChunk_PageAttribution(t *testing.T) {
	// Two pages joined with a paragraph break; each page is one chunk.
	page1 := "Content of the first page, padded to a reasonable length for splitting."
	page2 := "Content of the second page, also padded so it stands alone."
	doc := Document{
		Text: page1 + pageSeparator + page2,
		Pages: []Page{
			{Number: 1, Offset: 0},
			{Number: 2, Offset: len(page1) + len(pageSeparator)},
		},
	}

	c, _ := NewChunker(len(page1)+len(pageSeparator), 0)
	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Chunk() produced %d chunks, want at least 2", len(chunks))
	}

	if got, want := chunks[0].Page, 1; got != want {
		t.Errorf("first chunk page = %d, want %d", got, want)
	}
	last := chunks[len(chunks)-1]
	if got, want := last.Page, 2; got != want {
		t.Errorf("last chunk page = %d, want %d", got, want)
	}
}

func TestChunk_SpanningChunkUsesFirstPage(t *testing.T) {
	// One chunk covers both pages; the page of origin is the first one.
	doc := Document{
		Text: "short first page\n\nshort second page",
		Pages: []Page{
			{Number: 1, Offset: 0},
			{Number: 2, Offset: 18},
		},
	}

	c, _ := NewChunker(1000, 0)
	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() unexpected error: %v", err)
	}
	if got, want := len(chunks), 1; got != want {
		t.Fatalf("Chunk() produced %d chunks, want %d", got, want)
	}
	if got, want := chunks[0].Page, 1; got != want {
		t.Errorf("spanning chunk page = %d, want %d", got, want)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c, _ := NewChunker(64, 16)
	doc := singlePage(strings.Repeat("Deterministic chunking input. ", 20))

	first, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestPageAt(t *testing.T) {
	doc := Document{
		Pages: []Page{
			{Number: 1, Offset: 0},
			{Number: 2, Offset: 100},
			{Number: 4, Offset: 250},
		},
	}

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 4},
		{9999, 4},
	}

	for _, tt := range tests {
		if got := doc.PageAt(tt.offset); got != tt.want {
			t.Errorf("PageAt(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestChunkID_Stable(t *testing.T) {
	a := chunkID(10, "same text")
	b := chunkID(10, "same text")
	if a != b {
		t.Errorf("chunkID not stable: %q vs %q", a, b)
	}
	if c := chunkID(11, "same text"); c == a {
		t.Error("chunkID ignores offset")
	}
	if !strings.HasPrefix(a, "chunk_") {
		t.Errorf("chunkID = %q, want chunk_ prefix", a)
	}
}
