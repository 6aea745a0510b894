package document

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSeparator joins page texts so a paragraph break always exists at page
// boundaries.
const pageSeparator = "\n\n"

// ParsePDF extracts per-page plain text from the PDF at path and records the
// offset each page starts at. Pages that yield no text are skipped; a PDF
// with no extractable text at all is an ingestion failure.
func ParsePDF(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("%w: opening %s: %v", ErrIngestion, path, err)
	}
	defer f.Close()

	var sb strings.Builder
	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return Document{}, fmt.Errorf("%w: extracting page %d of %s: %v", ErrIngestion, i, path, err)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(pageSeparator)
		}
		pages = append(pages, Page{Number: i, Offset: sb.Len()})
		sb.WriteString(content)
	}

	if len(pages) == 0 {
		return Document{}, fmt.Errorf("%w: no text extracted from %s", ErrIngestion, path)
	}

	return Document{Text: sb.String(), Pages: pages}, nil
}
