package pipeline

import "sort"

// FormatAnswer assembles the final answer from the raw model (or refusal)
// text and the retained passages. It is pure: same inputs, same output.
//
// Confidence is the mean of retained similarity scores, clamped to [0, 1],
// and 0 when nothing was retained. Citations are the distinct source pages
// in ascending order.
//
// Note: mean retrieval similarity measures how close the passages are to the
// query, not how correct the generated text is.
func FormatAnswer(text string, passages []RetrievedPassage) Answer {
	confidence := 0.0
	if len(passages) > 0 {
		var sum float64
		for _, p := range passages {
			sum += p.Score
		}
		confidence = sum / float64(len(passages))
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
	}

	return Answer{
		Text:       text,
		Citations:  citedPages(passages),
		Confidence: confidence,
		Label:      labelFor(confidence),
		Passages:   passages,
	}
}

// citedPages returns the distinct pages of the passages, ascending.
func citedPages(passages []RetrievedPassage) []int {
	if len(passages) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(passages))
	var pages []int
	for _, p := range passages {
		if !seen[p.Page] {
			seen[p.Page] = true
			pages = append(pages, p.Page)
		}
	}
	sort.Ints(pages)
	return pages
}
