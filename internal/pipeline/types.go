// Package pipeline runs a question through retrieval, grounded generation
// and answer formatting as a linear state machine.
//
// Stages advance Init -> Retrieving -> Generating -> Formatting -> Done; any
// failure moves to the terminal Error stage carrying an error kind and a
// user-safe message. Raw collaborator errors never reach callers unwrapped.
package pipeline

// ConfidenceLabel buckets the confidence score for display.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "High"
	ConfidenceMedium ConfidenceLabel = "Medium"
	ConfidenceLow    ConfidenceLabel = "Low"
)

// labelFor maps a confidence score to its display bucket.
func labelFor(confidence float64) ConfidenceLabel {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// RetrievedPassage is one chunk retained by the retriever, with the page it
// came from and its similarity score against the query.
type RetrievedPassage struct {
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
}

// RetrievalResult carries the query together with its retained passages,
// ordered by descending score. Zero passages is a valid outcome.
type RetrievalResult struct {
	Query    string             `json:"query"`
	Passages []RetrievedPassage `json:"passages"`
}

// Answer is the formatted pipeline output.
type Answer struct {
	Text       string             `json:"text"`
	Citations  []int              `json:"citations"` // distinct source pages, ascending
	Confidence float64            `json:"confidence"`
	Label      ConfidenceLabel    `json:"confidence_label"`
	Passages   []RetrievedPassage `json:"passages,omitempty"`
}
