package pipeline

import (
	"fmt"
	"strings"
)

// SystemPrompt constrains the model to the supplied context.
const SystemPrompt = `You are an expert assistant answering questions about a single document. Your knowledge comes exclusively from the context passages you are given.

CRITICAL INSTRUCTIONS:
1. Answer questions ONLY using information from the provided context
2. If the context doesn't contain relevant information, clearly state that the document does not cover it
3. DO NOT make up or infer information beyond what's in the context
4. Always cite the page number when providing information
5. Be precise, accurate, and professional

Your responses should be:
- Direct and concise
- Well-structured with clear explanations
- Grounded in the provided context
- Properly attributed to source pages`

// RefusalResponse is returned verbatim when retrieval yields nothing. The
// model is never called in that case.
const RefusalResponse = `I don't have information about that in the document I have access to. Could you rephrase your question or ask about a topic the document covers?`

// GreetingResponse answers short greetings without touching the retriever
// or the model.
const GreetingResponse = `Hello! I'm an assistant that answers questions about the indexed document. Ask me anything covered by it and I'll reply with page citations.`

// greetings are matched as whole tokens in short queries.
var greetings = []string{"hello", "hi", "hey", "greetings"}

// IsGreeting reports whether the query is a short greeting (at most three
// words containing a greeting token).
func IsGreeting(query string) bool {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		w = strings.Trim(w, ".,!?")
		for _, g := range greetings {
			if w == g {
				return true
			}
		}
	}
	return false
}

// ragPrompt renders the grounded user prompt: labeled context passages
// followed by the question.
func ragPrompt(passages []RetrievedPassage, question string) string {
	return fmt.Sprintf(`Based on the following context from the document, please answer the user's question.

CONTEXT:
%s

USER QUESTION: %s

INSTRUCTIONS:
- Answer using ONLY the information provided in the context above
- Cite the page number(s) where you found the information
- If the context doesn't contain the answer, say so clearly
- Be specific and accurate

ANSWER:`, formatContext(passages), question)
}

// formatContext renders passages as numbered, page-labeled blocks.
func formatContext(passages []RetrievedPassage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("[Source %d - Page %d - Relevance: %.0f%%]\n%s\n",
			i+1, p.Page, p.Score*100, p.Text)
	}
	return strings.Join(parts, "\n---\n")
}
