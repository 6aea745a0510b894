// Package testutil provides deterministic genkit test doubles and the
// pgvector testcontainers helper.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM is a scripted language model. It answers with the response whose
// pattern first matches the user message (case-insensitive substring), or
// with the fallback, and records every call it receives.
//
// Safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	scripted []scriptedResponse
	fallback string
	failWith error
	calls    []MockCall
}

type scriptedResponse struct {
	pattern  string
	response string
}

// MockCall is one recorded model invocation. Response is empty when the call
// was failed via FailWith.
type MockCall struct {
	UserMessage string
	Response    string
}

// NewMockLLM creates a mock model answering fallback unless a scripted
// pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse scripts a response for user messages containing pattern.
// Earlier scripts win.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, scriptedResponse{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// FailWith makes every subsequent call return err. Pass nil to restore
// normal behavior. Failed calls are still recorded.
func (m *MockLLM) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears recorded calls, keeping the scripted responses.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// RegisterModel registers the mock under the name "mock/test-model".
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/test-model", &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	userText := lastUserMessage(req)

	m.mu.Lock()
	if err := m.failWith; err != nil {
		m.calls = append(m.calls, MockCall{UserMessage: userText})
		m.mu.Unlock()
		return nil, err
	}
	text := m.responseFor(userText)
	m.calls = append(m.calls, MockCall{UserMessage: userText, Response: text})
	m.mu.Unlock()

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(text)},
		})
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(text)},
		},
	}, nil
}

// responseFor picks the first matching scripted response. Caller holds mu.
func (m *MockLLM) responseFor(userText string) string {
	lower := strings.ToLower(userText)
	for _, s := range m.scripted {
		if strings.Contains(lower, s.pattern) {
			return s.response
		}
	}
	return m.fallback
}

func lastUserMessage(req *ai.ModelRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			return req.Messages[i].Text()
		}
	}
	return ""
}

// MockEmbedder is a deterministic embedder: explicit vectors can be pinned
// per content for exact similarity control, everything else gets a unit
// vector derived from a content hash.
//
// Safe for concurrent use.
type MockEmbedder struct {
	mu       sync.Mutex
	pinned   map[string][]float32
	dim      int
	failWith error
}

// NewMockEmbedder creates a mock embedder producing dim-sized vectors.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		pinned: make(map[string][]float32),
		dim:    dim,
	}
}

// SetVector pins an exact vector for the given content.
func (e *MockEmbedder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned[content] = vec
}

// FailWith makes every subsequent call return err. Pass nil to restore
// normal behavior.
func (e *MockEmbedder) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failWith = err
}

// RegisterEmbedder registers the mock under the name "mock/test-embedder".
func (e *MockEmbedder) RegisterEmbedder(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/test-embedder", &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.mu.Lock()
	err := e.failWith
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: e.vectorFor(documentText(doc))}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// vectorFor returns the pinned vector for content, or a hash-derived one.
func (e *MockEmbedder) vectorFor(content string) []float32 {
	e.mu.Lock()
	vec, ok := e.pinned[content]
	e.mu.Unlock()
	if ok {
		return vec
	}
	return hashVector(content, e.dim)
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// hashVector derives a unit vector from the SHA-256 of the content. Same
// content, same vector; different content, almost surely a different one.
func hashVector(content string, dim int) []float32 {
	digest := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		// Reuse the digest cyclically, 4 bytes per component.
		var quad [4]byte
		for j := range quad {
			quad[j] = digest[(i*4+j)%len(digest)]
		}
		bits := binary.LittleEndian.Uint32(quad[:])
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
