package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/askdoc/askdoc/internal/index"
	"github.com/askdoc/askdoc/internal/log"
)

// Stage identifies where a request is in the pipeline. Done and Error are
// terminal; transitions are strictly linear otherwise.
type Stage string

const (
	StageInit       Stage = "init"
	StageRetrieving Stage = "retrieving"
	StageGenerating Stage = "generating"
	StageFormatting Stage = "formatting"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

// ErrorKind classifies a pipeline failure for callers and logs.
type ErrorKind string

const (
	KindEmbedding     ErrorKind = "embedding"
	KindIndexNotFound ErrorKind = "index_not_found"
	KindGeneration    ErrorKind = "generation"
	KindInternal      ErrorKind = "internal"
)

// User-safe failure messages per error kind. These are operational failures,
// deliberately distinct from the grounded refusal the generator returns when
// the document has no relevant content.
const (
	msgEmbedding     = "The embedding service is unavailable right now. Please try again in a moment."
	msgIndexNotFound = "No document index exists yet. Build one first with: askdoc index <file.pdf>"
	msgGeneration    = "The answer could not be generated. Please try again in a moment."
	msgInternal      = "Something went wrong while processing the question. Please try again."
)

// State is the per-request pipeline state. After Run returns, Stage is
// either Done (Answer is set) or Error (ErrorKind and Message are set).
type State struct {
	RequestID uuid.UUID
	Query     string
	Stage     Stage

	Retrieval RetrievalResult
	RawAnswer string
	Answer    *Answer

	ErrorKind ErrorKind
	Message   string // user-safe, never a raw collaborator error
	err       error  // underlying cause, for logs only
}

// Err returns the underlying error of a failed run, nil otherwise.
func (s *State) Err() error { return s.err }

// Pipeline orchestrates one question-answering request at a time. A single
// Run is synchronous; concurrent Runs are safe because all mutable state
// lives in the per-request State.
type Pipeline struct {
	retriever *Retriever
	generator *Generator
	logger    log.Logger
}

// New assembles the pipeline from its two collaborators.
func New(retriever *Retriever, generator *Generator, logger log.Logger) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// Run processes a question to a terminal state. It never returns an error:
// failures are captured in the state with a kind and a user-safe message.
func (p *Pipeline) Run(ctx context.Context, query string) *State {
	st := &State{
		RequestID: uuid.New(),
		Query:     query,
		Stage:     StageInit,
	}
	logger := p.logger.With("request_id", st.RequestID)

	// Short greetings bypass retrieval and generation entirely.
	if IsGreeting(query) {
		answer := FormatAnswer(GreetingResponse, nil)
		st.Answer = &answer
		st.Stage = StageDone
		logger.Debug("greeting short-circuit")
		return st
	}

	st.Stage = StageRetrieving
	retrieval, err := p.retriever.Retrieve(ctx, query)
	if err != nil {
		return p.fail(st, logger, err)
	}
	st.Retrieval = retrieval

	st.Stage = StageGenerating
	raw, err := p.generator.Generate(ctx, query, retrieval.Passages)
	if err != nil {
		return p.fail(st, logger, err)
	}
	st.RawAnswer = raw

	st.Stage = StageFormatting
	answer := FormatAnswer(raw, retrieval.Passages)
	st.Answer = &answer

	st.Stage = StageDone
	logger.Info("pipeline finished",
		"passages", len(retrieval.Passages),
		"confidence", answer.Confidence,
		"citations", answer.Citations)
	return st
}

// fail moves the state to the terminal Error stage, classifying the cause
// and attaching a user-safe message.
func (p *Pipeline) fail(st *State, logger log.Logger, err error) *State {
	st.ErrorKind, st.Message = classify(err)
	st.err = err
	logger.Error("pipeline failed",
		"stage", st.Stage,
		"kind", st.ErrorKind,
		"error", err)
	st.Stage = StageError
	return st
}

// classify maps collaborator errors to an error kind and user-safe message.
func classify(err error) (ErrorKind, string) {
	switch {
	case errors.Is(err, index.ErrIndexNotFound):
		return KindIndexNotFound, msgIndexNotFound
	case errors.Is(err, index.ErrEmbedding):
		return KindEmbedding, msgEmbedding
	case errors.Is(err, ErrGeneration):
		return KindGeneration, msgGeneration
	default:
		return KindInternal, msgInternal
	}
}
