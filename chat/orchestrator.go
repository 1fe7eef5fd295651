// Package chat implements the conversation orchestrator: it serializes
// remote index/query operations against a single busy flag and maps every
// outcome onto the append-only transcript.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/byn52602/ask-my-github/domain"
)

// defaultTopK is the fixed number of context chunks requested per query.
// Not user-configurable.
const defaultTopK = 3

const (
	defaultQueryTimeout = 2 * time.Minute
	defaultIndexTimeout = 5 * time.Minute
)

const queryFailureMessage = "Sorry, the request could not be completed. Please try again."

// Backend is the remote indexing/query service as seen by the orchestrator.
type Backend interface {
	Query(ctx context.Context, question, repoURL string, topK int) (*domain.QueryResult, error)
	Index(ctx context.Context, repoURL, branch string) (string, error)
}

// Recorder receives diagnostic events. Recording is best-effort; failures
// never affect the conversation.
type Recorder interface {
	Record(ctx context.Context, eventType domain.EventType, repoURL string, payload interface{}) error
}

// Orchestrator owns the transcript and the session context. At most one
// remote operation is in flight at any time; an intent arriving while busy
// is dropped, not queued.
type Orchestrator struct {
	mu         sync.Mutex
	transcript *Transcript
	busy       bool
	activeRepo string

	backend  Backend
	recorder Recorder

	queryTimeout time.Duration
	indexTimeout time.Duration

	onTurn func(domain.Turn)
	onBusy func(bool)
}

// New creates an orchestrator with an empty transcript. recorder may be nil.
func New(backend Backend, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		transcript:   NewTranscript(),
		backend:      backend,
		recorder:     recorder,
		queryTimeout: defaultQueryTimeout,
		indexTimeout: defaultIndexTimeout,
	}
}

// SetTimeouts overrides the per-operation resolution timeouts. Must be
// called before the orchestrator starts accepting intents.
func (o *Orchestrator) SetTimeouts(query, index time.Duration) {
	if query > 0 {
		o.queryTimeout = query
	}
	if index > 0 {
		o.indexTimeout = index
	}
}

// OnTurn registers a presentation observer called after each append. Must
// be set before the orchestrator starts accepting intents.
func (o *Orchestrator) OnTurn(fn func(domain.Turn)) {
	o.onTurn = fn
}

// OnBusyChange registers a presentation observer for busy transitions.
// Must be set before the orchestrator starts accepting intents.
func (o *Orchestrator) OnBusyChange(fn func(bool)) {
	o.onBusy = fn
}

// SubmitQuestion accepts a question intent. The user turn is appended and
// busy is set before the remote call is dispatched; resolution always
// appends exactly one assistant turn and clears busy. Returns false when
// the intent was dropped (empty input or an operation already in flight).
func (o *Orchestrator) SubmitQuestion(ctx context.Context, question, repoURL string) bool {
	question = strings.TrimSpace(question)
	repoURL = strings.TrimSpace(repoURL)
	if question == "" || repoURL == "" {
		return false
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		o.record(ctx, domain.EventTypeIntentRejected, repoURL, domain.IntentRejectedPayload{
			Intent: "submit_question",
			Reason: "busy",
		})
		return false
	}
	o.busy = true
	o.activeRepo = repoURL
	userTurn := o.transcript.Append(domain.AuthorUser, question, nil)
	o.mu.Unlock()

	o.notifyBusy(true)
	o.notifyTurn(userTurn)

	o.record(ctx, domain.EventTypeQuestionSubmitted, repoURL, domain.QuestionSubmittedPayload{
		TurnID:   userTurn.ID,
		Question: question,
	})

	go o.resolveQuery(question, repoURL)
	return true
}

// RequestIndexing accepts an indexing intent. Unlike SubmitQuestion it does
// not append a user turn: indexing is a side-channel action, not a
// conversational utterance. Only the resulting assistant turn is recorded.
func (o *Orchestrator) RequestIndexing(ctx context.Context, repoURL string) bool {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return false
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		o.record(ctx, domain.EventTypeIntentRejected, repoURL, domain.IntentRejectedPayload{
			Intent: "request_indexing",
			Reason: "busy",
		})
		return false
	}
	o.busy = true
	o.activeRepo = repoURL
	o.mu.Unlock()

	o.notifyBusy(true)

	o.record(ctx, domain.EventTypeIndexingRequested, repoURL, nil)

	go o.resolveIndexing(repoURL)
	return true
}

// Turns returns a snapshot of the transcript, valid at any time.
func (o *Orchestrator) Turns() []domain.Turn {
	return o.transcript.Turns()
}

// Busy reports whether a remote operation is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// ActiveRepository returns the repository URL of the most recent accepted
// intent, or empty if none has been accepted yet.
func (o *Orchestrator) ActiveRepository() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeRepo
}

func (o *Orchestrator) resolveQuery(question, repoURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.queryTimeout)
	defer cancel()

	result, err := o.backend.Query(ctx, question, repoURL, defaultTopK)
	if err != nil {
		log.Printf("ERROR: query against %s failed: %v", repoURL, err)
		turn := o.finish(queryFailureMessage, nil)
		// ctx may already be expired here; record with a fresh one.
		o.record(context.Background(), domain.EventTypeQueryFailed, repoURL, domain.OperationFailedPayload{
			TurnID:  turn.ID,
			Message: err.Error(),
		})
		return
	}

	turn := o.finish(result.Answer, result.Chunks)
	o.record(context.Background(), domain.EventTypeAnswerReceived, repoURL, domain.AnswerReceivedPayload{
		TurnID:     turn.ID,
		ChunkCount: len(result.Chunks),
	})
}

func (o *Orchestrator) resolveIndexing(repoURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.indexTimeout)
	defer cancel()

	if _, err := o.backend.Index(ctx, repoURL, ""); err != nil {
		log.Printf("ERROR: indexing of %s failed: %v", repoURL, err)
		turn := o.finish(fmt.Sprintf("Indexing of %s could not be completed. Please try again.", repoURL), nil)
		o.record(context.Background(), domain.EventTypeIndexingFailed, repoURL, domain.OperationFailedPayload{
			TurnID:  turn.ID,
			Message: err.Error(),
		})
		return
	}

	turn := o.finish(fmt.Sprintf("Indexing of %s has started. Ask a question once it completes.", repoURL), nil)
	o.record(context.Background(), domain.EventTypeIndexingDone, repoURL, domain.AnswerReceivedPayload{TurnID: turn.ID})
}

// finish appends the resolving assistant turn and clears busy. Every
// accepted operation reaches finish exactly once, on success or failure.
func (o *Orchestrator) finish(content string, chunks []domain.ContextChunk) domain.Turn {
	o.mu.Lock()
	turn := o.transcript.Append(domain.AuthorAssistant, content, chunks)
	o.busy = false
	o.mu.Unlock()

	o.notifyTurn(turn)
	o.notifyBusy(false)
	return turn
}

func (o *Orchestrator) notifyTurn(turn domain.Turn) {
	if o.onTurn != nil {
		o.onTurn(turn)
	}
}

func (o *Orchestrator) notifyBusy(busy bool) {
	if o.onBusy != nil {
		o.onBusy(busy)
	}
}

func (o *Orchestrator) record(ctx context.Context, eventType domain.EventType, repoURL string, payload interface{}) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, eventType, repoURL, payload); err != nil {
		log.Printf("ERROR: failed to record %s event: %v", eventType, err)
	}
}
