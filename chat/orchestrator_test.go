package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/byn52602/ask-my-github/chat"
	"github.com/byn52602/ask-my-github/domain"
)

// fakeBackend is a controllable Backend implementation. When block is
// non-nil, Query and Index wait until it is closed.
type fakeBackend struct {
	mu          sync.Mutex
	queryResult *domain.QueryResult
	queryErr    error
	indexStatus string
	indexErr    error
	block       chan struct{}

	queryCalls int
	indexCalls int
	lastTopK   int
	lastRepo   string
}

func (f *fakeBackend) Query(ctx context.Context, question, repoURL string, topK int) (*domain.QueryResult, error) {
	f.mu.Lock()
	f.queryCalls++
	f.lastTopK = topK
	f.lastRepo = repoURL
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResult, nil
}

func (f *fakeBackend) Index(ctx context.Context, repoURL, branch string) (string, error) {
	f.mu.Lock()
	f.indexCalls++
	f.lastRepo = repoURL
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.indexErr != nil {
		return "", f.indexErr
	}
	return f.indexStatus, nil
}

func (f *fakeBackend) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls, f.indexCalls
}

func newTestOrchestrator(backend chat.Backend) (*chat.Orchestrator, chan domain.Turn) {
	orch := chat.New(backend, nil)
	turns := make(chan domain.Turn, 16)
	orch.OnTurn(func(turn domain.Turn) {
		turns <- turn
	})
	return orch, turns
}

func waitTurn(t *testing.T, turns chan domain.Turn) domain.Turn {
	t.Helper()
	select {
	case turn := <-turns:
		return turn
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for turn")
		return domain.Turn{}
	}
}

func TestSubmitQuestionSuccess(t *testing.T) {
	backend := &fakeBackend{
		queryResult: &domain.QueryResult{
			Answer: "It starts the app.",
			Chunks: []domain.ContextChunk{{Text: "func main(){}", FilePath: "main.go"}},
		},
	}
	orch, turns := newTestOrchestrator(backend)

	if !orch.SubmitQuestion(context.Background(), "What does main do?", "https://github.com/x/y") {
		t.Fatalf("expected intent to be accepted")
	}

	userTurn := waitTurn(t, turns)
	assistantTurn := waitTurn(t, turns)

	if userTurn.Author != domain.AuthorUser || userTurn.Content != "What does main do?" {
		t.Fatalf("unexpected user turn: %+v", userTurn)
	}
	if userTurn.ContextChunks != nil {
		t.Fatalf("user turn should not carry chunks: %+v", userTurn)
	}
	if assistantTurn.Author != domain.AuthorAssistant || assistantTurn.Content != "It starts the app." {
		t.Fatalf("unexpected assistant turn: %+v", assistantTurn)
	}
	if len(assistantTurn.ContextChunks) != 1 || assistantTurn.ContextChunks[0].FilePath != "main.go" {
		t.Fatalf("unexpected chunks: %+v", assistantTurn.ContextChunks)
	}

	transcript := orch.Turns()
	if len(transcript) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(transcript))
	}
	if transcript[0].ID != "turn_1" || transcript[1].ID != "turn_2" {
		t.Fatalf("unexpected turn IDs: %s, %s", transcript[0].ID, transcript[1].ID)
	}
	if orch.Busy() {
		t.Fatalf("busy should be false after resolution")
	}
	if orch.ActiveRepository() != "https://github.com/x/y" {
		t.Fatalf("unexpected active repository: %s", orch.ActiveRepository())
	}
	if backend.lastTopK != 3 {
		t.Fatalf("expected fixed top_k=3, got %d", backend.lastTopK)
	}
}

func TestSubmitQuestionFailure(t *testing.T) {
	backend := &fakeBackend{queryErr: errors.New("connection refused")}
	orch, turns := newTestOrchestrator(backend)

	if !orch.SubmitQuestion(context.Background(), "What does main do?", "https://github.com/x/y") {
		t.Fatalf("expected intent to be accepted")
	}

	waitTurn(t, turns) // user turn
	assistantTurn := waitTurn(t, turns)

	if assistantTurn.Author != domain.AuthorAssistant {
		t.Fatalf("expected assistant turn, got %s", assistantTurn.Author)
	}
	if !strings.Contains(assistantTurn.Content, "could not be completed") {
		t.Fatalf("expected fallback content, got %q", assistantTurn.Content)
	}
	if assistantTurn.ContextChunks != nil {
		t.Fatalf("failure turn should not carry chunks")
	}
	if orch.Busy() {
		t.Fatalf("busy should be false after a failed resolution")
	}
}

func TestRequestIndexingSuccess(t *testing.T) {
	backend := &fakeBackend{indexStatus: "Indexing started"}
	orch, turns := newTestOrchestrator(backend)

	if !orch.RequestIndexing(context.Background(), "https://github.com/x/y") {
		t.Fatalf("expected intent to be accepted")
	}

	turn := waitTurn(t, turns)

	// Indexing is a side-channel action: no user turn, only the
	// resulting assistant turn.
	if turn.Author != domain.AuthorAssistant {
		t.Fatalf("expected assistant turn, got %s", turn.Author)
	}
	if !strings.Contains(turn.Content, "https://github.com/x/y") {
		t.Fatalf("confirmation should mention the URL: %q", turn.Content)
	}
	if len(orch.Turns()) != 1 {
		t.Fatalf("expected exactly 1 turn, got %d", len(orch.Turns()))
	}
	if orch.Busy() {
		t.Fatalf("busy should be false after resolution")
	}
}

func TestRequestIndexingFailure(t *testing.T) {
	backend := &fakeBackend{indexErr: errors.New("clone failed")}
	orch, turns := newTestOrchestrator(backend)

	if !orch.RequestIndexing(context.Background(), "https://github.com/x/y") {
		t.Fatalf("expected intent to be accepted")
	}

	turn := waitTurn(t, turns)
	if !strings.Contains(turn.Content, "https://github.com/x/y") {
		t.Fatalf("failure message should mention the URL: %q", turn.Content)
	}
	if orch.Busy() {
		t.Fatalf("busy should be false after a failed resolution")
	}
}

func TestBusyRejection(t *testing.T) {
	backend := &fakeBackend{
		queryResult: &domain.QueryResult{Answer: "done"},
		block:       make(chan struct{}),
	}
	orch, turns := newTestOrchestrator(backend)

	if !orch.SubmitQuestion(context.Background(), "first?", "https://github.com/x/y") {
		t.Fatalf("first intent should be accepted")
	}
	waitTurn(t, turns) // user turn appended before the remote call resolves

	// Transcript stays readable mid-flight.
	if len(orch.Turns()) != 1 {
		t.Fatalf("expected 1 turn while in flight, got %d", len(orch.Turns()))
	}
	if !orch.Busy() {
		t.Fatalf("busy should be true while in flight")
	}

	// Both intent kinds are dropped while busy, with no transcript
	// mutation and no remote call.
	if orch.SubmitQuestion(context.Background(), "second?", "https://github.com/x/y") {
		t.Fatalf("second question should be rejected while busy")
	}
	if orch.RequestIndexing(context.Background(), "https://github.com/x/y") {
		t.Fatalf("indexing should be rejected while busy")
	}
	if len(orch.Turns()) != 1 {
		t.Fatalf("rejected intents must not append turns")
	}

	close(backend.block)
	waitTurn(t, turns) // assistant turn

	queryCalls, indexCalls := backend.calls()
	if queryCalls != 1 || indexCalls != 0 {
		t.Fatalf("expected exactly one remote call, got query=%d index=%d", queryCalls, indexCalls)
	}
	if len(orch.Turns()) != 2 {
		t.Fatalf("expected 2 turns after resolution, got %d", len(orch.Turns()))
	}
	if orch.Busy() {
		t.Fatalf("busy should be false after resolution")
	}
}

func TestValidationNoOp(t *testing.T) {
	backend := &fakeBackend{queryResult: &domain.QueryResult{Answer: "x"}}
	orch, _ := newTestOrchestrator(backend)

	cases := []struct {
		name     string
		question string
		repoURL  string
	}{
		{"empty question", "", "https://github.com/x/y"},
		{"whitespace question", "   \t", "https://github.com/x/y"},
		{"empty repo", "What does main do?", ""},
		{"whitespace repo", "What does main do?", "  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if orch.SubmitQuestion(context.Background(), tc.question, tc.repoURL) {
				t.Fatalf("expected intent to be dropped")
			}
		})
	}

	if orch.RequestIndexing(context.Background(), "  ") {
		t.Fatalf("expected indexing intent to be dropped")
	}

	queryCalls, indexCalls := backend.calls()
	if queryCalls != 0 || indexCalls != 0 {
		t.Fatalf("validation rejections must not reach the backend")
	}
	if len(orch.Turns()) != 0 {
		t.Fatalf("validation rejections must not append turns")
	}
	if orch.Busy() {
		t.Fatalf("busy should remain false")
	}
	if orch.ActiveRepository() != "" {
		t.Fatalf("active repository should remain unset")
	}
}

func TestBusyTransitions(t *testing.T) {
	backend := &fakeBackend{queryResult: &domain.QueryResult{Answer: "ok"}, indexStatus: "started"}
	orch := chat.New(backend, nil)

	var mu sync.Mutex
	var transitions []bool
	done := make(chan struct{}, 4)
	orch.OnBusyChange(func(busy bool) {
		mu.Lock()
		transitions = append(transitions, busy)
		mu.Unlock()
		done <- struct{}{}
	})

	orch.SubmitQuestion(context.Background(), "q", "https://github.com/x/y")
	<-done
	<-done
	orch.RequestIndexing(context.Background(), "https://github.com/x/y")
	<-done
	<-done

	mu.Lock()
	defer mu.Unlock()
	want := []bool{true, false, true, false}
	if len(transitions) != len(want) {
		t.Fatalf("expected %d transitions, got %v", len(want), transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("unexpected transitions: %v", transitions)
		}
	}
}

func TestEmptyChunksAllowed(t *testing.T) {
	backend := &fakeBackend{queryResult: &domain.QueryResult{Answer: "No context found."}}
	orch, turns := newTestOrchestrator(backend)

	orch.SubmitQuestion(context.Background(), "anything?", "https://github.com/x/y")
	waitTurn(t, turns)
	assistantTurn := waitTurn(t, turns)

	if assistantTurn.Content != "No context found." {
		t.Fatalf("unexpected content: %q", assistantTurn.Content)
	}
	if assistantTurn.ContextChunks != nil {
		t.Fatalf("empty chunk list should be omitted, got %+v", assistantTurn.ContextChunks)
	}
}
