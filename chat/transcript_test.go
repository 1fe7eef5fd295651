package chat

import (
	"testing"

	"github.com/byn52602/ask-my-github/domain"
)

func TestTranscriptAppendOrderAndIDs(t *testing.T) {
	tr := NewTranscript()

	first := tr.Append(domain.AuthorUser, "hello", nil)
	second := tr.Append(domain.AuthorAssistant, "hi", nil)

	if first.ID != "turn_1" || second.ID != "turn_2" {
		t.Fatalf("unexpected IDs: %s, %s", first.ID, second.ID)
	}
	if first.CreatedAt.IsZero() || second.CreatedAt.IsZero() {
		t.Fatalf("timestamps should be set")
	}

	turns := tr.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Content != "hello" || turns[1].Content != "hi" {
		t.Fatalf("unexpected order: %+v", turns)
	}
	if tr.Len() != 2 {
		t.Fatalf("expected Len 2, got %d", tr.Len())
	}
}

func TestTranscriptSnapshotIsolation(t *testing.T) {
	tr := NewTranscript()
	tr.Append(domain.AuthorUser, "hello", nil)

	snapshot := tr.Turns()
	snapshot[0].Content = "mutated"

	if tr.Turns()[0].Content != "hello" {
		t.Fatalf("mutating a snapshot must not affect the transcript")
	}
}

func TestTranscriptCopiesChunks(t *testing.T) {
	tr := NewTranscript()

	chunks := []domain.ContextChunk{{Text: "func main(){}", FilePath: "main.go"}}
	tr.Append(domain.AuthorAssistant, "answer", chunks)
	chunks[0].FilePath = "other.go"

	got := tr.Turns()[0].ContextChunks
	if len(got) != 1 || got[0].FilePath != "main.go" {
		t.Fatalf("chunks should be copied on append, got %+v", got)
	}
}

func TestTranscriptOmitsEmptyChunks(t *testing.T) {
	tr := NewTranscript()

	turn := tr.Append(domain.AuthorAssistant, "answer", []domain.ContextChunk{})
	if turn.ContextChunks != nil {
		t.Fatalf("empty chunk slice should stay nil, got %+v", turn.ContextChunks)
	}
}
