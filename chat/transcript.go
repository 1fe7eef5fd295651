package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/byn52602/ask-my-github/domain"
)

// Transcript is the ordered, append-only sequence of turns making up the
// conversation. Turns are immutable once appended; insertion order is the
// canonical reading order.
type Transcript struct {
	mu    sync.RWMutex
	turns []domain.Turn
	seq   int64
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append creates a turn with the next counter-based ID and appends it.
// IDs are never reused.
func (t *Transcript) Append(author domain.Author, content string, chunks []domain.ContextChunk) domain.Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	turn := domain.Turn{
		ID:        fmt.Sprintf("turn_%d", t.seq),
		Author:    author,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if len(chunks) > 0 {
		turn.ContextChunks = append([]domain.ContextChunk(nil), chunks...)
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Turns returns a snapshot of the transcript in insertion order. Safe to
// call at any time, including while an operation is in flight.
func (t *Transcript) Turns() []domain.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.Turn(nil), t.turns...)
}

// Len returns the number of turns appended so far.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}
