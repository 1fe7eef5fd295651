package helpers

import (
	"testing"

	"github.com/byn52602/ask-my-github/journal"
)

func NewTestJournal(t *testing.T) *journal.Journal {
	t.Helper()

	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}

	t.Cleanup(func() {
		_ = j.Close()
	})

	return j
}
