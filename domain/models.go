// Package domain defines the core domain models for the chat front end.
package domain

import (
	"encoding/json"
	"time"
)

// Author identifies who produced a turn.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// ContextChunk is a retrieved code snippet attached to an assistant turn.
type ContextChunk struct {
	Text     string `json:"text"`
	FilePath string `json:"file_path"`
}

// Turn is one entry in the conversation transcript. Turns are immutable
// once appended; the transcript only grows.
type Turn struct {
	ID            string         `json:"id"`
	Author        Author         `json:"author"`
	Content       string         `json:"content"`
	CreatedAt     time.Time      `json:"created_at"`
	ContextChunks []ContextChunk `json:"context_chunks,omitempty"`
}

// IndexRequest is the request body for POST /api/index on the backend.
type IndexRequest struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch,omitempty"`
}

// StatusResponse is the response body for index and health calls.
type StatusResponse struct {
	Status string `json:"status"`
}

// QueryRequest is the request body for POST /api/query on the backend.
type QueryRequest struct {
	Question string `json:"question"`
	RepoURL  string `json:"repo_url"`
	TopK     int    `json:"top_k,omitempty"`
}

// QueryResponse is the response body for POST /api/query on the backend.
type QueryResponse struct {
	Answer string         `json:"answer"`
	Chunks []ContextChunk `json:"chunks"`
}

// QueryResult is the decoded outcome of a query operation.
type QueryResult struct {
	Answer string
	Chunks []ContextChunk
}

// EventType represents the type of a journal event.
type EventType string

const (
	EventTypeQuestionSubmitted EventType = "question_submitted"
	EventTypeAnswerReceived    EventType = "answer_received"
	EventTypeQueryFailed       EventType = "query_failed"
	EventTypeIndexingRequested EventType = "indexing_requested"
	EventTypeIndexingDone      EventType = "indexing_done"
	EventTypeIndexingFailed    EventType = "indexing_failed"
	EventTypeIntentRejected    EventType = "intent_rejected"
)

// Event is a diagnostic journal entry recording an accepted intent or its
// outcome. The transcript itself is never rebuilt from events.
type Event struct {
	EventID string          `json:"event_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	RepoURL string          `json:"repo_url,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// QuestionSubmittedPayload is the payload for question_submitted events.
type QuestionSubmittedPayload struct {
	TurnID   string `json:"turn_id"`
	Question string `json:"question"`
}

// AnswerReceivedPayload is the payload for answer_received events.
type AnswerReceivedPayload struct {
	TurnID     string `json:"turn_id"`
	ChunkCount int    `json:"chunk_count"`
}

// OperationFailedPayload is the payload for query_failed and
// indexing_failed events.
type OperationFailedPayload struct {
	TurnID  string `json:"turn_id,omitempty"`
	Message string `json:"message"`
}

// IntentRejectedPayload is the payload for intent_rejected events.
type IntentRejectedPayload struct {
	Intent string `json:"intent"`
	Reason string `json:"reason"` // "busy" or "invalid"
}
