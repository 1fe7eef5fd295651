// Package protocol defines the WebSocket message protocol between
// presentation clients and the chat server.
package protocol

import "github.com/byn52602/ask-my-github/domain"

// Message types from client to server
const (
	TypeHello = "hello"
	TypeAsk   = "ask"
	TypeIndex = "index"
)

// Message types from server to client
const (
	TypeHelloAck   = "hello_ack"
	TypeTranscript = "transcript"
	TypeTurn       = "turn"
	TypeBusy       = "busy"
	TypeError      = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
}

// HelloMessage is sent by client to establish connection.
type HelloMessage struct {
	BaseMessage
	ClientMeta map[string]string `json:"client_meta,omitempty"`
}

// HelloAckMessage is sent by the server after a successful hello.
type HelloAckMessage struct {
	BaseMessage
}

// AskMessage is sent by client to submit a question intent.
type AskMessage struct {
	BaseMessage
	Question string `json:"question"`
	RepoURL  string `json:"repo_url"`
}

// IndexMessage is sent by client to request indexing of a repository.
type IndexMessage struct {
	BaseMessage
	RepoURL string `json:"repo_url"`
}

// TranscriptMessage carries a full transcript snapshot; sent right after
// hello_ack so a client can catch up.
type TranscriptMessage struct {
	BaseMessage
	Turns []domain.Turn `json:"turns"`
}

// TurnMessage carries a single appended turn.
type TurnMessage struct {
	BaseMessage
	Turn domain.Turn `json:"turn"`
}

// BusyMessage reports a busy-state transition. Clients are expected to
// disable input affordances while busy is true.
type BusyMessage struct {
	BaseMessage
	Busy bool `json:"busy"`
}

// ErrorMessage is sent by the server when a message cannot be handled.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeBusy           = "busy"
	ErrorCodePolicyBlocked  = "policy_blocked"
)
