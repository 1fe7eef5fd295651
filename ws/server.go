// Package ws provides the WebSocket server for presentation clients.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/byn52602/ask-my-github/chat"
	"github.com/byn52602/ask-my-github/config"
	"github.com/byn52602/ask-my-github/domain"
	"github.com/byn52602/ask-my-github/hub"
	"github.com/byn52602/ask-my-github/policy"
	"github.com/byn52602/ask-my-github/protocol"
)

// Server handles WebSocket connections and forwards user intents to the
// orchestrator.
type Server struct {
	cfg          *config.Config
	hub          *hub.Hub
	orchestrator *chat.Orchestrator
	policyEngine *policy.Engine
	upgrader     websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, orch *chat.Orchestrator, policyEngine *policy.Engine) *Server {
	return &Server{
		cfg:          cfg,
		hub:          h,
		orchestrator: orch,
		policyEngine: policyEngine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for MVP
				return true
			},
		},
	}
}

// BroadcastTurn pushes an appended turn to all connected clients.
func (s *Server) BroadcastTurn(turn domain.Turn) {
	msg := protocol.TurnMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeTurn, Ts: time.Now().UnixMilli()},
		Turn:        turn,
	}
	if err := s.hub.BroadcastJSON(msg); err != nil {
		log.Printf("ERROR: failed to broadcast turn: %v", err)
	}
}

// BroadcastBusy pushes a busy-state transition to all connected clients.
func (s *Server) BroadcastBusy(busy bool) {
	msg := protocol.BusyMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeBusy, Ts: time.Now().UnixMilli()},
		Busy:        busy,
	}
	if err := s.hub.BroadcastJSON(msg); err != nil {
		log.Printf("ERROR: failed to broadcast busy state: %v", err)
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeHello:
		s.handleHello(conn, data)
	case protocol.TypeAsk:
		s.handleAsk(conn, data)
	case protocol.TypeIndex:
		s.handleIndex(conn, data)
	default:
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleHello handles the hello handshake message and sends the current
// transcript snapshot so the client can catch up.
func (s *Server) handleHello(conn *hub.Connection, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	ack := protocol.HelloAckMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeHelloAck, Ts: time.Now().UnixMilli()},
	}
	s.hub.SendJSONToConnection(conn, ack)

	snapshot := protocol.TranscriptMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeTranscript, Ts: time.Now().UnixMilli()},
		Turns:       s.orchestrator.Turns(),
	}
	s.hub.SendJSONToConnection(conn, snapshot)

	busy := protocol.BusyMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeBusy, Ts: time.Now().UnixMilli()},
		Busy:        s.orchestrator.Busy(),
	}
	s.hub.SendJSONToConnection(conn, busy)

	log.Printf("Hello handshake completed for connection: %s", conn.ID)
}

// handleAsk handles question intents.
func (s *Server) handleAsk(conn *hub.Connection, data []byte) {
	var msg protocol.AskMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid ask message")
		return
	}

	// Empty input is dropped without a reply, like the core does. A false
	// return below can then only mean a busy rejection.
	if strings.TrimSpace(msg.Question) == "" || strings.TrimSpace(msg.RepoURL) == "" {
		return
	}

	if !s.allowRepo(conn, msg.RepoURL) {
		return
	}

	ctx := context.Background()
	if !s.orchestrator.SubmitQuestion(ctx, msg.Question, msg.RepoURL) {
		// Tell the client so it can re-enable its input.
		s.sendError(conn, protocol.ErrorCodeBusy, "an operation is already in flight")
	}
}

// handleIndex handles indexing intents.
func (s *Server) handleIndex(conn *hub.Connection, data []byte) {
	var msg protocol.IndexMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid index message")
		return
	}

	if strings.TrimSpace(msg.RepoURL) == "" {
		return
	}

	if !s.allowRepo(conn, msg.RepoURL) {
		return
	}

	ctx := context.Background()
	if !s.orchestrator.RequestIndexing(ctx, msg.RepoURL) {
		s.sendError(conn, protocol.ErrorCodeBusy, "an operation is already in flight")
	}
}

// allowRepo evaluates the repository policy; blocked intents never reach
// the orchestrator.
func (s *Server) allowRepo(conn *hub.Connection, repoURL string) bool {
	if s.policyEngine == nil || repoURL == "" {
		return true
	}

	decision, err := s.policyEngine.Evaluate(context.Background(), repoURL)
	if err != nil {
		log.Printf("ERROR: policy evaluation failed: %v", err)
		return true
	}
	if decision == policy.DecisionBlock {
		s.sendError(conn, protocol.ErrorCodePolicyBlocked, "repository not allowed by policy: "+repoURL)
		return false
	}
	return true
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeError, Ts: time.Now().UnixMilli()},
		Code:        code,
		Message:     message,
	}
	s.hub.SendJSONToConnection(conn, errMsg)
}
