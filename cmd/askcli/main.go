// Package main provides a terminal client for the ask-my-github server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/byn52602/ask-my-github/domain"
	"github.com/byn52602/ask-my-github/protocol"
)

// Client represents a WebSocket client.
type Client struct {
	conn *websocket.Conn
	done chan struct{}
}

// NewClient creates a new client and connects to the server.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendHello sends a hello message and waits for hello_ack.
func (c *Client) SendHello() error {
	msg := protocol.HelloMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.TypeHello,
			Ts:   time.Now().UnixMilli(),
		},
		ClientMeta: map[string]string{
			"client": "askcli",
		},
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	// Wait for hello_ack
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}

	if base.Type == protocol.TypeError {
		var errMsg protocol.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}

	if base.Type != protocol.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	return nil
}

// SendAsk sends a question intent.
func (c *Client) SendAsk(question, repoURL string) error {
	msg := protocol.AskMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeAsk,
			Ts:        time.Now().UnixMilli(),
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
		},
		Question: question,
		RepoURL:  repoURL,
	}

	return c.conn.WriteJSON(msg)
}

// SendIndex sends an indexing intent.
func (c *Client) SendIndex(repoURL string) error {
	msg := protocol.IndexMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeIndex,
			Ts:        time.Now().UnixMilli(),
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
		},
		RepoURL: repoURL,
	}

	return c.conn.WriteJSON(msg)
}

// ReadMessages reads and renders messages from the server.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				return
			}

			var base protocol.BaseMessage
			if err := json.Unmarshal(data, &base); err != nil {
				log.Printf("Unmarshal error: %v", err)
				continue
			}

			switch base.Type {
			case protocol.TypeTranscript:
				var msg protocol.TranscriptMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					continue
				}
				for _, turn := range msg.Turns {
					printTurn(turn)
				}

			case protocol.TypeTurn:
				var msg protocol.TurnMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					continue
				}
				printTurn(msg.Turn)

			case protocol.TypeBusy:
				var msg protocol.BusyMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					continue
				}
				if msg.Busy {
					fmt.Println("... working ...")
				}

			case protocol.TypeError:
				var msg protocol.ErrorMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					continue
				}
				fmt.Printf("\n[%s] %s\n", msg.Code, msg.Message)
			}
		}
	}
}

func printTurn(turn domain.Turn) {
	fmt.Printf("\n[%s] %s\n", turn.Author, turn.Content)
	for _, chunk := range turn.ContextChunks {
		fmt.Printf("    %s\n", chunk.FilePath)
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket server address")
	repo := flag.String("repo", "", "Repository URL to converse about")
	flag.Parse()

	log.SetFlags(log.Ltime)

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println("Connected. Sending hello...")

	if err := client.SendHello(); err != nil {
		log.Fatalf("Hello failed: %v", err)
	}

	repoURL := *repo

	fmt.Println("\nType a question and press Enter to send.")
	fmt.Println("Commands: /repo <url>, /index <url>, /quit")

	// Start reading messages in background
	go client.ReadMessages()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Read user input
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		default:
			if !scanner.Scan() {
				return
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			if input == "/quit" {
				fmt.Println("Bye!")
				return
			}

			if url, ok := strings.CutPrefix(input, "/repo "); ok {
				repoURL = strings.TrimSpace(url)
				fmt.Printf("Active repository: %s\n", repoURL)
				continue
			}

			if url, ok := strings.CutPrefix(input, "/index "); ok {
				target := strings.TrimSpace(url)
				if target == "" {
					target = repoURL
				}
				if target == "" {
					fmt.Println("No repository set. Use /repo <url> first.")
					continue
				}
				repoURL = target
				if err := client.SendIndex(target); err != nil {
					log.Printf("Send error: %v", err)
				}
				continue
			}

			if repoURL == "" {
				fmt.Println("No repository set. Use /repo <url> first.")
				continue
			}

			if err := client.SendAsk(input, repoURL); err != nil {
				log.Printf("Send error: %v", err)
				continue
			}
		}
	}
}
