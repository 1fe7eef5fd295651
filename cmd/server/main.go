package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/byn52602/ask-my-github/api"
	"github.com/byn52602/ask-my-github/backendclient"
	"github.com/byn52602/ask-my-github/chat"
	"github.com/byn52602/ask-my-github/config"
	"github.com/byn52602/ask-my-github/hub"
	"github.com/byn52602/ask-my-github/journal"
	"github.com/byn52602/ask-my-github/policy"
	"github.com/byn52602/ask-my-github/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting ask-my-github server...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Backend: %s", cfg.BackendURL)
	log.Printf("Journal: %s", cfg.JournalDSN)

	// Initialize journal
	j, err := journal.Open(cfg.JournalDSN)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	// Initialize backend client
	backend := backendclient.NewClient(cfg.BackendURL)

	// Initialize policy engine
	ctx := context.Background()
	policyContent := policy.DefaultPolicy
	if cfg.RepoPolicyFile != "" {
		data, err := os.ReadFile(cfg.RepoPolicyFile)
		if err != nil {
			log.Fatalf("Failed to read policy file: %v", err)
		}
		policyContent = string(data)
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize orchestrator
	orch := chat.New(backend, j)
	orch.SetTimeouts(cfg.QueryTimeout, cfg.IndexTimeout)

	// Initialize hub and WebSocket server; the orchestrator pushes every
	// append and busy transition to connected presentation clients.
	h := hub.NewHub()
	go h.Run()

	wsServer := ws.NewServer(cfg, h, orch, policyEngine)
	orch.OnTurn(wsServer.BroadcastTurn)
	orch.OnBusyChange(wsServer.BroadcastBusy)

	// Initialize handlers
	handler := api.NewHandler(orch, policyEngine, j, backend)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	handler.RegisterRoutes(server)
	server.GET("/ws", wsServer.HandleWebSocket)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Server stopped")
}
