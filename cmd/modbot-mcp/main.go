package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DevRickLin/feishu-modbot/internal/mcp"
)

// This MCP server exposes the moderation admin tools over stdio.
// Tool calls are relayed to the modbot admin API.

const version = "v1.0.0"

func main() {
	_ = godotenv.Load()

	// stdout carries the protocol, logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	apiURL := os.Getenv("MODBOT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := mcp.NewServer(mcp.NewHandler(mcp.NewClient(apiURL)), version)
	logger.Info("modbot MCP server starting", "api", apiURL)
	if err := server.Run(ctx, &sdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", "err", err)
		os.Exit(1)
	}
}
