package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/davidgpt/david-gpt/internal/adapters/mcp"
	"github.com/davidgpt/david-gpt/internal/bootstrap"
	"github.com/davidgpt/david-gpt/internal/config"
	"github.com/davidgpt/david-gpt/internal/observability/logging"
)

// The MCP bridge serves the search corpus to MCP clients (editors, agents)
// over stdio. Logs go to stderr so stdout stays a clean protocol stream.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.SearchUC, app.Personas)
	if err := server.ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
