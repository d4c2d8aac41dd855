package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	scholar "github.com/bbiangul/go-scholar"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading .env", "error", err)
	}

	cfg := scholar.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = scholar.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	cfg.ApplyEnv()

	assistant, err := scholar.New(cfg)
	if err != nil {
		slog.Error("creating assistant", "error", err)
		os.Exit(1)
	}
	defer assistant.Close()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      newServer(assistant, os.Getenv("SCHOLAR_API_KEY"), os.Getenv("SCHOLAR_CORS_ORIGINS")),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 0, // model calls can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr, "chat_provider", cfg.Chat.Provider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// newServer wires routes and middleware around an assistant.
func newServer(a scholar.Assistant, apiKey, corsOrigins string) http.Handler {
	h := newHandler(a)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", h.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", h.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", h.handleDeleteSession)
	mux.HandleFunc("GET /sessions/{id}/documents", h.handleListDocuments)
	mux.HandleFunc("POST /sessions/{id}/documents", h.handleUpload)
	mux.HandleFunc("POST /sessions/{id}/tasks/{task}", h.handleRunTask)
	mux.HandleFunc("POST /sessions/{id}/chat", h.handleChat)
	mux.HandleFunc("POST /sessions/{id}/translate", h.handleTranslate)
	mux.HandleFunc("GET /sessions/{id}/history", h.handleHistory)
	mux.HandleFunc("POST /sessions/{id}/insights", h.handleCreateInsights)
	mux.HandleFunc("GET /sessions/{id}/insights", h.handleGetInsights)
	mux.HandleFunc("GET /sessions/{id}/insights/static.png", h.handleInsightPNG)
	mux.HandleFunc("GET /sessions/{id}/insights/chart.html", h.handleInsightHTML)
	mux.HandleFunc("DELETE /sessions/{id}/insights", h.handleClearInsights)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}
