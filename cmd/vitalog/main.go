package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mward/vitalog/internal/database"
	"github.com/mward/vitalog/internal/logging"
	"github.com/mward/vitalog/internal/ollama"
	"github.com/mward/vitalog/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("VITALOG_LOG_LEVEL"))

	port := os.Getenv("VITALOG_PORT")
	if port == "" {
		port = "3000"
	}

	dbPath := os.Getenv("VITALOG_DB_PATH")
	if dbPath == "" {
		dbPath = "vitalog.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	genTimeout := 90 * time.Second
	if v := os.Getenv("VITALOG_OLLAMA_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			genTimeout = time.Duration(secs) * time.Second
		}
	}

	gen := ollama.NewClient(ollama.Config{
		BaseURL: os.Getenv("VITALOG_OLLAMA_URL"),
		Model:   os.Getenv("VITALOG_OLLAMA_MODEL"),
		Timeout: genTimeout,
	})

	cfg := server.Config{
		StrictSessions:    os.Getenv("VITALOG_STRICT_SESSIONS") == "true",
		GenerationTimeout: genTimeout,
	}

	srv := server.New(db, gen, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Worker().Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("vitalog listening", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
	srv.Worker().Stop()
}
