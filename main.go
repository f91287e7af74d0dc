package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chessmatch-server/config"
	"chessmatch-server/loghandler"
	"chessmatch-server/matchmaking"
	"chessmatch-server/registry"
	"chessmatch-server/room"
	"chessmatch-server/storage"
	"chessmatch-server/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found; using environment variables.")
	}

	cfg := config.Load()

	logger := slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo))
	logger.Info("configuration loaded", "tag", "main",
		"disconnect_grace_ms", cfg.DisconnectGraceMS,
		"room_ttl_after_end_ms", cfg.RoomTTLAfterEndMS,
		"ping_interval_ms", cfg.PingIntervalMS,
		"default_time_control", cfg.DefaultTimeControl,
		"ws_port", cfg.WSPort,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	var history storage.HistoryStore = storage.NullStore{}
	if store != nil {
		history = store
		defer store.Close()
	} else {
		logger.Info("DATABASE_URL not set; running without persistence", "tag", "main")
	}

	reg := registry.New()
	rooms := room.NewManager(history, reg, cfg, logger)
	mm := matchmaking.New(reg, rooms, logger.With("tag", "matchmaking"))
	hub := transport.NewHub(cfg, rooms, mm, reg, logger.With("tag", "transport"))

	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received", "tag", "main")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "tag", "main", "err", err)
		}
	}()

	logger.Info("chess match server listening", "tag", "main", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
