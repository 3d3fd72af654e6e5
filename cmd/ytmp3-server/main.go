package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytmp3server/internal/adapters/downloader"
	"ytmp3server/internal/adapters/localstorage"
	"ytmp3server/internal/adapters/redisstore"
	"ytmp3server/internal/adapters/ytdlp"
	"ytmp3server/internal/api"
	"ytmp3server/internal/config"
	"ytmp3server/internal/registry"
	"ytmp3server/internal/service"
)

func main() {
	envFile := flag.String("env", "", "Optional .env file (defaults to ./.env)")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg := config.Load(logger, envFiles...)

	logger.Println("=== YouTube MP3 Server ===")
	logger.Printf("Output Directory: %s", cfg.OutputDir)
	logger.Printf("Default Quality:  %s", cfg.DefaultQuality)

	storage := localstorage.NewLocalStorage("")
	if free := storage.AvailableSpace(cfg.OutputDir); free > 0 {
		logger.Printf("Free space:       %d MiB", free/(1<<20))
	}

	reg := registry.New(cfg.OutputDir)

	var history *service.History
	if client := redisstore.NewClient(redisstore.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); client != nil {
		defer client.Close()
		if err := redisstore.Ping(context.Background(), client); err != nil {
			logger.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		h, _, err := service.AttachHistory(context.Background(), reg, redisstore.NewTaskHistory(client), logger)
		if err != nil {
			logger.Fatalf("Failed to restore task history: %v", err)
		}
		history = h
	}

	var onEvict func(string)
	if history != nil {
		onEvict = history.Forget
	}
	if retention := registry.KeepLatest(reg, cfg.HistoryLimit, onEvict); retention != nil {
		retention.Apply()
	}

	orch := service.NewOrchestrator(
		ytdlp.NewMetadataClient(cfg.YtDlpPath),
		ytdlp.NewExtractor(cfg.YtDlpPath, cfg.FFmpegPath, cfg.TempDir, logger),
		storage,
		reg,
		cfg.DefaultQuality,
		logger,
	).WithConcurrencyLimit(cfg.MaxConcurrent)
	if cfg.SaveThumbnail {
		orch.WithThumbnails(downloader.NewHTTPFetcher(30*time.Second, 10<<20), storage)
	}

	app := api.NewApp(orch, logger).AllowOrigins(cfg.AllowedOrigins...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Printf("Listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Println("Received interrupt signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed: %v", err)
		_ = srv.Close()
	}

	// Interrupted tasks are recorded as failed so history never keeps them active.
	orch.Shutdown()
	reg.Flush()
	logger.Println("Server stopped")
}
