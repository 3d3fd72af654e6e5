package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytmp3server/internal/adapters/downloader"
	"ytmp3server/internal/adapters/localstorage"
	"ytmp3server/internal/adapters/ytdlp"
	"ytmp3server/internal/config"
	"ytmp3server/internal/registry"
	"ytmp3server/internal/service"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg := config.Load(logger)

	// Parse flags
	url := flag.String("url", "", "YouTube video URL to convert")
	quality := flag.String("quality", string(cfg.DefaultQuality), "Audio quality: low, medium or high")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Directory for the mp3 file")
	thumbnail := flag.Bool("thumbnail", cfg.SaveThumbnail, "Also save the video thumbnail")
	flag.Parse()

	if *url == "" {
		fmt.Println("Usage: ytmp3-cli -url <video-url> [-quality low|medium|high] [-output-dir <path>]")
		fmt.Println("\nExample:")
		fmt.Println("  ytmp3-cli -url https://www.youtube.com/watch?v=dQw4w9WgXcQ -quality high")
		os.Exit(1)
	}

	logger.Println("=== YouTube MP3 CLI ===")
	logger.Printf("URL: %s", *url)
	logger.Printf("Output Directory: %s", *outputDir)

	storage := localstorage.NewLocalStorage("")
	reg := registry.New(cfg.OutputDir)
	orch := service.NewOrchestrator(
		ytdlp.NewMetadataClient(cfg.YtDlpPath),
		ytdlp.NewExtractor(cfg.YtDlpPath, cfg.FFmpegPath, cfg.TempDir, logger),
		storage,
		reg,
		cfg.DefaultQuality,
		logger,
	)
	if *thumbnail {
		orch.WithThumbnails(downloader.NewHTTPFetcher(30*time.Second, 10<<20), storage)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("\nReceived interrupt signal, cancelling...")
		cancel()
	}()

	path, err := orch.Run(ctx, *url, *quality, *outputDir, progressPrinter(os.Stdout))
	fmt.Println()

	tasks := reg.ListAll()
	if err != nil {
		logger.Printf("Extraction failed: %v", err)
	}
	if len(tasks) == 0 {
		os.Exit(1)
	}

	// Print summary
	task := tasks[len(tasks)-1]
	fmt.Println("\n=== Task Summary ===")
	fmt.Printf("Task ID:    %s\n", task.ID)
	fmt.Printf("Title:      %s\n", task.Video.Title)
	fmt.Printf("Author:     %s\n", task.Video.Author)
	fmt.Printf("Duration:   %s\n", task.Video.FormattedDuration())
	fmt.Printf("Quality:    %s (%dkbps)\n", task.Format.Quality, task.Format.Bitrate)
	fmt.Printf("Status:     %s\n", task.Status)
	fmt.Printf("Elapsed:    %.1fs\n", task.TotalSeconds())
	if err != nil {
		fmt.Printf("Error:      %s\n", task.ErrorMessage)
		os.Exit(1)
	}
	fmt.Printf("Output:     %s\n", path)
}

// progressPrinter reports progress once per 10% step, starting with the
// first update.
func progressPrinter(w io.Writer) func(int) {
	last := -10
	return func(p int) {
		if p/10 != last/10 {
			fmt.Fprintf(w, "\rProgress: %3d%%", p)
			last = p
		}
	}
}
