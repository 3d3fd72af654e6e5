package ytdlp

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"ytmp3server/internal/core/domain"
	"ytmp3server/internal/core/ports"
)

// Extractor downloads the audio track of a video and transcodes it with
// yt-dlp's ffmpeg post-processor.
type Extractor struct {
	binaryPath     string
	ffmpegPath     string
	tempDir        string
	progressPeriod time.Duration
	logger         *log.Logger
}

// NewExtractor creates an extractor. Empty paths fall back to the binaries
// found in PATH.
func NewExtractor(binaryPath, ffmpegPath, tempDir string, logger *log.Logger) *Extractor {
	return &Extractor{
		binaryPath:     resolveBinary(binaryPath),
		ffmpegPath:     ffmpegPath,
		tempDir:        tempDir,
		progressPeriod: 500 * time.Millisecond,
		logger:         logger,
	}
}

// Extract writes the audio of sourceURL to destinationPath.
func (e *Extractor) Extract(ctx context.Context, sourceURL string, format domain.AudioFormat, destinationPath string, onProgress ports.ProgressFunc) error {
	dl := ytdlp.New().
		SetExecutable(e.binaryPath).
		NoPlaylist().
		ForceOverwrites().
		ExtractAudio().
		AudioFormat(format.Extension).
		AudioQuality(fmt.Sprintf("%dK", format.Bitrate)).
		Output(outputTemplate(destinationPath))

	if onProgress != nil {
		dl.ProgressFunc(e.progressPeriod, func(update ytdlp.ProgressUpdate) {
			if update.TotalBytes > 0 {
				onProgress(int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100))
			}
		})
	}

	args := extraArgs(e.ffmpegPath, e.tempDir)
	args = append(args, sourceURL)

	if _, err := dl.Run(ctx, args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp failed: %w", err)
	}

	if e.logger != nil {
		e.logger.Printf("extracted %s to %s (%s, %dkbps)", sourceURL, destinationPath, format.Quality, format.Bitrate)
	}
	return nil
}

// outputTemplate turns a destination path into a yt-dlp output template whose
// extension is filled in after post-processing. Literal '%' must be doubled.
func outputTemplate(destinationPath string) string {
	base := strings.TrimSuffix(destinationPath, filepath.Ext(destinationPath))
	return strings.ReplaceAll(base, "%", "%%") + ".%(ext)s"
}

func extraArgs(ffmpegPath, tempDir string) []string {
	var args []string
	if ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", ffmpegPath)
	}
	if tempDir != "" {
		args = append(args, "--paths", "temp:"+tempDir)
	}
	return args
}
