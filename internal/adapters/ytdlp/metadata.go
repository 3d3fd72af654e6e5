package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"

	"ytmp3server/internal/core/domain"
)

const defaultBinary = "yt-dlp"

// MetadataClient resolves video metadata by running the yt-dlp binary.
type MetadataClient struct {
	binaryPath string
	timeout    time.Duration
}

// NewMetadataClient creates a client for the given yt-dlp binary. An empty
// path picks ./yt-dlp.exe when present, otherwise yt-dlp from PATH.
func NewMetadataClient(binaryPath string) *MetadataClient {
	return &MetadataClient{
		binaryPath: resolveBinary(binaryPath),
		timeout:    2 * time.Minute,
	}
}

func resolveBinary(binaryPath string) string {
	if binaryPath != "" {
		return binaryPath
	}
	if _, err := os.Stat("yt-dlp.exe"); err == nil {
		return ".\\yt-dlp.exe"
	}
	return defaultBinary
}

// SetTimeout bounds a single metadata lookup.
func (c *MetadataClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Resolve fetches title, author, duration and thumbnail for videoURL.
func (c *MetadataClient) Resolve(ctx context.Context, videoURL string) (domain.VideoMetadata, error) {
	if _, ok := domain.ExtractVideoID(videoURL); !ok {
		return domain.VideoMetadata{}, domain.Wrap(domain.ErrInvalidURL, fmt.Errorf("%q is not a YouTube video URL", videoURL))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// --dump-single-json: print the info dict only
	// --skip-download: never touch the media
	cmd := exec.CommandContext(ctx, c.binaryPath,
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
		"--prefer-free-formats",
		videoURL,
	)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return domain.VideoMetadata{}, domain.Wrap(domain.ErrMetadata,
			fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String())))
	}

	video, err := parseInfo(out.Bytes(), videoURL)
	if err != nil {
		return domain.VideoMetadata{}, domain.Wrap(domain.ErrMetadata, err)
	}
	return video, nil
}

// info is the subset of the yt-dlp info dict we use.
type info struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
	WebpageURL string  `json:"webpage_url"`
}

func parseInfo(data []byte, requestedURL string) (domain.VideoMetadata, error) {
	var in info
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.VideoMetadata{}, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if in.ID == "" {
		return domain.VideoMetadata{}, fmt.Errorf("yt-dlp returned no video id")
	}

	author := in.Uploader
	if author == "" {
		author = in.Channel
	}
	if author == "" {
		author = "Unknown"
	}
	url := in.WebpageURL
	if url == "" {
		url = requestedURL
	}

	return domain.VideoMetadata{
		ID:              in.ID,
		Title:           in.Title,
		Author:          author,
		DurationSeconds: int(math.Max(0, math.Round(in.Duration))),
		ThumbnailURL:    in.Thumbnail,
		URL:             url,
	}, nil
}
