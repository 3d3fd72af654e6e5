package ports

import (
	"context"
	"io"

	"ytmp3server/internal/core/domain"
)

// MetadataProvider resolves a video URL to its metadata.
type MetadataProvider interface {
	// Resolve fails with domain.ErrInvalidURL when the URL does not identify a
	// video, and with domain.ErrMetadata when the lookup itself fails.
	Resolve(ctx context.Context, videoURL string) (domain.VideoMetadata, error)
}

// ProgressFunc receives extraction progress as a percentage.
type ProgressFunc func(percent int)

// MediaExtractor produces an audio file from a video URL.
type MediaExtractor interface {
	// Extract blocks until the file at destinationPath is written or the
	// extraction fails. Cancelling ctx interrupts the extraction.
	// onProgress may be nil.
	Extract(ctx context.Context, sourceURL string, format domain.AudioFormat, destinationPath string, onProgress ProgressFunc) error
}

// Directory prepares output locations.
type Directory interface {
	// EnsureDirectory creates path and its parents if missing.
	EnsureDirectory(ctx context.Context, path string) error
}

// FileStore defines the contract for writing artifacts next to the audio.
type FileStore interface {
	Directory

	// SaveFile writes the reader to path, creating parent directories.
	SaveFile(ctx context.Context, path string, reader io.Reader) error

	// FileExists reports whether path exists.
	FileExists(ctx context.Context, path string) bool

	// AvailableSpace returns free bytes on the volume holding path, or 0 if
	// it cannot be determined.
	AvailableSpace(path string) uint64
}

// Fetcher downloads remote resources such as thumbnails.
type Fetcher interface {
	// Download returns a ReadCloser that the caller must close.
	Download(ctx context.Context, resourceURL string) (io.ReadCloser, error)
}

// TaskHistory persists task records outside the process.
type TaskHistory interface {
	Save(ctx context.Context, task domain.Task) error
	LoadAll(ctx context.Context) ([]domain.Task, error)
	Delete(ctx context.Context, taskID string) error
}
