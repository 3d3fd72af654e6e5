package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"ytmp3server/internal/core/domain"
	"ytmp3server/internal/core/ports"
	"ytmp3server/internal/registry"
)

// Orchestrator drives one extraction from URL to audio file and keeps the
// task record consistent with the outcome.
type Orchestrator struct {
	metadata       ports.MetadataProvider
	extractor      ports.MediaExtractor
	dirs           ports.Directory
	registry       *registry.Registry
	defaultQuality domain.Quality
	logger         *log.Logger

	slots      *semaphore
	thumbnails *thumbnailSaver
	wg         sync.WaitGroup

	// life ends background extractions on Shutdown.
	life context.Context
	stop context.CancelFunc
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	metadata ports.MetadataProvider,
	extractor ports.MediaExtractor,
	dirs ports.Directory,
	reg *registry.Registry,
	defaultQuality domain.Quality,
	logger *log.Logger,
) *Orchestrator {
	if _, err := domain.ParseQuality(string(defaultQuality)); err != nil {
		defaultQuality = domain.QualityMedium
	}
	life, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		metadata:       metadata,
		extractor:      extractor,
		dirs:           dirs,
		registry:       reg,
		defaultQuality: defaultQuality,
		logger:         logger,
		life:           life,
		stop:           stop,
	}
}

// WithConcurrencyLimit caps simultaneous extractions. Tasks waiting for a
// slot stay pending. A limit of zero or less means unlimited.
func (o *Orchestrator) WithConcurrencyLimit(limit int) *Orchestrator {
	o.slots = newSemaphore(limit)
	return o
}

// WithThumbnails saves the video thumbnail next to each finished audio file.
func (o *Orchestrator) WithThumbnails(fetcher ports.Fetcher, store ports.FileStore) *Orchestrator {
	o.thumbnails = &thumbnailSaver{fetcher: fetcher, store: store, logger: o.logger}
	return o
}

// Registry returns the task registry the orchestrator writes to.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Run resolves the video, creates its task and extracts the audio, blocking
// until the extraction finishes. It returns the output path. Failures after
// the task exists are recorded on the task and returned.
func (o *Orchestrator) Run(ctx context.Context, videoURL, quality, outputDir string, onProgress ports.ProgressFunc) (string, error) {
	task, err := o.prepare(ctx, videoURL, quality, outputDir)
	if err != nil {
		return "", err
	}
	return o.execute(ctx, task, onProgress)
}

// Start creates the task like Run and extracts in the background. The
// extraction outlives ctx; use the registry to cancel it, or Shutdown.
func (o *Orchestrator) Start(ctx context.Context, videoURL, quality, outputDir string) (domain.Task, error) {
	task, err := o.prepare(ctx, videoURL, quality, outputDir)
	if err != nil {
		return domain.Task{}, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(o.life, cancel)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer stopAfter()
		defer cancel()
		// The task carries the outcome; execute already logged it.
		_, _ = o.execute(runCtx, task, nil)
	}()
	return task, nil
}

// Wait blocks until every extraction started with Start has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown interrupts background extractions, including those still waiting
// for a slot, and waits for them to record their outcome.
func (o *Orchestrator) Shutdown() {
	o.stop()
	o.wg.Wait()
}

// VideoInfo resolves metadata without creating a task.
func (o *Orchestrator) VideoInfo(ctx context.Context, videoURL string) (domain.VideoMetadata, error) {
	return o.metadata.Resolve(ctx, videoURL)
}

// Formats lists the audio formats a request may ask for.
func (o *Orchestrator) Formats() []domain.AudioFormat {
	return domain.AvailableFormats()
}

// DefaultQuality is used when a request names no quality.
func (o *Orchestrator) DefaultQuality() domain.Quality {
	return o.defaultQuality
}

func (o *Orchestrator) prepare(ctx context.Context, videoURL, quality, outputDir string) (domain.Task, error) {
	q := o.defaultQuality
	if strings.TrimSpace(quality) != "" {
		parsed, err := domain.ParseQuality(quality)
		if err != nil {
			return domain.Task{}, err
		}
		q = parsed
	}

	video, err := o.metadata.Resolve(ctx, videoURL)
	if err != nil {
		o.logger.Printf("ERROR: metadata lookup failed for %s: %v", videoURL, err)
		if errors.Is(err, domain.ErrInvalidURL) || errors.Is(err, domain.ErrMetadata) {
			return domain.Task{}, err
		}
		return domain.Task{}, domain.Wrap(domain.ErrMetadata, err)
	}

	task := o.registry.CreateTask(video, domain.FormatForQuality(q), outputDir)
	o.logger.Printf("[TASK %s] Created for %q (%s, %dkbps) -> %s",
		task.ID, video.Title, task.Format.Quality, task.Format.Bitrate, task.OutputPath)
	return task, nil
}

func (o *Orchestrator) execute(ctx context.Context, task domain.Task, onProgress ports.ProgressFunc) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := o.slots.acquire(ctx); err != nil {
		return "", o.fail(task.ID, domain.Wrap(domain.ErrExtraction, err))
	}
	defer o.slots.release()

	o.registry.Attach(task.ID, cancel)
	defer o.registry.Detach(task.ID)

	if err := o.registry.UpdateStatus(task.ID, domain.StatusDownloading); err != nil {
		// Only an eviction or restart can get here; nothing left to drive.
		return "", domain.Wrap(domain.ErrExtraction, err)
	}
	o.logger.Printf("[TASK %s] Downloading %s", task.ID, task.Video.URL)

	dir := filepath.Dir(task.OutputPath)
	if err := o.dirs.EnsureDirectory(ctx, dir); err != nil {
		return "", o.fail(task.ID, domain.Wrap(domain.ErrDirectory, err))
	}

	progress := func(p int) {
		_ = o.registry.UpdateProgress(task.ID, p)
		if onProgress != nil {
			onProgress(p)
		}
	}
	if err := o.extractor.Extract(ctx, task.Video.URL, task.Format, task.OutputPath, progress); err != nil {
		return "", o.fail(task.ID, domain.Wrap(domain.ErrExtraction, err))
	}

	_ = o.registry.UpdateProgress(task.ID, 100)
	if onProgress != nil {
		onProgress(100)
	}
	if err := o.registry.UpdateStatus(task.ID, domain.StatusCompleted); err != nil {
		// Cancelled between the extractor returning and completion; the
		// cancellation wins.
		o.logger.Printf("[TASK %s] Finished after cancellation, keeping failed state", task.ID)
		return "", domain.Wrap(domain.ErrExtraction, domain.ErrCancelled)
	}
	o.logger.Printf("[TASK %s] Completed: %s", task.ID, task.OutputPath)

	if o.thumbnails != nil {
		o.thumbnails.save(ctx, task)
	}
	return task.OutputPath, nil
}

// fail records err on the task and returns it. A task that already finished
// (for example cancelled) keeps its existing record.
func (o *Orchestrator) fail(taskID string, err error) error {
	o.logger.Printf("[TASK %s] ERROR: %v", taskID, err)
	if serr := o.registry.SetError(taskID, err.Error()); serr != nil {
		o.logger.Printf("[TASK %s] not recording error: %v", taskID, serr)
	}
	return err
}

// thumbnailSaver stores <title>.jpg next to the audio file. Failures are
// logged and never fail the task.
type thumbnailSaver struct {
	fetcher ports.Fetcher
	store   ports.FileStore
	logger  *log.Logger
}

func (s *thumbnailSaver) save(ctx context.Context, task domain.Task) {
	if task.Video.ThumbnailURL == "" {
		return
	}
	path := strings.TrimSuffix(task.OutputPath, filepath.Ext(task.OutputPath)) + ".jpg"
	if s.store.FileExists(ctx, path) {
		return
	}
	if err := s.fetch(ctx, task.Video.ThumbnailURL, path); err != nil {
		s.logger.Printf("[TASK %s] WARN: thumbnail not saved: %v", task.ID, err)
		return
	}
	s.logger.Printf("[TASK %s] Saved thumbnail %s", task.ID, path)
}

func (s *thumbnailSaver) fetch(ctx context.Context, url, path string) error {
	body, err := s.fetcher.Download(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := s.store.SaveFile(ctx, path, body); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return nil
}
