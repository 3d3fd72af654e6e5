package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusConverting  Status = "converting"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// IsActive reports whether an extraction is in flight.
func (s Status) IsActive() bool {
	return s == StatusDownloading || s == StatusConverting
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task records the lifecycle of one extraction request.
//
// The methods below do not validate transitions and are not safe for
// concurrent use; the registry serializes every mutation and hands out copies.
type Task struct {
	ID           string        `json:"id"`
	Video        VideoMetadata `json:"video"`
	Format       AudioFormat   `json:"format"`
	OutputPath   string        `json:"output_path"`
	Status       Status        `json:"status"`
	Progress     int           `json:"progress"`
	ErrorMessage string        `json:"error_message,omitempty"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
}

// NewTask builds a pending task writing to dir.
func NewTask(id string, video VideoMetadata, format AudioFormat, dir string) *Task {
	return &Task{
		ID:         id,
		Video:      video,
		Format:     format,
		OutputPath: OutputPath(dir, video.Title, format.Extension),
		Status:     StatusPending,
		StartTime:  time.Now(),
	}
}

// UpdateStatus sets the status. The first transition into a terminal state
// stamps EndTime.
func (t *Task) UpdateStatus(status Status) {
	t.Status = status
	if status.IsTerminal() && t.EndTime == nil {
		now := time.Now()
		t.EndTime = &now
	}
}

// UpdateProgress stores p clamped to [0,100]. Reaching 100 while downloading
// moves the task to converting.
func (t *Task) UpdateProgress(p int) {
	t.Progress = max(0, min(100, p))
	if t.Progress == 100 && t.Status == StatusDownloading {
		t.UpdateStatus(StatusConverting)
	}
}

// SetError records message and fails the task.
func (t *Task) SetError(message string) {
	t.ErrorMessage = message
	t.UpdateStatus(StatusFailed)
}

// Elapsed is the time since the task was created.
func (t *Task) Elapsed() time.Duration {
	return time.Since(t.StartTime)
}

// Total is the task's run time once terminal, otherwise Elapsed.
func (t *Task) Total() time.Duration {
	if t.EndTime != nil {
		return t.EndTime.Sub(t.StartTime)
	}
	return t.Elapsed()
}

// ElapsedSeconds and TotalSeconds mirror Elapsed and Total in seconds.
func (t *Task) ElapsedSeconds() float64 { return t.Elapsed().Seconds() }
func (t *Task) TotalSeconds() float64   { return t.Total().Seconds() }

const unsafeFilenameChars = `\/:*?"<>|`

// SanitizeTitle replaces every filesystem-unsafe character with '_'.
func SanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeFilenameChars, r) {
			return '_'
		}
		return r
	}, title)
}

// OutputPath composes dir/<sanitized title>.<ext>.
func OutputPath(dir, title, ext string) string {
	return filepath.Join(dir, SanitizeTitle(title)+"."+ext)
}
