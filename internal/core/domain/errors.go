package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Failures returned by the service wrap one of these together
// with the root cause, so errors.Is matches both.
var (
	ErrInvalidURL     = errors.New("invalid video url")
	ErrInvalidQuality = errors.New("invalid audio quality")
	ErrMetadata       = errors.New("failed to fetch video metadata")
	ErrDirectory      = errors.New("failed to create output directory")
	ErrExtraction     = errors.New("failed to extract audio")
	ErrTaskNotFound   = errors.New("task not found")
	ErrCancelRefused  = errors.New("task is not active")
	ErrCancelled      = errors.New(CancelledMessage)
)

// CancelledMessage is recorded on tasks cancelled through the registry.
const CancelledMessage = "cancelled by caller"

// Wrap joins an error kind with its cause: "<kind>: <cause>".
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
