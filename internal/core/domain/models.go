package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Quality is the requested audio quality label.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// DefaultExtension is the container every extraction produces.
const DefaultExtension = "mp3"

// bitrates is the canonical quality policy in kbps.
var bitrates = map[Quality]int{
	QualityLow:    128,
	QualityMedium: 192,
	QualityHigh:   320,
}

// ParseQuality validates a quality label. Matching is case-insensitive.
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := bitrates[q]; !ok {
		return "", fmt.Errorf("%w: %q (want low, medium or high)", ErrInvalidQuality, s)
	}
	return q, nil
}

// AudioFormat describes the audio file an extraction produces.
type AudioFormat struct {
	Quality   Quality `json:"quality"`
	Bitrate   int     `json:"bitrate"` // kbps
	Extension string  `json:"extension"`
}

// FormatForQuality maps a quality label to its format. Unknown labels fall
// back to medium.
func FormatForQuality(q Quality) AudioFormat {
	bitrate, ok := bitrates[q]
	if !ok {
		q = QualityMedium
		bitrate = bitrates[QualityMedium]
	}
	return AudioFormat{Quality: q, Bitrate: bitrate, Extension: DefaultExtension}
}

// AvailableFormats lists every format the server can produce, lowest first.
func AvailableFormats() []AudioFormat {
	return []AudioFormat{
		FormatForQuality(QualityLow),
		FormatForQuality(QualityMedium),
		FormatForQuality(QualityHigh),
	}
}

// VideoMetadata holds the descriptive data resolved for a video URL.
type VideoMetadata struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	DurationSeconds int    `json:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url"`
	URL             string `json:"url"`
}

// FormattedDuration renders the duration as m:ss, or h:mm:ss for an hour or more.
func (v VideoMetadata) FormattedDuration() string {
	d := v.DurationSeconds
	if d < 0 {
		d = 0
	}
	hours := d / 3600
	minutes := (d % 3600) / 60
	seconds := d % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// ExtractVideoID returns the video id embedded in a YouTube URL.
func ExtractVideoID(videoURL string) (string, bool) {
	raw := strings.TrimSpace(videoURL)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	path := strings.Trim(u.Path, "/")

	var id string
	switch host {
	case "youtu.be":
		id, _, _ = strings.Cut(path, "/")
	case "youtube.com", "music.youtube.com":
		if path == "watch" {
			id = u.Query().Get("v")
			break
		}
		for _, prefix := range []string{"embed/", "v/", "shorts/", "live/"} {
			if rest, ok := strings.CutPrefix(path, prefix); ok {
				id, _, _ = strings.Cut(rest, "/")
				break
			}
		}
	}

	if !validVideoID(id) {
		return "", false
	}
	return id, true
}

func validVideoID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
