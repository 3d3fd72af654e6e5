package domain

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestTask() *Task {
	video := VideoMetadata{ID: "abc", Title: "Sample", Author: "Someone", DurationSeconds: 60}
	return NewTask("task-1", video, FormatForQuality(QualityHigh), "out")
}

func TestNewTask(t *testing.T) {
	task := newTestTask()

	if task.Status != StatusPending {
		t.Errorf("Status = %s, expected %s", task.Status, StatusPending)
	}
	if task.Progress != 0 {
		t.Errorf("Progress = %d, expected 0", task.Progress)
	}
	if task.EndTime != nil {
		t.Errorf("EndTime should be nil for a new task")
	}
	if want := filepath.Join("out", "Sample.mp3"); task.OutputPath != want {
		t.Errorf("OutputPath = %s, expected %s", task.OutputPath, want)
	}
	if time.Since(task.StartTime) > time.Minute {
		t.Errorf("StartTime not set to now: %v", task.StartTime)
	}
}

func TestTask_UpdateProgress(t *testing.T) {
	tests := []struct {
		status         Status
		progress       int
		expected       int
		expectedStatus Status
	}{
		{StatusDownloading, -10, 0, StatusDownloading},
		{StatusDownloading, 42, 42, StatusDownloading},
		{StatusDownloading, 120, 100, StatusConverting},
		{StatusDownloading, 100, 100, StatusConverting},
		{StatusPending, 100, 100, StatusPending},
		{StatusConverting, 100, 100, StatusConverting},
	}

	for _, test := range tests {
		task := newTestTask()
		task.Status = test.status
		task.UpdateProgress(test.progress)
		if task.Progress != test.expected || task.Status != test.expectedStatus {
			t.Errorf("UpdateProgress(%d) from %s = %d/%s, expected %d/%s",
				test.progress, test.status, task.Progress, task.Status, test.expected, test.expectedStatus)
		}
	}
}

func TestTask_EndTimeSetOnce(t *testing.T) {
	task := newTestTask()
	task.UpdateStatus(StatusDownloading)
	if task.EndTime != nil {
		t.Fatalf("EndTime set on non-terminal status")
	}

	task.UpdateStatus(StatusCompleted)
	if task.EndTime == nil {
		t.Fatalf("EndTime not set on completion")
	}
	first := *task.EndTime

	time.Sleep(2 * time.Millisecond)
	task.SetError("late failure")
	if !task.EndTime.Equal(first) {
		t.Errorf("EndTime changed from %v to %v", first, *task.EndTime)
	}
	if task.Status != StatusFailed || task.ErrorMessage != "late failure" {
		t.Errorf("SetError() = %s/%q", task.Status, task.ErrorMessage)
	}
}

func TestTask_Total(t *testing.T) {
	task := newTestTask()
	task.StartTime = time.Now().Add(-3 * time.Second)
	if task.TotalSeconds() < 3 {
		t.Errorf("TotalSeconds() = %f for running task, expected >= 3", task.TotalSeconds())
	}

	end := task.StartTime.Add(1500 * time.Millisecond)
	task.EndTime = &end
	if task.Total() != 1500*time.Millisecond {
		t.Errorf("Total() = %v, expected 1.5s", task.Total())
	}
	if task.Elapsed() < 3*time.Second {
		t.Errorf("Elapsed() = %v, expected time since start", task.Elapsed())
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status   Status
		active   bool
		terminal bool
	}{
		{StatusPending, false, false},
		{StatusDownloading, true, false},
		{StatusConverting, true, false},
		{StatusCompleted, false, true},
		{StatusFailed, false, true},
	}

	for _, test := range tests {
		if test.status.IsActive() != test.active || test.status.IsTerminal() != test.terminal {
			t.Errorf("%s: IsActive=%t IsTerminal=%t, expected %t %t",
				test.status, test.status.IsActive(), test.status.IsTerminal(), test.active, test.terminal)
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Plain Title", "Plain Title"},
		{`Test: Video? With* Special/ Characters"`, "Test_ Video_ With_ Special_ Characters_"},
		{`a\b<c>d|e`, "a_b_c_d_e"},
		{"", ""},
		{"Ünïcode ok", "Ünïcode ok"},
	}

	for _, test := range tests {
		if got := SanitizeTitle(test.title); got != test.expected {
			t.Errorf("SanitizeTitle(%q) = %q, expected %q", test.title, got, test.expected)
		}
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath(filepath.Join("music", "yt"), "A/B", "mp3")
	want := filepath.Join("music", "yt", "A_B.mp3")
	if got != want {
		t.Errorf("OutputPath() = %s, expected %s", got, want)
	}
}
