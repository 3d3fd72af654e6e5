package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressPrinter(t *testing.T) {
	tests := []struct {
		name     string
		updates  []int
		expected []string
	}{
		{"first step is printed", []int{0, 3, 9}, []string{"  0%"}},
		{"one line per step", []int{5, 12, 18, 25, 100}, []string{"  5%", " 12%", " 25%", "100%"}},
		{"starts mid-way", []int{42, 47}, []string{" 42%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			report := progressPrinter(&buf)
			for _, p := range tt.updates {
				report(p)
			}

			var got []string
			for _, line := range strings.Split(buf.String(), "\r")[1:] {
				got = append(got, strings.TrimPrefix(line, "Progress: "))
			}
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("printed %q, expected %q", got, tt.expected)
			}
		})
	}
}
