package network

import (
	"testing"
	"time"
)

func TestStats(t *testing.T) {
	stats := NewStats()

	if stats.FinishedCount() != 0 {
		t.Errorf("Expected 0 finished, got %d", stats.FinishedCount())
	}

	if stats.Average() != 0 {
		t.Errorf("Expected 0 average, got %v", stats.Average())
	}

	if stats.BytesPerSecond() != 0 {
		t.Errorf("Expected 0 throughput, got %v", stats.BytesPerSecond())
	}

	stats.Update(100*time.Millisecond, 100)
	stats.Update(200*time.Millisecond, 200)
	stats.Update(700*time.Millisecond, 700)

	if stats.FinishedCount() != 3 {
		t.Errorf("Expected 3 finished, got %d", stats.FinishedCount())
	}

	expectedAvg := 1000 * time.Millisecond / 3
	if stats.Average() != expectedAvg {
		t.Errorf("Expected %v average, got %v", expectedAvg, stats.Average())
	}

	expectedTotal := time.Second
	if stats.TotalDuration() != expectedTotal {
		t.Errorf("Expected %v total, got %v", expectedTotal, stats.TotalDuration())
	}

	if stats.BytesPerSecond() != 1000 {
		t.Errorf("Expected 1000 B/s, got %v", stats.BytesPerSecond())
	}
}

func TestOptimalChunkSizeBytes(t *testing.T) {
	tests := []struct {
		name        string
		totalSize   int64
		minExpected int64
		maxExpected int64
	}{
		{
			name:        "small file",
			totalSize:   10 * 1024 * 1024, // 10MB
			minExpected: 8 * 1024 * 1024,
			maxExpected: 8 * 1024 * 1024,
		},
		{
			name:        "large file",
			totalSize:   1024 * 1024 * 1024, // 1GB
			minExpected: 64 * 1024 * 1024,
			maxExpected: 64 * 1024 * 1024,
		},
		{
			name:        "very large file",
			totalSize:   10 * 1024 * 1024 * 1024, // 10GB
			minExpected: 100 * 1024 * 1024,
			maxExpected: 100 * 1024 * 1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := OptimalChunkSizeBytes(tt.totalSize)
			if result < tt.minExpected {
				t.Errorf("Chunk size %d is below minimum %d", result, tt.minExpected)
			}
			if result > tt.maxExpected {
				t.Errorf("Chunk size %d exceeds maximum %d", result, tt.maxExpected)
			}
		})
	}
}

func Test_alignChunkSize(t *testing.T) {
	tests := []struct {
		name  string
		hint  int64
		total int64
		want  int64
	}{
		{name: "no hint", hint: 0, total: 1000, want: 1000},
		{name: "negative hint", hint: -1, total: 1000, want: 1000},
		{name: "hint above total", hint: 5000, total: 1000, want: 1000},
		{name: "aligned", hint: 2 * chunkAlignment, total: 10 * chunkAlignment, want: 2 * chunkAlignment},
		{name: "rounded up", hint: chunkAlignment + 1, total: 10 * chunkAlignment, want: 2 * chunkAlignment},
		{name: "rounded above total", hint: chunkAlignment + 1, total: chunkAlignment + 10, want: chunkAlignment + 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := alignChunkSize(tt.hint, tt.total, chunkAlignment); got != tt.want {
				t.Errorf("alignChunkSize() = %d, want %d", got, tt.want)
			}
		})
	}
}
