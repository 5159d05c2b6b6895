package network

import (
	"sync"
	"time"
)

// Stats tracks chunk upload durations of one transport.
type Stats struct {
	sum            time.Duration
	finishedChunks int64
	sentBytes      int64
	mu             sync.Mutex
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// Update records a successful chunk upload of size bytes.
func (s *Stats) Update(d time.Duration, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sum += d
	s.finishedChunks++
	s.sentBytes += size
}

// Average returns the average upload duration for completed chunks.
func (s *Stats) Average() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finishedChunks == 0 {
		return 0
	}
	return s.sum / time.Duration(s.finishedChunks)
}

// FinishedCount returns the number of completed chunk uploads.
func (s *Stats) FinishedCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedChunks
}

// TotalDuration returns the sum of all upload durations.
func (s *Stats) TotalDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sum
}

// BytesPerSecond is the throughput over the completed chunks.
func (s *Stats) BytesPerSecond() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sum <= 0 {
		return 0
	}
	return float64(s.sentBytes) / s.sum.Seconds()
}
