package resumable

import (
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts is the number of retries before an upload gives up.
const DefaultMaxAttempts = 10

// Scheduler computes the wait before a retry and caps the number of retries.
type Scheduler interface {
	// DelayFor returns the wait before retry number attempt, counted from 1.
	DelayFor(attempt int) time.Duration
	MaxAttempts() int
}

// FullJitter waits a uniformly random duration in [0, 2^attempt) units.
type FullJitter struct {
	// Unit scales the delay, defaults to a second.
	Unit time.Duration
	// Ceiling caps a single delay when positive.
	Ceiling time.Duration
	// Attempts is the retry ceiling, defaults to DefaultMaxAttempts. Negative disables retries.
	Attempts int
	// Rand returns a number in [0, 1), defaults to math/rand.Float64.
	Rand func() float64
}

// NewFullJitter ...
func NewFullJitter(maxAttempts int) FullJitter {
	return FullJitter{Unit: time.Second, Attempts: maxAttempts}
}

// DelayFor ...
func (j FullJitter) DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	unit := j.Unit
	if unit <= 0 {
		unit = time.Second
	}
	random := rand.Float64
	if j.Rand != nil {
		random = j.Rand
	}

	delay := random() * math.Pow(2, float64(attempt)) * float64(unit)
	if j.Ceiling > 0 && delay > float64(j.Ceiling) {
		return j.Ceiling
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// MaxAttempts ...
func (j FullJitter) MaxAttempts() int {
	switch {
	case j.Attempts == 0:
		return DefaultMaxAttempts
	case j.Attempts < 0:
		// never retry
		return 0
	default:
		return j.Attempts
	}
}

// backOffScheduler adapts a cenkalti/backoff policy.
type backOffScheduler struct {
	b           backoff.BackOff
	maxAttempts int
}

// FromBackOff turns a backoff.BackOff into a Scheduler allowing maxAttempts retries.
// The policy is reset on construction. A backoff.Stop from the policy means no wait,
// the retry ceiling still comes from maxAttempts.
// The returned Scheduler carries the policy's state: use one per upload.
func FromBackOff(b backoff.BackOff, maxAttempts int) Scheduler {
	b.Reset()
	return &backOffScheduler{b: b, maxAttempts: maxAttempts}
}

func (s *backOffScheduler) DelayFor(int) time.Duration {
	d := s.b.NextBackOff()
	if d == backoff.Stop {
		return 0
	}
	return d
}

func (s *backOffScheduler) MaxAttempts() int {
	return s.maxAttempts
}
