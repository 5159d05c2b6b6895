package resumable

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// Config holds the retry policy of a Driver.
type Config struct {
	// MaxAttempts is the number of retries allowed per upload.
	// Default: 10. Ignored when Scheduler is set.
	MaxAttempts int

	// RetriableStatusCodes are retried on top of network failures.
	// Default: 500, 502, 503, 504. Ignored when Classifier is set.
	RetriableStatusCodes []int

	// Classifier overrides the status code based classification.
	Classifier Classifier

	// Scheduler overrides the full jitter backoff.
	Scheduler Scheduler
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:          DefaultMaxAttempts,
		RetriableStatusCodes: DefaultRetriableStatusCodes,
	}
}

type retryState struct {
	attempt int
	lastErr error
}

// Driver runs the upload state machine. A Driver keeps no per-upload state,
// so it can serve concurrent uploads.
type Driver struct {
	classifier Classifier
	scheduler  Scheduler
	logger     log.Logger
}

// NewDriver creates a new Driver with the given configuration.
func NewDriver(config Config, logger log.Logger) *Driver {
	classifier := config.Classifier
	if classifier == nil {
		classifier = NewClassifier(config.RetriableStatusCodes...)
	}

	scheduler := config.Scheduler
	if scheduler == nil {
		scheduler = NewFullJitter(config.MaxAttempts)
	}

	return &Driver{
		classifier: classifier,
		scheduler:  scheduler,
		logger:     logger,
	}
}

// Upload is a shorthand for NewDriver(config, logger).Upload(ctx, task, factory).
func Upload(ctx context.Context, task Task, factory TransportFactory, config Config, logger log.Logger) (*Result, error) {
	return NewDriver(config, logger).Upload(ctx, task, factory)
}

// Upload sends the task's payload through a Transport obtained from factory.
//
// Fatal transport errors are returned unmodified. Running out of retries
// returns a *RetryBudgetExhaustedError, cancellation of ctx a *CancelledError.
func (d *Driver) Upload(ctx context.Context, task Task, factory TransportFactory) (*Result, error) {
	if err := task.validate(); err != nil {
		return nil, fmt.Errorf("invalid upload task: %w", err)
	}
	task = task.withDefaults()

	transport, err := factory(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	if closer, ok := transport.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				d.logger.Warnf("[%s] Failed to close transport: %s", task.ID, err)
			}
		}()
	}

	d.logger.Infof("[%s] Uploading %s (%s)...", task.ID, task.Metadata.Title, units.HumanSizeWithPrecision(float64(task.Payload.Size()), 3))
	start := time.Now()

	var state retryState
	for {
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Phase: PhaseSend, Err: err}
		}

		progress, result, err := transport.Advance(ctx)
		if err == nil {
			if result != nil {
				d.logger.Donef("[%s] Upload finished in %s, id: %s", task.ID, time.Since(start).Round(time.Second), result.ID)
				return result, nil
			}
			d.logger.Debugf("[%s] Uploaded %s of %s (%.1f%%)", task.ID,
				units.HumanSize(float64(progress.Sent)), units.HumanSize(float64(progress.Total)), progress.Percent())
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &CancelledError{Phase: PhaseSend, Err: ctxErr}
		}

		if d.classifier.Classify(err) == Fatal {
			d.logger.Errorf("[%s] Upload failed: %s", task.ID, err)
			return nil, err
		}

		state.lastErr = err
		if state.attempt >= d.scheduler.MaxAttempts() {
			return nil, &RetryBudgetExhaustedError{Attempts: state.attempt, Last: state.lastErr}
		}
		state.attempt++

		delay := d.scheduler.DelayFor(state.attempt)
		d.logger.Warnf("[%s] A retriable error occurred: %s", task.ID, err)
		d.logger.Warnf("[%s] Retry %d/%d in %s...", task.ID, state.attempt, d.scheduler.MaxAttempts(), delay.Round(time.Millisecond))

		if err := wait(ctx, delay); err != nil {
			return nil, &CancelledError{Phase: PhaseBackoff, Err: err}
		}
	}
}

// wait blocks for delay or until ctx is done.
func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
