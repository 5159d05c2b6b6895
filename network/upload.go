package network

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/reelforge/go-uploadutils/resumable"
)

// UploadParams ...
type UploadParams struct {
	// Endpoint is the media upload URL sessions are started at.
	Endpoint string
	// Token is sent as a bearer token, leave empty when HTTPClient is already authorized.
	Token string
	// ChunkSizeBytes is a hint, rounded up to a multiple of 256 KiB. Non-positive sends everything at once.
	ChunkSizeBytes int64
	// HTTPClient defaults to DefaultHTTPClient.
	HTTPClient *http.Client
}

// HTTPTransport uploads one task over a resumable session: the session is
// started with the task's metadata, then the payload is PUT chunk by chunk.
// After a failed chunk the session is asked for the acknowledged offset
// before anything else is sent.
type HTTPTransport struct {
	api       apiClient
	endpoint  string
	task      resumable.Task
	total     int64
	chunkSize int64

	sessionURL string
	offset     int64
	needsSync  bool

	stats  *Stats
	logger log.Logger
}

// NewHTTPTransportFactory returns a resumable.TransportFactory creating HTTPTransports.
func NewHTTPTransportFactory(params UploadParams, logger log.Logger) resumable.TransportFactory {
	return func(ctx context.Context, task resumable.Task) (resumable.Transport, error) {
		return NewHTTPTransport(params, task, logger)
	}
}

// NewHTTPTransport ...
func NewHTTPTransport(params UploadParams, task resumable.Task, logger log.Logger) (*HTTPTransport, error) {
	if params.Endpoint == "" {
		return nil, fmt.Errorf("upload endpoint is empty")
	}
	if _, err := sessionStartURL(params.Endpoint); err != nil {
		return nil, err
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}

	total := task.Payload.Size()
	chunkSize := alignChunkSize(params.ChunkSizeBytes, total, chunkAlignment)
	logger.Debugf("Uploading %d bytes in chunks of %d bytes", total, chunkSize)

	return &HTTPTransport{
		api:       newAPIClient(newSingleShotClient(httpClient, logger), params.Token, logger),
		endpoint:  params.Endpoint,
		task:      task,
		total:     total,
		chunkSize: chunkSize,
		stats:     NewStats(),
		logger:    logger,
	}, nil
}

// Advance ...
func (t *HTTPTransport) Advance(ctx context.Context) (resumable.Progress, *resumable.Result, error) {
	if t.sessionURL == "" {
		t.logger.Debugf("Starting upload session")
		sessionURL, err := t.api.startSession(ctx, t.endpoint, t.task)
		if err != nil {
			return t.progress(), nil, fmt.Errorf("start upload session: %w", err)
		}
		t.sessionURL = sessionURL
		t.logger.Debugf("Upload session: %s", sessionURL)
		return t.progress(), nil, nil
	}

	// A session holding every byte but not finished yet is also asked for its status.
	if t.needsSync || t.offset >= t.total {
		t.logger.Debugf("Querying upload session status")
		status, err := t.api.querySession(ctx, t.sessionURL, t.total)
		if err != nil {
			return t.progress(), nil, fmt.Errorf("query upload session: %w", err)
		}
		if !t.needsSync && status.result == nil && status.offset >= t.total {
			return t.progress(), nil, fmt.Errorf("upload session received all %d bytes but did not complete", t.total)
		}
		t.needsSync = false
		return t.apply(status)
	}

	start := t.offset
	end := start + t.chunkSize
	if end > t.total {
		end = t.total
	}

	t.logger.Debugf("Uploading bytes %d-%d/%d [finished=%d] [avg=%v]",
		start, end-1, t.total, t.stats.FinishedCount(), t.stats.Average().Round(time.Millisecond))

	began := time.Now()
	status, err := t.api.uploadChunk(ctx, t.sessionURL, t.task.Payload, start, end, t.total)
	if err != nil {
		t.needsSync = true
		return t.progress(), nil, fmt.Errorf("upload bytes %d-%d: %w", start, end-1, err)
	}
	t.stats.Update(time.Since(began), end-start)

	return t.apply(status)
}

// Stats returns the chunk statistics of this transport.
func (t *HTTPTransport) Stats() *Stats {
	return t.stats
}

func (t *HTTPTransport) apply(status sessionStatus) (resumable.Progress, *resumable.Result, error) {
	if status.result != nil {
		t.offset = t.total
		return t.progress(), status.result, nil
	}
	if status.offset > t.total {
		return t.progress(), nil, fmt.Errorf("session acknowledged %d bytes of a %d bytes payload", status.offset, t.total)
	}
	t.offset = status.offset
	return t.progress(), nil, nil
}

func (t *HTTPTransport) progress() resumable.Progress {
	return resumable.Progress{Sent: t.offset, Total: t.total}
}
