package network

import (
	"net/http"
	"time"
)

const (
	// chunkAlignment is the granularity resumable sessions accept for non-final chunks.
	chunkAlignment = 256 * 1024

	minChunkSizeBytes = 8 * 1024 * 1024
	maxChunkSizeBytes = 100 * 1024 * 1024

	// s3MinPartSizeBytes is the smallest part S3 accepts, except for the last one.
	s3MinPartSizeBytes = 5 * 1024 * 1024
)

// DefaultHTTPClient creates an HTTP client tuned for long chunk uploads.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		// No timeout - the caller's context bounds the upload
		Timeout: 0,
		Transport: &http.Transport{
			MaxIdleConns:          10,
			MaxConnsPerHost:       4,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 2 * time.Minute,
			Proxy:                 http.ProxyFromEnvironment,
		},
	}
}

// OptimalChunkSizeBytes picks a chunk size hint for a payload of totalSize bytes.
// Small payloads go in one chunk, large ones are split into 8 to 100 MiB chunks.
func OptimalChunkSizeBytes(totalSize int64) int64 {
	return int64(optimalChunkSizeBytes(uint64(totalSize), minChunkSizeBytes, maxChunkSizeBytes, 16))
}

func optimalChunkSizeBytes(totalSize, min, max, parts uint64) uint64 {
	cs := totalSize / parts

	if cs < min {
		cs = min
	}

	if max > 0 && cs > max {
		cs = max
	}

	return cs
}

// alignChunkSize turns a chunk size hint into the size used for a payload of total bytes.
// A non-positive hint sends the whole payload at once.
func alignChunkSize(hint, total, alignment int64) int64 {
	if hint <= 0 || hint >= total {
		return total
	}
	if rem := hint % alignment; rem != 0 {
		hint += alignment - rem
	}
	if hint > total {
		return total
	}
	return hint
}
