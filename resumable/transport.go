package resumable

import (
	"context"
	"encoding/json"
)

// Progress reports how much of the payload the remote side has acknowledged.
type Progress struct {
	Sent  int64
	Total int64
}

// Percent ...
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Sent) * 100 / float64(p.Total)
}

// Result is returned once the remote side accepted the whole payload.
type Result struct {
	// ID uniquely identifies the uploaded artifact (video id, object key).
	ID       string
	Location string
	// Raw is the unparsed final response body, if the transport has one.
	Raw json.RawMessage
}

// Transport performs one chunked-transfer step per Advance call.
//
// The three outcomes of Advance are:
//   - Continue: nil result and nil error, more data has to be sent.
//   - Done: non-nil result, the upload is complete.
//   - Error: non-nil error carrying enough detail to be classified.
//
// After an error Advance must be safe to call again; it resends the region the
// remote side has not acknowledged yet.
type Transport interface {
	Advance(ctx context.Context) (Progress, *Result, error)
}

// TransportFactory returns an authorized Transport bound to one destination.
// A Transport implementing io.Closer is closed when the upload ends.
type TransportFactory func(ctx context.Context, task Task) (Transport, error)
