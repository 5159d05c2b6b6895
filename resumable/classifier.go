package resumable

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Class is the retry verdict for a transport error.
type Class int

// Classes.
const (
	Fatal Class = iota
	Retriable
)

func (c Class) String() string {
	if c == Retriable {
		return "retriable"
	}
	return "fatal"
}

// DefaultRetriableStatusCodes are the transient server side failures.
var DefaultRetriableStatusCodes = []int{500, 502, 503, 504}

// Classifier decides whether a transport error is worth retrying.
type Classifier interface {
	Classify(err error) Class
}

type statusCoder interface {
	HTTPStatusCode() int
}

// StatusClassifier retries network failures and allow-listed status codes.
// Every other error is fatal.
type StatusClassifier struct {
	retriable map[int]bool
}

// NewClassifier returns a StatusClassifier retrying the given status codes.
// Without codes DefaultRetriableStatusCodes is used.
func NewClassifier(retriableStatusCodes ...int) StatusClassifier {
	if len(retriableStatusCodes) == 0 {
		retriableStatusCodes = DefaultRetriableStatusCodes
	}
	retriable := make(map[int]bool, len(retriableStatusCodes))
	for _, code := range retriableStatusCodes {
		retriable[code] = true
	}
	return StatusClassifier{retriable: retriable}
}

// Classify ...
func (c StatusClassifier) Classify(err error) Class {
	if err == nil {
		return Fatal
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if c.retriable[sc.HTTPStatusCode()] {
			return Retriable
		}
		return Fatal
	}

	if isNetworkError(err) {
		return Retriable
	}

	return Fatal
}

func isNetworkError(err error) bool {
	// Cancellation is never a connectivity problem, the driver reports it separately.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return true
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	// *url.Error is a net.Error too; only its timeouts are known to be transient.
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
