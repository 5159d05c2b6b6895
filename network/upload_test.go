package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/go-uploadutils/resumable"
)

// fakeSession is a minimal resumable upload server.
type fakeSession struct {
	mu sync.Mutex

	total    int64
	received []byte

	startStatus int
	// chunkFailures maps the n-th chunk request (1 based) to a status code.
	chunkFailures map[int]int
	// dropConnection closes the connection on the given chunk request instead of answering.
	dropConnection int

	startBody     []byte
	startHeaders  http.Header
	chunkRequests int
	queries       int
}

func newFakeSession() *fakeSession {
	return &fakeSession{chunkFailures: map[int]int{}}
}

func (s *fakeSession) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/upload":
		s.startHeaders = r.Header.Clone()
		s.startBody, _ = io.ReadAll(r.Body)
		if s.startStatus != 0 {
			w.WriteHeader(s.startStatus)
			_, _ = w.Write([]byte(`{"error":"start failed"}`))
			return
		}
		s.total, _ = strconv.ParseInt(r.Header.Get("X-Upload-Content-Length"), 10, 64)
		w.Header().Set("Location", "/session/1?upload_id=abc")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && r.URL.Path == "/session/1":
		contentRange := r.Header.Get("Content-Range")
		if strings.HasPrefix(contentRange, "bytes */") {
			s.queries++
			s.writeStatus(w)
			return
		}

		s.chunkRequests++
		if s.dropConnection == s.chunkRequests {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		body, _ := io.ReadAll(r.Body)
		if code, ok := s.chunkFailures[s.chunkRequests]; ok {
			// half of the chunk still makes it to storage
			s.received = append(s.received, body[:len(body)/2]...)
			w.WriteHeader(code)
			_, _ = w.Write([]byte("backend error"))
			return
		}

		var start, end, total int64
		if _, err := fmt.Sscanf(contentRange, "bytes %d-%d/%d", &start, &end, &total); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if start != int64(len(s.received)) || end-start+1 != int64(len(body)) || total != s.total {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(fmt.Sprintf("unexpected range %s, have %d", contentRange, len(s.received))))
			return
		}
		s.received = append(s.received, body...)
		s.writeStatus(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *fakeSession) writeStatus(w http.ResponseWriter) {
	if int64(len(s.received)) == s.total {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"kind":"video","id":"v1"}`))
		return
	}
	if len(s.received) > 0 {
		w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", len(s.received)-1))
	}
	w.WriteHeader(statusResumeIncomplete)
}

func testPayload(size int) []byte {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	return payload
}

func testTask(payload []byte) resumable.Task {
	return resumable.Task{
		Payload:     bytes.NewReader(payload),
		ContentType: "video/mp4",
		Metadata: resumable.Metadata{
			Title:       "Daily short",
			Description: "A generated clip",
			Tags:        []string{"shorts", "ai"},
			CategoryID:  "22",
			Visibility:  resumable.VisibilityUnlisted,
		},
	}
}

func testDriver(maxAttempts int) *resumable.Driver {
	return resumable.NewDriver(resumable.Config{
		Scheduler: resumable.FullJitter{Attempts: maxAttempts, Rand: func() float64 { return 0 }},
	}, log.NewLogger())
}

func TestHTTPTransport_Upload_Success(t *testing.T) {
	session := newFakeSession()
	server := httptest.NewServer(session)
	defer server.Close()

	payload := testPayload(600 * 1024)
	factory := NewHTTPTransportFactory(UploadParams{
		Endpoint:       server.URL + "/upload",
		Token:          "token",
		ChunkSizeBytes: 200 * 1024, // rounded up to 256 KiB
	}, log.NewLogger())

	result, err := testDriver(3).Upload(context.Background(), testTask(payload), factory)

	require.NoError(t, err)
	assert.Equal(t, "v1", result.ID)
	assert.Equal(t, server.URL+"/session/1?upload_id=abc", result.Location)
	assert.JSONEq(t, `{"kind":"video","id":"v1"}`, string(result.Raw))
	assert.Equal(t, payload, session.received)
	assert.Equal(t, 3, session.chunkRequests)
	assert.Equal(t, 0, session.queries)

	assert.Equal(t, "Bearer token", session.startHeaders.Get("Authorization"))
	assert.Equal(t, strconv.Itoa(len(payload)), session.startHeaders.Get("X-Upload-Content-Length"))
	assert.Equal(t, "video/mp4", session.startHeaders.Get("X-Upload-Content-Type"))

	var resource videoResource
	require.NoError(t, json.Unmarshal(session.startBody, &resource))
	assert.Equal(t, videoResource{
		Snippet: videoSnippet{
			Title:       "Daily short",
			Description: "A generated clip",
			Tags:        []string{"shorts", "ai"},
			CategoryID:  "22",
		},
		Status: videoStatus{PrivacyStatus: "unlisted"},
	}, resource)
}

func TestHTTPTransport_Upload_SingleRequest(t *testing.T) {
	session := newFakeSession()
	server := httptest.NewServer(session)
	defer server.Close()

	payload := testPayload(1000)
	factory := NewHTTPTransportFactory(UploadParams{Endpoint: server.URL + "/upload"}, log.NewLogger())

	result, err := testDriver(3).Upload(context.Background(), testTask(payload), factory)

	require.NoError(t, err)
	assert.Equal(t, "v1", result.ID)
	assert.Equal(t, 1, session.chunkRequests)
	assert.Empty(t, session.startHeaders.Get("Authorization"))
}

func TestHTTPTransport_Upload_ResumesAfterServerError(t *testing.T) {
	session := newFakeSession()
	session.chunkFailures[2] = http.StatusServiceUnavailable
	session.chunkFailures[3] = http.StatusBadGateway
	server := httptest.NewServer(session)
	defer server.Close()

	payload := testPayload(700 * 1024)
	factory := NewHTTPTransportFactory(UploadParams{
		Endpoint:       server.URL + "/upload",
		ChunkSizeBytes: 256 * 1024,
	}, log.NewLogger())

	result, err := testDriver(5).Upload(context.Background(), testTask(payload), factory)

	require.NoError(t, err)
	assert.Equal(t, "v1", result.ID)
	assert.Equal(t, payload, session.received)
	assert.Equal(t, 2, session.queries)
}

func TestHTTPTransport_Upload_ResumesAfterDroppedConnection(t *testing.T) {
	session := newFakeSession()
	session.dropConnection = 1
	server := httptest.NewServer(session)
	defer server.Close()

	payload := testPayload(300 * 1024)
	factory := NewHTTPTransportFactory(UploadParams{
		Endpoint:       server.URL + "/upload",
		ChunkSizeBytes: 256 * 1024,
	}, log.NewLogger())

	result, err := testDriver(5).Upload(context.Background(), testTask(payload), factory)

	require.NoError(t, err)
	assert.Equal(t, "v1", result.ID)
	assert.Equal(t, payload, session.received)
}

func TestHTTPTransport_Upload_RetryBudgetExhausted(t *testing.T) {
	session := newFakeSession()
	for i := 1; i <= 10; i++ {
		session.chunkFailures[i] = http.StatusInternalServerError
	}
	server := httptest.NewServer(session)
	defer server.Close()

	factory := NewHTTPTransportFactory(UploadParams{Endpoint: server.URL + "/upload", ChunkSizeBytes: 256 * 1024}, log.NewLogger())

	_, err := testDriver(2).Upload(context.Background(), testTask(testPayload(600*1024)), factory)

	require.ErrorIs(t, err, resumable.ErrRetryBudgetExhausted)
	var statusErr *resumable.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestHTTPTransport_Upload_FatalErrors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(s *fakeSession)
		wantStatus int
	}{
		{
			name:       "unauthorized session start",
			setup:      func(s *fakeSession) { s.startStatus = http.StatusUnauthorized },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "quota exceeded",
			setup:      func(s *fakeSession) { s.startStatus = http.StatusForbidden },
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "bad request chunk",
			setup:      func(s *fakeSession) { s.chunkFailures[1] = http.StatusBadRequest },
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession()
			tt.setup(session)
			server := httptest.NewServer(session)
			defer server.Close()

			factory := NewHTTPTransportFactory(UploadParams{Endpoint: server.URL + "/upload"}, log.NewLogger())

			_, err := testDriver(5).Upload(context.Background(), testTask(testPayload(1024)), factory)

			var statusErr *resumable.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
			assert.NotErrorIs(t, err, resumable.ErrRetryBudgetExhausted)
			assert.LessOrEqual(t, session.chunkRequests, 1)
		})
	}
}

func TestHTTPTransport_Upload_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	factory := NewHTTPTransportFactory(UploadParams{Endpoint: server.URL + "/upload"}, log.NewLogger())

	go cancel()
	_, err := testDriver(5).Upload(ctx, testTask(testPayload(1024)), factory)

	assert.ErrorIs(t, err, resumable.ErrCancelled)
}

func TestNewHTTPTransport_InvalidParams(t *testing.T) {
	task := testTask(testPayload(10))

	_, err := NewHTTPTransport(UploadParams{}, task, log.NewLogger())
	assert.Error(t, err)

	_, err = NewHTTPTransport(UploadParams{Endpoint: "://bad"}, task, log.NewLogger())
	assert.Error(t, err)
}

func Test_parseRangeHeader(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{value: "", want: 0},
		{value: "bytes=0-0", want: 1},
		{value: "bytes=0-262143", want: 262144},
		{value: "0-10", wantErr: true},
		{value: "bytes=0", wantErr: true},
		{value: "bytes=0-x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseRangeHeader(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_sessionStartURL(t *testing.T) {
	got, err := sessionStartURL("https://www.googleapis.com/upload/youtube/v3/videos")
	require.NoError(t, err)
	assert.Equal(t, "https://www.googleapis.com/upload/youtube/v3/videos?part=snippet%2Cstatus&uploadType=resumable", got)

	got, err = sessionStartURL("https://example.com/upload?part=snippet")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/upload?part=snippet&uploadType=resumable", got)
}
