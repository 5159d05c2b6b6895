package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/reelforge/go-uploadutils/resumable"
)

// statusResumeIncomplete is returned by a resumable session for accepted, non-final chunks.
const statusResumeIncomplete = 308

const maxErrorBodyBytes = 4096

type videoSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
}

type videoStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

type videoResource struct {
	Snippet videoSnippet `json:"snippet"`
	Status  videoStatus  `json:"status"`
}

type uploadedResource struct {
	ID string `json:"id"`
}

// sessionStatus is the server's view of a session after a request.
// result is set once the whole payload was accepted.
type sessionStatus struct {
	offset int64
	result *resumable.Result
}

type apiClient struct {
	httpClient  *retryablehttp.Client
	accessToken string
	logger      log.Logger
}

// newSingleShotClient returns a retryablehttp client that never retries on its own,
// so failures reach the caller's retry policy unchanged.
func newSingleShotClient(httpClient *http.Client, logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = 0
	client.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return client
}

func newAPIClient(client *retryablehttp.Client, accessToken string, logger log.Logger) apiClient {
	return apiClient{
		httpClient:  client,
		accessToken: accessToken,
		logger:      logger,
	}
}

func (c apiClient) startSession(ctx context.Context, endpoint string, task resumable.Task) (string, error) {
	startURL, err := sessionStartURL(endpoint)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(videoResource{
		Snippet: videoSnippet{
			Title:       task.Metadata.Title,
			Description: task.Metadata.Description,
			Tags:        task.Metadata.Tags,
			CategoryID:  task.Metadata.CategoryID,
		},
		Status: videoStatus{PrivacyStatus: string(task.Metadata.Visibility)},
	})
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, startURL, body)
	if err != nil {
		return "", err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(task.Payload.Size(), 10))
	req.Header.Set("X-Upload-Content-Type", task.ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", unwrapError(resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("no session URL in response")
	}

	base, err := url.Parse(startURL)
	if err != nil {
		return "", err
	}
	sessionURL, err := base.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid session URL %q: %w", location, err)
	}

	return sessionURL.String(), nil
}

// uploadChunk sends payload[start:end) of a total bytes long payload.
func (c apiClient) uploadChunk(ctx context.Context, sessionURL string, payload io.ReaderAt, start, end, total int64) (sessionStatus, error) {
	size := end - start
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, sessionURL, io.NewSectionReader(payload, start, size))
	if err != nil {
		return sessionStatus{}, err
	}
	c.authorize(req)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))

	// Add Content-Length header manually because retryablehttp doesn't do it automatically
	req.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	req.ContentLength = size

	dump, err := httputil.DumpRequest(req.Request, false)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("Chunk request dump: %s", string(dump))

	return c.doSessionRequest(req, sessionURL)
}

// querySession asks how much of the payload the session has received.
func (c apiClient) querySession(ctx context.Context, sessionURL string, total int64) (sessionStatus, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, sessionURL, nil)
	if err != nil {
		return sessionStatus{}, err
	}
	c.authorize(req)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", total))
	req.ContentLength = 0

	return c.doSessionRequest(req, sessionURL)
}

func (c apiClient) doSessionRequest(req *retryablehttp.Request, sessionURL string) (sessionStatus, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sessionStatus{}, err
	}
	defer c.closeBody(resp.Body)

	switch resp.StatusCode {
	case statusResumeIncomplete:
		offset, err := parseRangeHeader(resp.Header.Get("Range"))
		if err != nil {
			return sessionStatus{}, err
		}
		return sessionStatus{offset: offset}, nil
	case http.StatusOK, http.StatusCreated:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return sessionStatus{}, fmt.Errorf("read response: %w", err)
		}
		var resource uploadedResource
		if err := json.Unmarshal(body, &resource); err != nil {
			return sessionStatus{}, fmt.Errorf("decode response: %w", err)
		}
		if resource.ID == "" {
			return sessionStatus{}, fmt.Errorf("upload completed without an id in response: %s", body)
		}
		return sessionStatus{result: &resumable.Result{
			ID:       resource.ID,
			Location: sessionURL,
			Raw:      body,
		}}, nil
	default:
		return sessionStatus{}, unwrapError(resp)
	}
}

func (c apiClient) authorize(req *retryablehttp.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	}
}

func (c apiClient) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warnf("failed to close response body: %s", err)
	}
}

func sessionStartURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	query := u.Query()
	query.Set("uploadType", "resumable")
	if query.Get("part") == "" {
		query.Set("part", "snippet,status")
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// parseRangeHeader returns the next offset to send from a "bytes=0-N" header.
// A missing header means nothing was persisted yet.
func parseRangeHeader(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	spec := strings.TrimPrefix(value, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 || spec == value {
		return 0, fmt.Errorf("invalid Range header: %s", value)
	}
	last, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid Range header %s: %w", value, err)
	}
	return last + 1, nil
}

func unwrapError(resp *http.Response) error {
	errorResp, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return err
	}
	return &resumable.StatusError{StatusCode: resp.StatusCode, Body: string(errorResp)}
}
