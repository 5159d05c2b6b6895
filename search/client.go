// Package search finds stock clips to upload and downloads them.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"

	"github.com/reelforge/go-uploadutils/resumable"
)

// DefaultBaseURL is the stock video API used when ClientParams.BaseURL is empty.
const DefaultBaseURL = "https://api.pexels.com"

// externalLinkMarker marks the direct download links of a video file.
const externalLinkMarker = ".com/external"

const maxErrorBodyBytes = 4096

// ClientParams ...
type ClientParams struct {
	BaseURL string
	APIKey  string
	// HTTPClient is used for both searching and downloading.
	HTTPClient *http.Client
}

type videoFile struct {
	Link string `json:"link"`
}

type video struct {
	VideoFiles []videoFile `json:"video_files"`
}

type searchResponse struct {
	Videos []video `json:"videos"`
}

// Client searches the stock video API. Requests are sent once, never retried.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
	logger     log.Logger
}

// NewClient ...
func NewClient(params ClientParams, logger log.Logger) (*Client, error) {
	if params.APIKey == "" {
		return nil, fmt.Errorf("API key is empty")
	}

	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient := retryhttp.NewClient(logger)
	httpClient.RetryMax = 0
	httpClient.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if params.HTTPClient != nil {
		httpClient.HTTPClient = params.HTTPClient
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     params.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// SearchVideo returns the download link of the first portrait clip matching query.
// The returned link is empty when nothing was found.
func (c *Client) SearchVideo(ctx context.Context, query string) (string, error) {
	values := url.Values{}
	values.Set("query", query)
	values.Set("per_page", "1")
	values.Set("orientation", "portrait")
	values.Set("size", "medium")
	searchURL := c.baseURL + "/videos/search?" + values.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search videos: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("Failed to close response body: %s", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &resumable.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	if len(response.Videos) == 0 {
		c.logger.Warnf("No videos found for %q", query)
		return "", nil
	}

	link := ""
	for _, file := range response.Videos[0].VideoFiles {
		if strings.Contains(file.Link, externalLinkMarker) {
			link = file.Link
		}
	}
	c.logger.Debugf("Video for %q: %s", query, link)

	return link, nil
}

// Download saves the clip at downloadURL to dest.
func (c *Client) Download(ctx context.Context, downloadURL string, dest string) error {
	if downloadURL == "" {
		return fmt.Errorf("download URL is empty")
	}

	downloader := got.New()
	downloader.Client = c.httpClient.StandardClient()

	c.logger.Debugf("Downloading %s to %s", downloadURL, dest)
	if err := downloader.Do(got.NewDownload(ctx, downloadURL, dest)); err != nil {
		return fmt.Errorf("download %s: %w", downloadURL, err)
	}
	return nil
}
