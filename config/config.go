// Package config reads the upload run configuration from environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/docker/go-units"

	"github.com/reelforge/go-uploadutils/network"
	"github.com/reelforge/go-uploadutils/resumable"
	"github.com/reelforge/go-uploadutils/search"
)

// Destination selects the transport an upload goes through.
type Destination string

// Destinations.
const (
	DestinationHTTP Destination = "http"
	DestinationS3   Destination = "s3"
)

// Defaults.
const (
	DefaultEndpoint   = "https://www.googleapis.com/upload/youtube/v3/videos"
	DefaultCategory   = "22"
	DefaultVisibility = resumable.VisibilityPrivate
	DefaultScratchDir = "temp"
	downloadFileName  = "clip.mp4"
)

// Inputs are the raw environment inputs.
type Inputs struct {
	VideoPath     string `env:"video_path"`
	Title         string `env:"title,required"`
	Description   string `env:"description"`
	Keywords      string `env:"keywords"`
	Category      string `env:"category"`
	PrivacyStatus string `env:"privacy_status"`

	MaxAttempts          string `env:"max_attempts"`
	RetriableStatusCodes string `env:"retriable_status_codes"`

	Destination string          `env:"destination"`
	Endpoint    string          `env:"endpoint"`
	AccessToken stepconf.Secret `env:"access_token"`
	ChunkSize   string          `env:"chunk_size"`

	S3Bucket          string          `env:"s3_bucket"`
	S3KeyPrefix       string          `env:"s3_key_prefix"`
	S3Region          string          `env:"s3_region"`
	S3AccessKeyID     stepconf.Secret `env:"s3_access_key_id"`
	S3SecretAccessKey stepconf.Secret `env:"s3_secret_access_key"`
	S3Endpoint        string          `env:"s3_endpoint"`
	S3UsePathStyle    bool            `env:"s3_use_path_style"`

	SearchQuery  string          `env:"search_query"`
	SearchAPIKey stepconf.Secret `env:"search_api_key"`
	SearchURL    string          `env:"search_url"`

	ScratchDir  string   `env:"scratch_dir"`
	ScratchKeep []string `env:"scratch_keep"`

	Verbose bool `env:"verbose"`
}

// Config is the validated configuration of an upload run.
type Config struct {
	Inputs Inputs

	// VideoPath is the file to upload, the download target when SearchQuery is set.
	VideoPath   string
	Metadata    resumable.Metadata
	Retry       resumable.Config
	Destination Destination
	HTTP        network.UploadParams
	S3          network.S3UploadParams

	SearchQuery string
	Search      search.ClientParams

	ScratchDir  string
	ScratchKeep []string

	Verbose bool
}

// New parses and validates the inputs found in envRepo.
func New(envRepo env.Repository) (Config, error) {
	var inputs Inputs
	if err := stepconf.NewInputParser(envRepo).Parse(&inputs); err != nil {
		return Config{}, err
	}
	return FromInputs(inputs)
}

// FromInputs validates inputs and fills in the defaults.
func FromInputs(inputs Inputs) (Config, error) {
	cfg := Config{
		Inputs:      inputs,
		SearchQuery: strings.TrimSpace(inputs.SearchQuery),
		ScratchDir:  valueOr(inputs.ScratchDir, DefaultScratchDir),
		ScratchKeep: inputs.ScratchKeep,
		Verbose:     inputs.Verbose,
	}

	metadata, err := parseMetadata(inputs)
	if err != nil {
		return Config{}, err
	}
	cfg.Metadata = metadata

	retry, err := parseRetry(inputs.MaxAttempts, inputs.RetriableStatusCodes)
	if err != nil {
		return Config{}, err
	}
	cfg.Retry = retry

	cfg.VideoPath = inputs.VideoPath
	if cfg.SearchQuery != "" {
		if inputs.SearchAPIKey == "" {
			return Config{}, fmt.Errorf("search_api_key is required when search_query is set")
		}
		cfg.Search = search.ClientParams{BaseURL: inputs.SearchURL, APIKey: string(inputs.SearchAPIKey)}
		if cfg.VideoPath == "" {
			cfg.VideoPath = filepath.Join(cfg.ScratchDir, downloadFileName)
		}
	}
	if cfg.VideoPath == "" {
		return Config{}, fmt.Errorf("either video_path or search_query is required")
	}

	chunkSize, err := parseChunkSize(inputs.ChunkSize)
	if err != nil {
		return Config{}, err
	}

	cfg.Destination = Destination(strings.ToLower(valueOr(inputs.Destination, string(DestinationHTTP))))
	switch cfg.Destination {
	case DestinationHTTP:
		if inputs.AccessToken == "" {
			return Config{}, fmt.Errorf("access_token is required for the %s destination", DestinationHTTP)
		}
		cfg.HTTP = network.UploadParams{
			Endpoint:       valueOr(inputs.Endpoint, DefaultEndpoint),
			Token:          string(inputs.AccessToken),
			ChunkSizeBytes: chunkSize,
		}
	case DestinationS3:
		if inputs.S3Bucket == "" {
			return Config{}, fmt.Errorf("s3_bucket is required for the %s destination", DestinationS3)
		}
		cfg.S3 = network.S3UploadParams{
			Bucket:          inputs.S3Bucket,
			KeyPrefix:       inputs.S3KeyPrefix,
			Region:          inputs.S3Region,
			AccessKeyID:     string(inputs.S3AccessKeyID),
			SecretAccessKey: string(inputs.S3SecretAccessKey),
			Endpoint:        inputs.S3Endpoint,
			UsePathStyle:    inputs.S3UsePathStyle,
			PartSizeBytes:   chunkSize,
		}
	default:
		return Config{}, fmt.Errorf("invalid destination %q, valid values: %s, %s", inputs.Destination, DestinationHTTP, DestinationS3)
	}

	return cfg, nil
}

func parseMetadata(inputs Inputs) (resumable.Metadata, error) {
	visibility := DefaultVisibility
	if inputs.PrivacyStatus != "" {
		v, err := resumable.ParseVisibility(inputs.PrivacyStatus)
		if err != nil {
			return resumable.Metadata{}, fmt.Errorf("privacy_status: %w", err)
		}
		visibility = v
	}

	metadata := resumable.Metadata{
		Title:       strings.TrimSpace(inputs.Title),
		Description: inputs.Description,
		Tags:        resumable.ParseTags(inputs.Keywords),
		CategoryID:  valueOr(inputs.Category, DefaultCategory),
		Visibility:  visibility,
	}
	if err := metadata.Validate(); err != nil {
		return resumable.Metadata{}, err
	}
	return metadata, nil
}

// parseRetry maps max_attempts onto resumable.Config: empty means the default,
// 0 disables retries.
func parseRetry(maxAttempts, statusCodes string) (resumable.Config, error) {
	cfg := resumable.DefaultConfig()

	if s := strings.TrimSpace(maxAttempts); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return resumable.Config{}, fmt.Errorf("max_attempts must be a non-negative integer, got %q", maxAttempts)
		}
		if n == 0 {
			n = -1
		}
		cfg.MaxAttempts = n
	}

	if strings.TrimSpace(statusCodes) != "" {
		codes, err := parseStatusCodes(statusCodes)
		if err != nil {
			return resumable.Config{}, err
		}
		cfg.RetriableStatusCodes = codes
	}

	return cfg, nil
}

func parseStatusCodes(s string) ([]int, error) {
	var codes []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		code, err := strconv.Atoi(item)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("invalid HTTP status code in retriable_status_codes: %q", item)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// parseChunkSize accepts human readable sizes like 8MB or 256k, read as binary units.
func parseChunkSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	size, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("chunk_size: %w", err)
	}
	return size, nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
