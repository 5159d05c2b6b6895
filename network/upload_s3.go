package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/reelforge/go-uploadutils/resumable"
)

const (
	numAbortRetries = 3
	abortTimeout    = 30 * time.Second
	// lookupRegion is only used to find the bucket's real region.
	lookupRegion = "us-east-1"
)

// S3UploadParams ...
type S3UploadParams struct {
	Bucket string
	// Key of the object, defaults to KeyPrefix/<task id>.
	Key       string
	KeyPrefix string
	// Region is looked up from the bucket when empty.
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint points the client at an S3 compatible service.
	Endpoint     string
	UsePathStyle bool
	// PartSizeBytes is raised to the 5 MiB S3 minimum, derived from the payload size when unset.
	PartSizeBytes int64
}

type s3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

type s3Object struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	ETag      string `json:"etag,omitempty"`
	VersionID string `json:"version_id,omitempty"`
}

// S3Transport uploads one task as an S3 multipart upload, one part per Advance.
type S3Transport struct {
	client   s3API
	bucket   string
	key      string
	task     resumable.Task
	total    int64
	partSize int64
	numParts int32

	uploadID  string
	completed []types.CompletedPart
	finished  bool

	stats  *Stats
	logger log.Logger
}

// NewS3TransportFactory returns a resumable.TransportFactory creating S3Transports.
// SDK level retries are disabled, the resumable.Driver owns the retry policy.
func NewS3TransportFactory(params S3UploadParams, logger log.Logger) resumable.TransportFactory {
	return func(ctx context.Context, task resumable.Task) (resumable.Transport, error) {
		if params.Bucket == "" {
			return nil, fmt.Errorf("bucket must not be empty")
		}

		client, err := newS3Client(ctx, params, logger)
		if err != nil {
			return nil, err
		}

		return newS3Transport(client, params, task, logger), nil
	}
}

func newS3Transport(client s3API, params S3UploadParams, task resumable.Task, logger log.Logger) *S3Transport {
	total := task.Payload.Size()
	partSize := params.PartSizeBytes
	if partSize <= 0 {
		partSize = OptimalChunkSizeBytes(total)
	}
	if partSize < s3MinPartSizeBytes {
		partSize = s3MinPartSizeBytes
	}
	numParts := int32((total + partSize - 1) / partSize)

	key := params.Key
	if key == "" {
		key = path.Join(params.KeyPrefix, task.ID)
	}

	return &S3Transport{
		client:   client,
		bucket:   params.Bucket,
		key:      key,
		task:     task,
		total:    total,
		partSize: partSize,
		numParts: numParts,
		stats:    NewStats(),
		logger:   logger,
	}
}

// Advance ...
func (t *S3Transport) Advance(ctx context.Context) (resumable.Progress, *resumable.Result, error) {
	if t.uploadID == "" {
		out, err := t.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket:      aws.String(t.bucket),
			Key:         aws.String(t.key),
			ContentType: aws.String(t.task.ContentType),
			Metadata:    objectMetadata(t.task.Metadata),
		})
		if err != nil {
			return t.progress(), nil, t.wrap("create multipart upload", err)
		}
		t.uploadID = aws.ToString(out.UploadId)
		t.logger.Debugf("Multipart upload ID: %s (%d parts of %d bytes)", t.uploadID, t.numParts, t.partSize)
		return t.progress(), nil, nil
	}

	if next := int32(len(t.completed)) + 1; next <= t.numParts {
		if err := t.uploadPart(ctx, next); err != nil {
			return t.progress(), nil, err
		}
		return t.progress(), nil, nil
	}

	out, err := t.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(t.bucket),
		Key:             aws.String(t.key),
		UploadId:        aws.String(t.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: t.completed},
	})
	if err != nil {
		return t.progress(), nil, t.wrap("complete multipart upload", err)
	}
	t.finished = true

	raw, err := json.Marshal(s3Object{
		Bucket:    t.bucket,
		Key:       t.key,
		ETag:      aws.ToString(out.ETag),
		VersionID: aws.ToString(out.VersionId),
	})
	if err != nil {
		return t.progress(), nil, err
	}

	return t.progress(), &resumable.Result{
		ID:       t.key,
		Location: aws.ToString(out.Location),
		Raw:      raw,
	}, nil
}

func (t *S3Transport) uploadPart(ctx context.Context, partNumber int32) error {
	offset := int64(partNumber-1) * t.partSize
	size := t.partSize
	if offset+size > t.total {
		size = t.total - offset
	}

	t.logger.Debugf("Uploading part %d/%d [finished=%d] [avg=%v]",
		partNumber, t.numParts, t.stats.FinishedCount(), t.stats.Average().Round(time.Millisecond))

	began := time.Now()
	out, err := t.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(t.key),
		UploadId:      aws.String(t.uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          io.NewSectionReader(t.task.Payload, offset, size),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return t.wrap(fmt.Sprintf("upload part %d", partNumber), err)
	}
	t.stats.Update(time.Since(began), size)

	t.completed = append(t.completed, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	return nil
}

// Close aborts the multipart upload unless it was completed.
func (t *S3Transport) Close() error {
	if t.uploadID == "" || t.finished {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()

	t.logger.Debugf("Aborting unfinished multipart upload %s", t.uploadID)
	return retry.Times(numAbortRetries).Wait(time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		_, err := t.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(t.bucket),
			Key:      aws.String(t.key),
			UploadId: aws.String(t.uploadID),
		})
		if err != nil {
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchUpload" {
				return nil, true
			}
			return fmt.Errorf("abort multipart upload: %w", err), false
		}
		return nil, true
	})
}

// Stats returns the part statistics of this transport.
func (t *S3Transport) Stats() *Stats {
	return t.stats
}

func (t *S3Transport) progress() resumable.Progress {
	var sent int64
	for _, part := range t.completed {
		partNumber := aws.ToInt32(part.PartNumber)
		if partNumber == t.numParts {
			sent += t.total - int64(partNumber-1)*t.partSize
		} else {
			sent += t.partSize
		}
	}
	return resumable.Progress{Sent: sent, Total: t.total}
}

func (t *S3Transport) wrap(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		t.logger.Debugf("%s failed with S3 error code %s: %s", op, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%s: %w", op, err)
}

func objectMetadata(m resumable.Metadata) map[string]string {
	metadata := map[string]string{
		"title":      m.Title,
		"visibility": string(m.Visibility),
	}
	if m.Description != "" {
		metadata["description"] = m.Description
	}
	if len(m.Tags) > 0 {
		metadata["tags"] = strings.Join(m.Tags, ",")
	}
	if m.CategoryID != "" {
		metadata["category"] = m.CategoryID
	}
	return metadata
}

func newS3Client(ctx context.Context, params S3UploadParams, logger log.Logger) (*s3.Client, error) {
	region := params.Region
	lookup := region == ""
	if lookup {
		region = lookupRegion
	}

	cfg, err := loadAWSCredentials(ctx, region, params.AccessKeyID, params.SecretAccessKey, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	optFns := func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
		o.UsePathStyle = params.UsePathStyle
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
		}
	}
	client := s3.NewFromConfig(*cfg, optFns)

	if !lookup {
		return client, nil
	}

	bucketRegion, err := manager.GetBucketRegion(ctx, client, params.Bucket)
	if err != nil {
		return nil, fmt.Errorf("get region of bucket %s: %w", params.Bucket, err)
	}
	logger.Debugf("Bucket %s is in region %s", params.Bucket, bucketRegion)
	cfg.Region = bucketRegion

	return s3.NewFromConfig(*cfg, optFns), nil
}

func loadAWSCredentials(
	ctx context.Context,
	region string,
	accessKeyID string,
	secretKey string,
	logger log.Logger,
) (*aws.Config, error) {
	if region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
