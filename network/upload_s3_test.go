package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/go-uploadutils/resumable"
)

type fakeS3 struct {
	createInput   *s3.CreateMultipartUploadInput
	parts         map[int32][]byte
	completeInput *s3.CompleteMultipartUploadInput
	aborted       int

	// errors returned by the n-th call of each operation, 1 based
	createErrs   map[int]error
	partErrs     map[int]error
	completeErrs map[int]error
	abortErrs    map[int]error

	createCalls, partCalls, completeCalls int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		parts:        map[int32][]byte{},
		createErrs:   map[int]error{},
		partErrs:     map[int]error{},
		completeErrs: map[int]error{},
		abortErrs:    map[int]error{},
	}
}

func (f *fakeS3) CreateMultipartUpload(_ context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.createCalls++
	if err := f.createErrs[f.createCalls]; err != nil {
		return nil, err
	}
	f.createInput = params
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
}

func (f *fakeS3) UploadPart(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	f.partCalls++
	if err := f.partErrs[f.partCalls]; err != nil {
		return nil, err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != aws.ToInt64(params.ContentLength) {
		return nil, fmt.Errorf("content length mismatch")
	}
	partNumber := aws.ToInt32(params.PartNumber)
	f.parts[partNumber] = data
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("\"etag-%d\"", partNumber))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(_ context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.completeCalls++
	if err := f.completeErrs[f.completeCalls]; err != nil {
		return nil, err
	}
	f.completeInput = params
	return &s3.CompleteMultipartUploadOutput{
		Location: aws.String("https://bucket.s3.amazonaws.com/" + aws.ToString(params.Key)),
		ETag:     aws.String("\"final\""),
	}, nil
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.aborted++
	if err := f.abortErrs[f.aborted]; err != nil {
		return nil, err
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) assembled() []byte {
	var buf bytes.Buffer
	for i := int32(1); i <= int32(len(f.parts)); i++ {
		buf.Write(f.parts[i])
	}
	return buf.Bytes()
}

func s3ResponseError(status int) error {
	return &smithy.OperationError{
		ServiceID:     "S3",
		OperationName: "UploadPart",
		Err: &awshttp.ResponseError{
			ResponseError: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
				Err:      errors.New("api error"),
			},
			RequestID: "req-1",
		},
	}
}

func s3Factory(client s3API, params S3UploadParams) resumable.TransportFactory {
	return func(_ context.Context, task resumable.Task) (resumable.Transport, error) {
		return newS3Transport(client, params, task, log.NewLogger()), nil
	}
}

func TestS3Transport_Upload_Success(t *testing.T) {
	client := newFakeS3()
	payload := testPayload(12 * 1024 * 1024)

	result, err := testDriver(3).Upload(context.Background(), testTask(payload),
		s3Factory(client, S3UploadParams{Bucket: "media", KeyPrefix: "shorts", Key: "shorts/daily.mp4", PartSizeBytes: s3MinPartSizeBytes}))

	require.NoError(t, err)
	assert.Equal(t, "shorts/daily.mp4", result.ID)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/shorts/daily.mp4", result.Location)
	assert.JSONEq(t, `{"bucket":"media","key":"shorts/daily.mp4","etag":"\"final\""}`, string(result.Raw))

	assert.Len(t, client.parts, 3)
	assert.Equal(t, payload, client.assembled())
	assert.Equal(t, 0, client.aborted)

	assert.Equal(t, "video/mp4", aws.ToString(client.createInput.ContentType))
	assert.Equal(t, map[string]string{
		"title":       "Daily short",
		"description": "A generated clip",
		"tags":        "shorts,ai",
		"category":    "22",
		"visibility":  "unlisted",
	}, client.createInput.Metadata)

	parts := client.completeInput.MultipartUpload.Parts
	require.Len(t, parts, 3)
	for i, part := range parts {
		assert.Equal(t, int32(i+1), aws.ToInt32(part.PartNumber))
		assert.Equal(t, fmt.Sprintf("\"etag-%d\"", i+1), aws.ToString(part.ETag))
	}
}

func TestS3Transport_DefaultKey(t *testing.T) {
	task := testTask(testPayload(10))
	task.ID = "task-id"

	transport := newS3Transport(newFakeS3(), S3UploadParams{Bucket: "media", KeyPrefix: "shorts"}, task, log.NewLogger())

	assert.Equal(t, "shorts/task-id", transport.key)
	assert.Equal(t, int64(minChunkSizeBytes), transport.partSize)
	assert.Equal(t, int32(1), transport.numParts)
}

func TestS3Transport_Upload_RetriesTransientErrors(t *testing.T) {
	client := newFakeS3()
	client.createErrs[1] = s3ResponseError(http.StatusServiceUnavailable)
	client.partErrs[2] = s3ResponseError(http.StatusInternalServerError)
	client.completeErrs[1] = s3ResponseError(http.StatusServiceUnavailable)
	payload := testPayload(11 * 1024 * 1024)

	result, err := testDriver(5).Upload(context.Background(), testTask(payload),
		s3Factory(client, S3UploadParams{Bucket: "media", Key: "clip.mp4", PartSizeBytes: 1}))

	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", result.ID)
	assert.Equal(t, payload, client.assembled())
	assert.Equal(t, 2, client.createCalls)
	assert.Equal(t, 4, client.partCalls)
	assert.Equal(t, 2, client.completeCalls)
}

func TestS3Transport_Upload_FatalErrorAborts(t *testing.T) {
	client := newFakeS3()
	client.partErrs[1] = s3ResponseError(http.StatusForbidden)

	_, err := testDriver(5).Upload(context.Background(), testTask(testPayload(6*1024*1024)),
		s3Factory(client, S3UploadParams{Bucket: "media", Key: "clip.mp4"}))

	var statusErr interface{ HTTPStatusCode() int }
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.HTTPStatusCode())
	assert.Equal(t, 1, client.partCalls)
	assert.Equal(t, 1, client.aborted)
}

func TestS3Transport_Close(t *testing.T) {
	t.Run("nothing to abort before the upload was created", func(t *testing.T) {
		client := newFakeS3()
		transport := newS3Transport(client, S3UploadParams{Bucket: "media"}, testTask(testPayload(10)), log.NewLogger())

		require.NoError(t, transport.Close())
		assert.Equal(t, 0, client.aborted)
	})

	t.Run("missing upload counts as aborted", func(t *testing.T) {
		client := newFakeS3()
		client.abortErrs[1] = &smithy.GenericAPIError{Code: "NoSuchUpload", Message: "gone"}
		transport := newS3Transport(client, S3UploadParams{Bucket: "media"}, testTask(testPayload(10)), log.NewLogger())
		transport.uploadID = "upload-1"

		require.NoError(t, transport.Close())
		assert.Equal(t, 1, client.aborted)
	})
}

func TestS3Transport_Progress(t *testing.T) {
	client := newFakeS3()
	payload := testPayload(11 * 1024 * 1024)
	transport := newS3Transport(client, S3UploadParams{Bucket: "media", Key: "k", PartSizeBytes: s3MinPartSizeBytes}, testTask(payload), log.NewLogger())

	var sent []int64
	for {
		progress, result, err := transport.Advance(context.Background())
		require.NoError(t, err)
		sent = append(sent, progress.Sent)
		if result != nil {
			break
		}
	}

	assert.Equal(t, []int64{0, 5 * 1024 * 1024, 10 * 1024 * 1024, int64(len(payload)), int64(len(payload))}, sent)
}
