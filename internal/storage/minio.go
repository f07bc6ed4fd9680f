// Package storage puts uploaded files into per-source MinIO buckets.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ink/api/internal/util"
)

// Object describes a stored upload.
type Object struct {
	Bucket string
	Name   string
	URL    string
	Size   int64
}

// Client is the subset of the MinIO client used for uploads.
type Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type MinIO struct {
	client  Client
	baseURL string
	prefix  string
}

// NewMinIO connects to endpoint with static credentials.
func NewMinIO(endpoint, accessKey, secretKey string, useSSL bool, bucketPrefix string) (*MinIO, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewWithClient(client, client.EndpointURL().String(), bucketPrefix), nil
}

func NewWithClient(client Client, baseURL, bucketPrefix string) *MinIO {
	return &MinIO{client: client, baseURL: strings.TrimRight(baseURL, "/"), prefix: bucketPrefix}
}

// Upload stores r under a random object name in the source's bucket,
// creating the bucket on first use.
func (m *MinIO) Upload(ctx context.Context, sourceID, filename, contentType string, r io.Reader, size int64) (Object, error) {
	bucket := BucketName(m.prefix, sourceID)
	if err := m.ensureBucket(ctx, bucket); err != nil {
		return Object{}, err
	}

	name := ObjectName(filename)
	info, err := m.client.PutObject(ctx, bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}
	return Object{
		Bucket: bucket,
		Name:   name,
		URL:    m.baseURL + "/" + bucket + "/" + name,
		Size:   info.Size,
	}, nil
}

func (m *MinIO) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

var bucketUnsafe = regexp.MustCompile(`[^a-z0-9.-]+`)

// BucketName derives a valid S3 bucket name for a source.
func BucketName(prefix, sourceID string) string {
	name := bucketUnsafe.ReplaceAllString(strings.ToLower(prefix+sourceID), "-")
	name = strings.Trim(name, ".-")
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], ".-")
	}
	for len(name) < 3 {
		name += "0"
	}
	return name
}

// ObjectName is 30 random hex characters plus the original extension.
func ObjectName(filename string) string {
	return util.RandomHex(15) + strings.ToLower(path.Ext(filename))
}
