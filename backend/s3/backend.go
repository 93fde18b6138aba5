package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
)

// S3Backend archives version blobs into an S3 compatible bucket. Object names
// are "<prefix>/<escaped key>/v<number>_<unix>_<id>", so an orphaned blob left
// by a failed ledger append never collides with a later upload.
type S3Backend struct {
	mu sync.RWMutex

	client     *minio.Client
	bucketName string
	prefix     string
	create     bool
}

var _ backend.ArchiveBackend = (*S3Backend)(nil)

type S3BackendConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	UseSSL    bool
	// CreateBucket creates the bucket in Open when it is missing.
	CreateBucket bool
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" || config.Bucket == "" {
		return nil, fmt.Errorf("s3: endpoint and bucket are required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client:     client,
		bucketName: config.Bucket,
		prefix:     strings.Trim(config.Prefix, "/"),
		create:     config.CreateBucket,
	}, nil
}

// Returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.client.BucketExists(ctx, sb.bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if !sb.create {
		return fmt.Errorf("%w: bucket '%s' does not exist", data.ErrMountFailed, sb.bucketName)
	}

	return sb.client.MakeBucket(ctx, sb.bucketName, minio.MakeBucketOptions{})
}

func (sb *S3Backend) Close(ctx context.Context) error {
	return nil
}

func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityArchive,
			backend.CapabilityPersistent,
		},
	}
}

func (sb *S3Backend) PutBlob(ctx context.Context, key string, number uint64, createdAt time.Time, r io.Reader) (string, int64, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	name := sb.objectName(key, number, createdAt)
	counter := &countingReader{r: r}

	info, err := sb.client.PutObject(ctx, sb.bucketName, name, counter, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", counter.n, err
	}
	if info.Size != counter.n {
		return "", counter.n, fmt.Errorf("s3: stored %d bytes of %d for '%s'", info.Size, counter.n, name)
	}

	return name, counter.n, nil
}

func (sb *S3Backend) OpenBlob(ctx context.Context, location string) (io.ReadCloser, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	// GetObject is lazy, Stat surfaces a missing key right away
	obj, err := sb.client.GetObject(ctx, sb.bucketName, location, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapError(err)
	}

	return obj, nil
}

func (sb *S3Backend) DeleteBlob(ctx context.Context, location string) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if _, err := sb.client.StatObject(ctx, sb.bucketName, location, minio.StatObjectOptions{}); err != nil {
		return mapError(err)
	}

	return mapError(sb.client.RemoveObject(ctx, sb.bucketName, location, minio.RemoveObjectOptions{}))
}

func (sb *S3Backend) objectName(key string, number uint64, createdAt time.Time) string {
	name := fmt.Sprintf("%s_%s", backend.BlobName(number, createdAt.Unix()), data.NewID())
	return path.Join(sb.prefix, backend.EscapeKey(key), name)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Join(data.ErrNotExist, err)
	case "AccessDenied":
		return errors.Join(data.ErrPermission, err)
	}

	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
