// Package minio is the object-storage artifact store, for deployments where
// the structure cache is shared between hosts.
package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/internal/infrastructure/storage"
	"github.com/foldbank/foldbank/pkg/errors"
)

// MinIOAPI is the subset of the minio client the store uses.  GetObject
// returns a plain ReadCloser so tests can substitute an in-memory fake;
// *minio.Object satisfies it.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Config holds the object storage settings.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
}

// Store implements storage.ArtifactStore on a MinIO (or S3-compatible)
// bucket.
type Store struct {
	api    MinIOAPI
	bucket string
	logger logging.Logger
}

type clientAdapter struct {
	*minio.Client
}

func (a clientAdapter) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucket, object, opts)
}

// NewStore connects to the configured endpoint and ensures the artifact
// bucket exists.
func NewStore(cfg Config, logger logging.Logger) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.InvalidParam("minio endpoint cannot be empty")
	}
	if cfg.Bucket == "" {
		return nil, errors.InvalidParam("minio bucket cannot be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "create minio client")
	}

	s := &Store{
		api:    clientAdapter{client},
		bucket: cfg.Bucket,
		logger: logger.Named("minio-store"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}

	logger.Info("object storage connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))
	return s, nil
}

// NewStoreWithAPI creates a Store over an existing API implementation.
// The bucket is assumed to exist.
func NewStoreWithAPI(api MinIOAPI, bucket string, logger logging.Logger) *Store {
	return &Store{api: api, bucket: bucket, logger: logger.Named("minio-store")}
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	ok, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "check artifact bucket")
	}
	if ok {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "create artifact bucket")
	}
	return nil
}

func (s *Store) Put(ctx context.Context, digest string, data []byte) error {
	_, err := s.api.PutObject(ctx, s.bucket, storage.ObjectName(digest),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "chemical/x-pdb"})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "put artifact")
	}

	s.logger.Debug("artifact stored",
		logging.String("digest", digest),
		logging.Int("bytes", len(data)))
	return nil
}

func (s *Store) Get(ctx context.Context, digest string) ([]byte, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, storage.ObjectName(digest), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "get artifact")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.Newf(errors.ErrCodeStructureNotFound,
				"no cached structure for digest %s", digest)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "read artifact")
	}
	return data, nil
}

func (s *Store) Exists(ctx context.Context, digest string) (bool, error) {
	_, err := s.api.StatObject(ctx, s.bucket, storage.ObjectName(digest), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat artifact")
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
