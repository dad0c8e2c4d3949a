package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/config"
)

// MinioI is the blob-store boundary used by the gateway (staging uploads) and
// the workflow activities (fetch and cleanup).
type MinioI interface {
	UploadFile(ctx context.Context, objectName string, content []byte, contentType string) error
	GetFile(ctx context.Context, objectName string) ([]byte, error)
	DeleteFile(ctx context.Context, objectName string) error
}

type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinioClientAndInitBucket connects to MinIO and ensures the staging
// bucket exists.
func NewMinioClientAndInitBucket(ctx context.Context, cfg config.MinioConfig, log *zap.Logger) (*Minio, error) {
	endpoint := cfg.Host + ":" + cfg.Port
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPwd, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		log.Error("cannot connect to minio",
			zap.String("host:port", endpoint),
			zap.Error(err))
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Error("cannot create bucket", zap.String("bucket", cfg.BucketName), zap.Error(err))
			return nil, err
		}
		log.Info("Successfully created bucket", zap.String("bucket", cfg.BucketName))
	}

	return &Minio{client: client, bucket: cfg.BucketName}, nil
}

func (m *Minio) UploadFile(ctx context.Context, objectName string, content []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *Minio) GetFile(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

func (m *Minio) DeleteFile(ctx context.Context, objectName string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
}
