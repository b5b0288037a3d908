package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
)

// MinioStore fala com qualquer endpoint compatível com S3 (MinIO local, por exemplo).
type MinioStore struct {
	client    *minio.Client
	bucket    string
	hasAccess bool
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create minio client for %s", endpoint)
	}

	return &MinioStore{
		client:    client,
		bucket:    bucket,
		hasAccess: accessKey != "" && secretKey != "",
	}, nil
}

// EnsureBucket cria o bucket quando ele ainda não existe.
func (m *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return eris.Wrapf(err, "failed to check bucket %s", m.bucket)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return eris.Wrapf(err, "failed to create bucket %s", m.bucket)
	}
	return nil
}

func (m *MinioStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if !m.hasAccess {
		return eris.Wrap(ErrMissingCredentials, "minio access key not configured")
	}

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return eris.Wrapf(err, "failed to put %s/%s", m.bucket, key)
	}
	return nil
}

func (m *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	if !m.hasAccess {
		return nil, eris.Wrap(ErrMissingCredentials, "minio access key not configured")
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to get %s/%s", m.bucket, key)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, eris.Wrapf(ErrNotFound, "%s/%s", m.bucket, key)
		}
		return nil, eris.Wrapf(err, "failed to read %s/%s", m.bucket, key)
	}
	return body, nil
}
