package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rotisserie/eris"
)

// S3API é o subconjunto do client do SDK usado aqui, para permitir mocks.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

type S3Store struct {
	api         S3API
	bucket      string
	credentials aws.CredentialsProvider
}

// NewS3Store cria o store a partir de uma aws.Config já carregada.
// endpointURL vazio usa o endpoint padrão da AWS; preenchido (LocalStack) força path-style.
func NewS3Store(cfg aws.Config, bucket, endpointURL string) *S3Store {
	var opts []func(*s3.Options)
	if endpointURL != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		api:         s3.NewFromConfig(cfg, opts...),
		bucket:      bucket,
		credentials: cfg.Credentials,
	}
}

// NewS3StoreWithAPI é usado nos testes com um S3API falso.
func NewS3StoreWithAPI(api S3API, bucket string, credentials aws.CredentialsProvider) *S3Store {
	return &S3Store{api: api, bucket: bucket, credentials: credentials}
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := s.checkCredentials(ctx); err != nil {
		return err
	}

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return eris.Wrapf(err, "failed to put s3://%s/%s", s.bucket, key)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkCredentials(ctx); err != nil {
		return nil, err
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, eris.Wrapf(ErrNotFound, "s3://%s/%s", s.bucket, key)
		}
		return nil, eris.Wrapf(err, "failed to get s3://%s/%s", s.bucket, key)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read s3://%s/%s", s.bucket, key)
	}
	return body, nil
}

func (s *S3Store) checkCredentials(ctx context.Context) error {
	if s.credentials == nil {
		return eris.Wrap(ErrMissingCredentials, "no aws credentials provider")
	}
	if _, err := s.credentials.Retrieve(ctx); err != nil {
		return eris.Wrapf(ErrMissingCredentials, "aws credentials: %v", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound"
	}
	return false
}
