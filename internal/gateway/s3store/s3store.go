// Package s3store implements gateway.Storage on S3 (or any S3-compatible
// endpoint such as localstack or minio).
package s3store

import (
	"context"
	"io"
	"time"

	"itsaportal/internal/gateway"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the part of the S3 client used for uploads.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Store struct {
	api     ObjectAPI
	presign Presigner
}

func New(api ObjectAPI, presign Presigner) *Store {
	return &Store{api: api, presign: presign}
}

// Load builds a Store from the default AWS config chain. A non-empty endpoint
// switches to path-style addressing against that URL.
func Load(ctx context.Context, region, endpoint string) (*Store, error) {
	cfg, err := awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, s3.NewPresignClient(client)), nil
}

func (s *Store) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
		Body:   body,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	_, err := s.api.PutObject(ctx, in)
	return gateway.Wrap("storage upload", err)
}

func (s *Store) SignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", gateway.Wrap("storage sign", err)
	}
	return req.URL, nil
}
