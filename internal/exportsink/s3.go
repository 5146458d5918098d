package exportsink

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ecovision/mantaview/internal/errors"
)

// S3Config selects the bucket archives are written to. Credentials come
// from the default AWS chain.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string // optional, e.g. MinIO
	UsePathStyle bool
}

// S3Sink writes archives as objects in one bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink loads the default AWS configuration and returns a sink for cfg.Bucket.
func NewS3Sink(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.Newf("s3 bucket required").
			Component("export").
			Category(errors.CategoryConfiguration).
			Build()
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.New(fmt.Errorf("load aws config: %w", err)).
			Component("export").
			Category(errors.CategoryConfiguration).
			Build()
	}

	opts := append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)

	return &S3Sink{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Kind implements Sink.
func (s *S3Sink) Kind() string { return "s3" }

// Put uploads body as prefix+name.
func (s *S3Sink) Put(ctx context.Context, name string, body io.ReadSeeker, size int64) (Location, error) {
	key := path.Join(s.prefix, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentTypeCSV),
	})
	if err != nil {
		return Location{}, errors.New(fmt.Errorf("put s3 object: %w", err)).
			Component("export").
			Category(errors.CategoryIntegration).
			Context("bucket", s.bucket).
			Context("key", key).
			Build()
	}
	return Location{Sink: s.Kind(), URI: fmt.Sprintf("s3://%s/%s", s.bucket, key), Bytes: size}, nil
}
