package report

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	vberrors "github.com/vango-dev/bindery/internal/errors"
)

// PutObjectAPI is the part of *s3.Client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads reports to a bucket.
//
// Example usage:
//
//	client, err := report.NewS3Client(ctx, report.S3Options{Region: "us-east-1"})
//	store := report.NewS3Store(client, "my-bucket", "runs/")
//	key, err := store.Upload(ctx, rep)
type S3Store struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Store creates a store writing under prefix in bucket.
func NewS3Store(client PutObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Key returns the object key for a report finished at t.
func (s *S3Store) Key(t time.Time) string {
	return s.prefix + "run-" + t.UTC().Format("20060102T150405.000Z") + ".json"
}

// Upload stores rep and returns its key.
func (s *S3Store) Upload(ctx context.Context, rep *Report) (string, error) {
	data, err := rep.Marshal()
	if err != nil {
		return "", vberrors.New("X001").Wrap(err)
	}

	finished := rep.Finished
	if finished.IsZero() {
		finished = s.now()
	}
	key := s.Key(finished)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"frames":      strconv.Itoa(rep.Frames),
			"upload-time": s.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", vberrors.New("X001").
			WithDetail("bucket " + s.bucket + ", key " + key).
			Wrap(err)
	}
	return key, nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	// Region overrides the region resolved from the AWS environment and
	// shared config files.
	Region string

	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string
}

// NewS3Client creates an S3 client from the default AWS configuration
// chain: environment, shared config and credentials files, SSO and
// instance roles.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, vberrors.New("X001").WithDetail("loading AWS configuration").Wrap(err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
