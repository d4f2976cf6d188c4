package output

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/subreport/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

type S3Options struct {
	Bucket       string
	Prefix       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Mirror uploads copies of the written documents. The client is built on
// first use.
type S3Mirror struct {
	opts   S3Options
	client *s3.Client
}

// NewS3Mirror returns nil when no bucket is configured; a nil mirror
// uploads nothing.
func NewS3Mirror(opts S3Options) *S3Mirror {
	if opts.Bucket == "" {
		return nil
	}
	return &S3Mirror{opts: opts}
}

func (m *S3Mirror) getClient(ctx context.Context) (*s3.Client, error) {
	if m.client != nil {
		return m.client, nil
	}

	optFns := []func(*config.LoadOptions) error{config.WithRegion(m.opts.Region)}
	if m.opts.AccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			m.opts.AccessKey,
			m.opts.SecretKey,
			"",
		)))
	}
	cfg, err := loadDefaultAWSConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}

	m.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if m.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(m.opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return m.client, nil
}

// Key is the object key for a document file name.
func (m *S3Mirror) Key(name string) string {
	return m.opts.Prefix + filepath.Base(name)
}

// Upload puts data under Key(name). Failures wrap common.ErrPersistence.
func (m *S3Mirror) Upload(ctx context.Context, name string, data []byte) error {
	if m == nil {
		return nil
	}

	c, err := m.getClient(ctx)
	if err != nil {
		return fmt.Errorf("%w: s3 config: %w", common.ErrPersistence, err)
	}

	_, err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.opts.Bucket),
		Key:           aws.String(m.Key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 put s3://%s/%s: %w", common.ErrPersistence, m.opts.Bucket, m.Key(name), err)
	}
	return nil
}
