// Package reliability provides database maintenance and off-site backups of
// the run history.
package reliability

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3ClientConfig holds bucket location and credentials. When AccessKeyID is
// empty, the standard AWS environment/config chain is used instead. Endpoint
// supports S3-compatible stores (MinIO, R2).
type S3ClientConfig struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Client wraps the S3 operations the backup service needs.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Client creates an S3 client for the given bucket and key prefix.
func NewS3Client(ctx context.Context, cfg S3ClientConfig, log zerolog.Logger) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup bucket must be non-empty")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		log:      log.With().Str("component", "s3_client").Logger(),
	}, nil
}

var _ ObjectStore = (*S3Client)(nil)

func (c *S3Client) key(name string) string {
	if c.prefix == "" {
		return name
	}
	return path.Join(c.prefix, name)
}

// Upload streams an object to the bucket.
func (c *S3Client) Upload(ctx context.Context, name string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	c.log.Debug().Str("key", c.key(name)).Msg("Uploaded object")
	return nil
}

// List returns the objects under the prefix whose names start with namePrefix.
func (c *S3Client) List(ctx context.Context, namePrefix string) ([]s3types.Object, error) {
	var objects []s3types.Object

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.key(namePrefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		objects = append(objects, page.Contents...)
	}
	return objects, nil
}

// Delete removes an object from the bucket.
func (c *S3Client) Delete(ctx context.Context, name string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
