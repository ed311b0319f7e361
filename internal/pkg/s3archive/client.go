package s3archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"
)

// ObjectAPI is the part of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Client stores raw gateway notifications in an S3 bucket
type Client struct {
	api    ObjectAPI
	config *Config
}

// NewClient creates an archive client and checks that the bucket is reachable
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("S3 archive is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible providers (B2, MinIO) need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	if err := ensureBucket(ctx, s3Client, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Infof("[S3Archive] Successfully initialized S3 client for bucket: %s", cfg.BucketName)
	return &Client{api: s3Client, config: cfg}, nil
}

// NewClientWithAPI builds a client on top of an existing S3 API implementation.
func NewClientWithAPI(api ObjectAPI, cfg *Config) *Client {
	return &Client{api: api, config: cfg}
}

// ensureBucket checks the bucket and creates it outside production
func ensureBucket(ctx context.Context, s3Client *s3.Client, cfg *Config) error {
	_, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)})
	if err == nil {
		return nil
	}
	if GetAppEnv() == "prod" {
		return fmt.Errorf("bucket %s not accessible: %w", cfg.BucketName, err)
	}

	log.Warnf("[S3Archive] Bucket %s not found, attempting to create it", cfg.BucketName)
	input := &s3.CreateBucketInput{Bucket: aws.String(cfg.BucketName)}
	// us-east-1 and custom endpoints reject a location constraint
	if cfg.EndpointURL == "" && cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(cfg.Region),
		}
	}
	if _, err := s3Client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", cfg.BucketName, err)
	}
	log.Infof("[S3Archive] Successfully created bucket: %s", cfg.BucketName)
	return nil
}

// Put uploads one archived notification
func (c *Client) Put(ctx context.Context, objectKey string, body []byte, metadata map[string]string) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", c.config.BucketName, objectKey, err)
	}
	log.Debugf("[S3Archive] Stored s3://%s/%s (%d bytes)", c.config.BucketName, objectKey, len(body))
	return nil
}

// Get reads an archived notification back
func (c *Client) Get(ctx context.Context, objectKey string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", c.config.BucketName, objectKey, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Exists checks if an object exists in the bucket
func (c *Client) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// ObjectKey returns the key an archived notification is stored under
func (c *Client) ObjectKey(provider, orderID string, receivedAt time.Time) string {
	return c.config.ObjectKey(provider, orderID, receivedAt)
}
