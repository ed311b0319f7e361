package s3archive

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
)

// Config holds the bucket settings for the notification archive
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Prefix          string
	Enabled         bool
}

// LoadConfig loads the archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Prefix:          strings.Trim(env.GetEnv("S3_ARCHIVE_PREFIX", "webhooks"), "/"),
		Enabled:         env.GetBool("S3_ARCHIVE_ENABLED", false),
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the S3 archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the S3 archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the S3 archive is enabled")
		}
	}

	return config, nil
}

func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey returns the key of an archived notification.
// Format: <prefix>/<provider>/YYYY/MM/DD/<order>-<unix nanos>.json
func (c *Config) ObjectKey(provider, orderID string, receivedAt time.Time) string {
	t := receivedAt.UTC()
	key := fmt.Sprintf("%s/%04d/%02d/%02d/%s-%d.json", provider, t.Year(), t.Month(), t.Day(), sanitize(orderID), t.UnixNano())
	if c.Prefix == "" {
		return key
	}
	return c.Prefix + "/" + key
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}
