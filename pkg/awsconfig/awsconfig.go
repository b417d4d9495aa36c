// Package awsconfig loads the shared AWS SDK configuration used by the DynamoDB
// registry and the API Gateway push channel.
package awsconfig

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

var ErrFailedToLoadConfig = errors.New("awsconfig: failed to load aws configuration")

// Config holds region and optional static credentials.
// Empty credentials fall back to the default provider chain (env, shared files, IAM role).
type Config struct {
	Region      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Option adds a raw SDK load option.
type Option = func(*config.LoadOptions) error

// WithHTTPClient overrides the SDK HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return config.WithHTTPClient(client)
}

// Load resolves an aws.Config from cfg.
func Load(ctx context.Context, cfg Config, opts ...Option) (aws.Config, error) {
	loadOpts := []Option{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	loadOpts = append(loadOpts, opts...)

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, errors.Join(ErrFailedToLoadConfig, err)
	}
	return awsCfg, nil
}
