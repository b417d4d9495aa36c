// Package dynamo builds the DynamoDB client for the connection registry.
package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dmitrymomot/notifyhub/pkg/awsconfig"
)

var ErrHealthcheckFailed = errors.New("dynamo: healthcheck failed")

// Config points the client at AWS or a local endpoint such as DynamoDB Local.
type Config struct {
	Endpoint string `env:"DYNAMODB_ENDPOINT"` // Endpoint overrides the regional endpoint when set.
}

// New creates a DynamoDB client from the shared AWS configuration.
func New(ctx context.Context, awsCfg awsconfig.Config, cfg Config, opts ...awsconfig.Option) (*dynamodb.Client, error) {
	sdkCfg, err := awsconfig.Load(ctx, awsCfg, opts...)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(sdkCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// TableDescriber is satisfied by *dynamodb.Client.
type TableDescriber interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Healthcheck returns a readiness probe that describes table.
func Healthcheck(client TableDescriber, table string) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
