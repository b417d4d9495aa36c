// Package push delivers notification frames through the AWS API Gateway
// WebSocket management API.
package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/notifyhub/pkg/awsconfig"
	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

var ErrEndpointRequired = errors.New("push: websocket api endpoint is required")

// Config names the deployed WebSocket API stage.
type Config struct {
	Endpoint string `env:"WEBSOCKET_API_ENDPOINT"` // Endpoint is https://{api-id}.execute-api.{region}.amazonaws.com/{stage}.
}

// PostToConnectionAPI is the subset of the management client used by APIGateway.
type PostToConnectionAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// APIGateway is a fanout.PushChannel backed by PostToConnection.
type APIGateway struct {
	client PostToConnectionAPI
}

// NewAPIGateway wraps an existing management client.
func NewAPIGateway(client PostToConnectionAPI) *APIGateway {
	return &APIGateway{client: client}
}

// NewAPIGatewayFromConfig builds the management client for cfg.Endpoint.
func NewAPIGatewayFromConfig(ctx context.Context, awsCfg awsconfig.Config, cfg Config, opts ...awsconfig.Option) (*APIGateway, error) {
	if cfg.Endpoint == "" {
		return nil, ErrEndpointRequired
	}
	sdkCfg, err := awsconfig.Load(ctx, awsCfg, opts...)
	if err != nil {
		return nil, err
	}
	client := apigatewaymanagementapi.NewFromConfig(sdkCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})
	return NewAPIGateway(client), nil
}

// Push posts payload to the connection. A GoneException maps to fanout.ErrGone.
func (g *APIGateway) Push(ctx context.Context, connectionID string, payload []byte) error {
	_, err := g.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err == nil {
		return nil
	}
	if isGone(err) {
		return fmt.Errorf("%w: %s", fanout.ErrGone, connectionID)
	}
	return fmt.Errorf("push: post to connection %s: %w", connectionID, err)
}

func isGone(err error) bool {
	var gone *types.GoneException
	if errors.As(err, &gone) {
		return true
	}
	// Some SDK paths surface the modeled error only through its code.
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "GoneException"
}
