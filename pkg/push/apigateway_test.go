package push_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/notifyhub/pkg/awsconfig"
	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/push"
)

type mockManagementAPI struct {
	mock.Mock
}

func (m *mockManagementAPI) PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	args := m.Called(ctx, aws.ToString(params.ConnectionId), string(params.Data))
	return &apigatewaymanagementapi.PostToConnectionOutput{}, args.Error(0)
}

func TestAPIGateway_Push(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantErr  bool
		wantGone bool
	}{
		{name: "delivered"},
		{name: "gone exception", err: &types.GoneException{Message: aws.String("gone")}, wantErr: true, wantGone: true},
		{name: "gone by error code", err: &smithy.GenericAPIError{Code: "GoneException"}, wantErr: true, wantGone: true},
		{name: "throttled", err: &types.LimitExceededException{Message: aws.String("slow down")}, wantErr: true},
		{name: "network", err: errors.New("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &mockManagementAPI{}
			client.On("PostToConnection", mock.Anything, "conn-1", `{"type":"NOTIFICATION"}`).Return(tt.err).Once()

			err := push.NewAPIGateway(client).Push(context.Background(), "conn-1", []byte(`{"type":"NOTIFICATION"}`))
			if !tt.wantErr {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, tt.wantGone, errors.Is(err, fanout.ErrGone))
			}
			client.AssertExpectations(t)
		})
	}
}

func TestNewAPIGatewayFromConfig_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := push.NewAPIGatewayFromConfig(context.Background(), awsconfig.Config{Region: "us-east-1"}, push.Config{})
	assert.ErrorIs(t, err, push.ErrEndpointRequired)
}
