package apigw

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PostToConnection(ctx context.Context, in *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	args := m.Called(ctx, in)
	return &apigatewaymanagementapi.PostToConnectionOutput{}, args.Error(0)
}

func TestPush_Success(t *testing.T) {
	api := new(mockAPI)
	api.On("PostToConnection", mock.Anything, mock.MatchedBy(func(in *apigatewaymanagementapi.PostToConnectionInput) bool {
		return *in.ConnectionId == "c1" && string(in.Data) == `{"a":1}`
	})).Return(nil)

	p := &Pusher{api: api}
	require.NoError(t, p.Push(context.Background(), "c1", []byte(`{"a":1}`)))
	api.AssertExpectations(t)
}

func TestPush_GoneMapsToErrGone(t *testing.T) {
	api := new(mockAPI)
	api.On("PostToConnection", mock.Anything, mock.Anything).Return(&types.GoneException{Message: new(string)})

	p := &Pusher{api: api}
	err := p.Push(context.Background(), "c1", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrGone)
}

func TestPush_OtherErrorsPassThrough(t *testing.T) {
	api := new(mockAPI)
	api.On("PostToConnection", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	p := &Pusher{api: api}
	err := p.Push(context.Background(), "c1", []byte("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrGone)
	assert.ErrorContains(t, err, "throttled")
}
