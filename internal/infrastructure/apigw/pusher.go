package apigw

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/infrastructure/awsconf"
)

// managementAPI is the subset of the management API client used here.
type managementAPI interface {
	PostToConnection(ctx context.Context, in *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// Pusher delivers frames to API Gateway WebSocket connections.
type Pusher struct {
	api managementAPI
}

// NewPusher builds a pusher for the stage callback URL
// (https://{api-id}.execute-api.{region}.amazonaws.com/{stage}).
func NewPusher(ctx context.Context, cfg *config.Config) (*Pusher, error) {
	if cfg.APIGatewayEndpoint == "" {
		return nil, errors.New("APIGW_ENDPOINT is required")
	}
	awsCfg, err := awsconf.Load(ctx, cfg, "")
	if err != nil {
		return nil, err
	}
	client := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(cfg.APIGatewayEndpoint)
	})
	return &Pusher{api: client}, nil
}

// Push posts data to one connection. A connection API Gateway no longer knows
// yields domain.ErrGone.
func (p *Pusher) Push(ctx context.Context, connectionID string, data []byte) error {
	_, err := p.api.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         data,
	})
	return mapErr(connectionID, err)
}

func mapErr(connectionID string, err error) error {
	if err == nil {
		return nil
	}
	var gone *types.GoneException
	if errors.As(err, &gone) {
		return fmt.Errorf("connection %s: %w", connectionID, domain.ErrGone)
	}
	return fmt.Errorf("post to connection %s: %w", connectionID, err)
}
