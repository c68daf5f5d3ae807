package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-realtime-nosql/internal/app"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/infrastructure/apigw"
	"github.com/go-realtime-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-realtime-nosql/internal/infrastructure/jwt"
	"github.com/go-realtime-nosql/internal/pkg/log"
	lambdatransport "github.com/go-realtime-nosql/internal/transport/lambda"
)

func main() {
	cfg := config.Load()
	log.Init(log.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "realtime-lambda"})
	logger := log.L()
	ctx := log.WithLogger(context.Background(), logger)

	pusher, err := apigw.NewPusher(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build API Gateway pusher")
	}

	// Connections arriving through a Lambda authorizer do not need a key.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("JWT provider not available, relying on authorizer identity")
		jwtProvider = nil
	}

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build DynamoDB client")
	}

	core := app.NewCore(ctx, cfg, dynamoClient, jwtProvider, pusher)
	h := lambdatransport.NewHandler(core.Sessions, core.Dispatcher, core.Connections, pusher)

	lambda.Start(h.HandleEvent)
}
