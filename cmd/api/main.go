package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-realtime-nosql/internal/app"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-realtime-nosql/internal/infrastructure/jwt"
	"github.com/go-realtime-nosql/internal/pkg/log"
	transporthttp "github.com/go-realtime-nosql/internal/transport/http"
	"github.com/go-realtime-nosql/internal/transport/http/middleware"
	"github.com/go-realtime-nosql/internal/transport/ws"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log.Init(log.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "realtime-api"})
	logger := log.L()
	if envErr != nil {
		logger.Info().Msg("no .env file found, reading from environment")
	}
	ctx := log.WithLogger(context.Background(), logger)

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build DynamoDB client")
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// Without a public key every socket and protected route is rejected.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("JWT provider not available")
		jwtProvider = nil
	}

	hub := ws.NewHub()
	core := app.NewCore(ctx, cfg, dynamoClient, jwtProvider, hub)
	wsHandler := ws.NewHandler(hub, core.Sessions, core.Dispatcher, cfg.WebSocket, cfg.AllowedOrigins, middleware.BearerToken)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		JWTProvider:   jwtProvider,
		Unread:        core.Unread,
		Notifications: core.Notifications,
		WebSocket:     wsHandler,
		Connections:   hub,
	})

	// No WriteTimeout: upgraded sockets outlive any per-request deadline.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.AppEnv).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int("connections", hub.Count()).Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked connections are not tracked by Shutdown; close them explicitly so
	// every read loop runs its disconnect cleanup.
	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}
