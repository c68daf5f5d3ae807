package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort            string
	AppEnv             string
	LogLevel           string
	LogPretty          bool
	AWSRegion          string
	AWSEndpointURL     string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID     string
	AWSSecretKey       string
	DynamoTables       DynamoTables
	JWTPublicKeyPath   string
	AllowedOrigins     []string // CORS allowed origins
	WebSocket          WebSocket
	FanoutConcurrency  int
	ConnectionTTL      time.Duration
	APIGatewayEndpoint string // https://{api-id}.execute-api.{region}.amazonaws.com/{stage}
	SNSRegion          string
	SNSOfflineTopicARN string // empty disables the offline notification fallback
}

// DynamoTables holds the DynamoDB table names.
type DynamoTables struct {
	Connections string
	Chat        string // messages, unread markers and room membership (single-table)
}

// WebSocket holds the local transport tuning knobs.
type WebSocket struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	MessageRate    float64 // inbound actions per second per connection
	MessageBurst   int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvBool("LOG_PRETTY", false),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Connections: getEnv("DYNAMO_TABLE_CONNECTIONS", "connections"),
			Chat:        getEnv("DYNAMO_TABLE_CHAT", "chat"),
		},
		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		WebSocket: WebSocket{
			WriteWait:      getEnvDuration("WS_WRITE_WAIT", 10*time.Second),
			PongWait:       getEnvDuration("WS_PONG_WAIT", 60*time.Second),
			PingInterval:   getEnvDuration("WS_PING_INTERVAL", 54*time.Second),
			MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 64*1024)),
			SendBuffer:     getEnvInt("WS_SEND_BUFFER", 256),
			MessageRate:    getEnvFloat("WS_MESSAGE_RATE", 10),
			MessageBurst:   getEnvInt("WS_MESSAGE_BURST", 20),
		},
		FanoutConcurrency:  getEnvInt("FANOUT_CONCURRENCY", 50),
		ConnectionTTL:      getEnvDuration("CONNECTION_TTL", 24*time.Hour),
		APIGatewayEndpoint: getEnv("APIGW_ENDPOINT", ""),
		SNSRegion:          getEnv("SNS_REGION", "us-east-1"),
		SNSOfflineTopicARN: getEnv("SNS_OFFLINE_TOPIC_ARN", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "2h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
