package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config application-wide settings
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	AI        AIConfig
	Auth      AuthConfig
	S3        S3Config
	Redis     RedisConfig
	Canvas    CanvasConfig
	Admin     AdminConfig
	Log       LogConfig
}

// RedisConfig Redis presence mirror settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// S3Config AWS S3 settings for stored image files
type S3Config struct {
	Region          string
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	KeyPrefix       string
}

// Configured reports whether uploads should go to S3 instead of inline rows.
func (c S3Config) Configured() bool {
	return c.BucketName != "" && c.AccessKeyID != ""
}

// AuthConfig authentication settings
type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
}

// Required reports whether connections must carry a valid token.
func (c AuthConfig) Required() bool {
	return c.JWTSecret != ""
}

// AIConfig summarizer server settings
type AIConfig struct {
	ServerAddr string
	Enabled    bool
	Timeout    time.Duration
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// WebSocketConfig WebSocket settings
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteTimeout    time.Duration
	SendQueueSize   int
	MaxMessageSize  int64
}

// CORSConfig CORS settings
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// CanvasConfig limits for canvas payloads
type CanvasConfig struct {
	MaxImageSize      int
	MinStrokeDataSize int
	StoreTimeout      time.Duration
}

// AdminConfig operator endpoints
type AdminConfig struct {
	Token string
}

// LogConfig logging output
type LogConfig struct {
	Level  string
	Format string
}

// Load reads settings from the environment
func Load() *Config {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Info().Str("module", "config").Msg("no .env file found, using environment variables")
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "change-this-secret-in-production" {
		log.Fatal().Str("module", "config").Msg("JWT_SECRET must be changed from its default value")
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getInt("WS_READ_BUFFER_SIZE", 16*1024),
			WriteBufferSize: getInt("WS_WRITE_BUFFER_SIZE", 16*1024),
			WriteTimeout:    getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
			SendQueueSize:   getInt("WS_SEND_QUEUE_SIZE", 256),
			MaxMessageSize:  int64(getInt("WS_MAX_MESSAGE_SIZE", 8*1024*1024)),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept, Authorization"),
		},
		AI: AIConfig{
			ServerAddr: getEnv("AI_SERVER_ADDR", "localhost:50051"),
			Enabled:    getBool("AI_ENABLED", false),
			Timeout:    getDuration("AI_TIMEOUT", 20*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			BucketName:      getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			KeyPrefix:       getEnv("AWS_S3_KEY_PREFIX", "canvas/images"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			Enabled:  getBool("REDIS_ENABLED", false),
		},
		Canvas: CanvasConfig{
			MaxImageSize:      getInt("CANVAS_MAX_IMAGE_SIZE", 20*1024*1024),
			MinStrokeDataSize: getInt("CANVAS_MIN_STROKE_DATA", 100),
			StoreTimeout:      getDuration("CANVAS_STORE_TIMEOUT", 10*time.Second),
		},
		Admin: AdminConfig{
			Token: getEnv("ADMIN_TOKEN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

// getEnv string with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt integer with default
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getBool boolean with default
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration duration with default
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// bare numbers are seconds
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
