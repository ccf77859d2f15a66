package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies an empty environment yields the documented defaults.
func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "JWT_SECRET", "AWS_S3_BUCKET", "AWS_ACCESS_KEY_ID", "REDIS_ENABLED", "AI_ENABLED", "CANVAS_MIN_STROKE_DATA", "CANVAS_MAX_IMAGE_SIZE", "ADMIN_TOKEN"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Canvas.MinStrokeDataSize)
	assert.Equal(t, 20*1024*1024, cfg.Canvas.MaxImageSize)
	assert.Equal(t, 10*time.Second, cfg.Canvas.StoreTimeout)
	assert.False(t, cfg.Auth.Required())
	assert.False(t, cfg.S3.Configured())
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.AI.Enabled)
	assert.Empty(t, cfg.Admin.Token)
}

// TestLoadOverrides verifies environment values win and parse correctly.
func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AWS_S3_BUCKET", "bucket")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("REDIS_ENABLED", "yes")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AI_TIMEOUT", "45")
	t.Setenv("CANVAS_STORE_TIMEOUT", "1500ms")
	t.Setenv("CANVAS_MIN_STROKE_DATA", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.True(t, cfg.Auth.Required())
	assert.True(t, cfg.S3.Configured())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Canvas.StoreTimeout)
	assert.Equal(t, 100, cfg.Canvas.MinStrokeDataSize)
}

// TestGetDuration covers bare seconds, Go durations and garbage.
func TestGetDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"30", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"soon", 7 * time.Second},
		{"", 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getDuration("TEST_DURATION", 7*time.Second))
		})
	}
}

// TestSetupLogging verifies the json format and level parsing.
func TestSetupLogging(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	setupLogging(LogConfig{Level: "WARN", Format: "json"}, &buf)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Str("module", "config").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "config", entry["module"])

	setupLogging(LogConfig{Level: "nonsense"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
