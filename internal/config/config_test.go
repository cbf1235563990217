package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv() {
	os.Unsetenv("PORT")
	os.Unsetenv("FFMPEG_PATH")
	os.Unsetenv("FFPROBE_PATH")
	os.Unsetenv("PROBE_TIMEOUT_SEC")
	os.Unsetenv("AUDIO_PROBE_TIMEOUT_SEC")
	os.Unsetenv("CLIP_ENCODE_TIMEOUT_SEC")
	os.Unsetenv("FINAL_ENCODE_TIMEOUT_SEC")
	os.Unsetenv("WORKSPACE_ROOT")
	os.Unsetenv("OUTPUT_DIR")
	os.Unsetenv("MAX_PLAYLIST_ITEMS")
	os.Unsetenv("MIN_OUTPUT_BYTES")
	os.Unsetenv("S3_BUCKET")
	os.Unsetenv("S3_REGION")
	os.Unsetenv("S3_ENDPOINT")
	os.Unsetenv("AWS_ACCESS_KEY_ID")
	os.Unsetenv("AWS_SECRET_ACCESS_KEY")
	os.Unsetenv("LOG_FORMAT")
	os.Unsetenv("LOG_LEVEL")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, 30, cfg.ProbeTimeoutSec)
	assert.Equal(t, 10, cfg.AudioProbeTimeoutSec)
	assert.Equal(t, 300, cfg.ClipEncodeTimeoutSec)
	assert.Equal(t, 600, cfg.FinalEncodeTimeoutSec)
	assert.Equal(t, 5, cfg.MaxPlaylistItems)
	assert.Equal(t, int64(1000), cfg.MinOutputBytes)
	assert.NotEmpty(t, cfg.WorkspaceRoot)
	assert.NotEmpty(t, cfg.OutputDir)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv()
	t.Setenv("PORT", "9090")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("MAX_PLAYLIST_ITEMS", "3")
	t.Setenv("WORKSPACE_ROOT", "/var/tmp/signage")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 3, cfg.MaxPlaylistItems)
	assert.Equal(t, "/var/tmp/signage", cfg.WorkspaceRoot)
	assert.Equal(t, "/var/tmp/signage/outputs", cfg.OutputDir)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("zero max items", func(t *testing.T) {
		clearEnv()
		t.Setenv("MAX_PLAYLIST_ITEMS", "0")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidMaxItems)
	})

	t.Run("zero min output bytes", func(t *testing.T) {
		clearEnv()
		t.Setenv("MIN_OUTPUT_BYTES", "0")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidMinOutputBytes)
	})
}

func TestS3Enabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.S3Enabled())

	cfg.S3Bucket = "signage-media"
	assert.False(t, cfg.S3Enabled())

	cfg.S3Region = "eu-west-1"
	assert.True(t, cfg.S3Enabled())
}

func TestTimeoutAccessors(t *testing.T) {
	cfg := &Config{
		ProbeTimeoutSec:       30,
		AudioProbeTimeoutSec:  10,
		ClipEncodeTimeoutSec:  300,
		FinalEncodeTimeoutSec: 600,
	}

	assert.Equal(t, "30s", cfg.ProbeTimeout().String())
	assert.Equal(t, "10s", cfg.AudioProbeTimeout().String())
	assert.Equal(t, "5m0s", cfg.ClipEncodeTimeout().String())
	assert.Equal(t, "10m0s", cfg.FinalEncodeTimeout().String())
}

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		cfg := &Config{LogFormat: "json", LogLevel: "debug"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("text format default level", func(t *testing.T) {
		cfg := &Config{LogFormat: "text", LogLevel: "nonsense"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		FFmpegPath:         "ffmpeg",
		AWSAccessKeyID:     "AKIA_SECRET",
		AWSSecretAccessKey: "super-secret",
	}

	var buf bytes.Buffer
	buf.WriteString(cfg.String())

	assert.False(t, strings.Contains(buf.String(), "AKIA_SECRET"))
	assert.False(t, strings.Contains(buf.String(), "super-secret"))
}
