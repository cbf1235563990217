// Package bootstrap provides dependency initialization for the signage engine.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/pixelboard/signage-engine/internal/compose"
	"github.com/pixelboard/signage-engine/internal/config"
	"github.com/pixelboard/signage-engine/internal/job"
	"github.com/pixelboard/signage-engine/internal/media"
	"github.com/pixelboard/signage-engine/internal/storage"
	"github.com/pixelboard/signage-engine/internal/transcode"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ComposeService *job.ComposeService
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := transcode.NewRunner(cfg.FFmpegPath)
	prober := transcode.NewFFprobe(cfg.FFprobePath,
		transcode.WithProbeTimeout(cfg.ProbeTimeout()),
		transcode.WithAudioProbeTimeout(cfg.AudioProbeTimeout()),
	)

	normalizer := media.NewNormalizer(runner, prober, logger,
		media.WithWorkspaceRoot(cfg.WorkspaceRoot),
		media.WithEncodeTimeout(cfg.FinalEncodeTimeout()),
		media.WithFallbackTimeout(cfg.ClipEncodeTimeout()),
		media.WithMinOutputBytes(cfg.MinOutputBytes),
	)

	enforcer := compose.NewEnforcer(runner, prober, logger,
		compose.WithClipEncodeTimeout(cfg.ClipEncodeTimeout()),
	)
	composer := compose.NewComposer(enforcer, runner, logger,
		compose.WithComposerWorkspaceRoot(cfg.WorkspaceRoot),
		compose.WithConcatTimeout(cfg.ClipEncodeTimeout()),
		compose.WithFinishTimeout(cfg.FinalEncodeTimeout()),
		compose.WithComposerMinOutputBytes(cfg.MinOutputBytes),
	)

	repo := job.NewMemoryRepository()

	svc := job.NewComposeService(
		repo,
		normalizer,
		composer,
		store,
		logger,
		job.WithMaxItems(cfg.MaxPlaylistItems),
	)

	return &Dependencies{
		ComposeService: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.OutputDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return localStore, nil
}
