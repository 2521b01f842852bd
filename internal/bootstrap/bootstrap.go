// Package bootstrap wires configuration into the provider registry, the
// artifact pipeline and the job orchestrator.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/apiclient"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/artifact"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/config"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/fal"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/grok"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/job"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/luma"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/media"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/project"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/replicate"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/sora"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Registry *generator.Registry
	Projects *project.Manager
	Resolver *project.Resolver
	Service  *job.Service
}

// NewDependencies creates and initializes all dependencies for the
// application. Unit workflows run under ctx; cancelling it aborts them.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry, err := generator.Build(catalog, cfg.Credential, NewAdapterFactory(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	if registry.Len() == 0 {
		logger.Warn("no provider credentials configured; generation is unavailable")
	}
	for _, d := range registry.List() {
		logger.Info("provider available",
			slog.String("provider", d.ID),
			slog.String("model", d.Model),
		)
	}

	projects := project.NewManager(cfg.ProjectsDir, cfg.DefaultProject, logger)
	if _, err := projects.EnsureDefault(); err != nil {
		return nil, fmt.Errorf("ensure default project: %w", err)
	}
	resolver := project.NewResolver(cfg.ProjectsDir)

	processor := media.NewFFmpegProcessor(cfg.FFmpegPath).WithFFprobePath(cfg.FFprobePath)
	materializer := artifact.New(processor,
		artifact.WithHTTPClient(&http.Client{Timeout: cfg.DownloadTimeout}),
		artifact.WithLogger(logger),
	)

	opts := []job.ServiceOption{
		job.WithBaseContext(ctx),
		job.WithMaxInFlight(cfg.MaxInFlightUnits),
	}
	mirror, err := initMirror(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if mirror != nil {
		opts = append(opts, job.WithMirror(mirror))
	}

	svc := job.NewService(job.NewMemoryStore(), registry, materializer, resolver, logger, opts...)

	return &Dependencies{
		Registry: registry,
		Projects: projects,
		Resolver: resolver,
		Service:  svc,
	}, nil
}

// NewAdapterFactory returns the function generator.Build uses to create
// an adapter for a descriptor, keyed on its credential requirement.
func NewAdapterFactory(cfg *config.Config) func(generator.Descriptor, string) (generator.Adapter, error) {
	clientOpts := []apiclient.Option{
		apiclient.WithMaxRetries(cfg.ProviderMaxRetries),
		apiclient.WithBaseBackoff(cfg.ProviderBaseBackoff),
		apiclient.WithPollInterval(cfg.ProviderPollInterval),
		apiclient.WithPollTimeout(cfg.ProviderPollTimeout),
	}

	return func(d generator.Descriptor, secret string) (generator.Adapter, error) {
		switch d.CredentialKey {
		case generator.CredentialXAI:
			return grok.New(secret, d.Model, clientOpts...)
		case generator.CredentialReplicate:
			return replicate.New(secret, d.Model, clientOpts...)
		case generator.CredentialFAL:
			return fal.New(secret, d.Model, clientOpts...)
		case generator.CredentialLuma:
			return luma.New(secret, d.Model, clientOpts...)
		case generator.CredentialOpenAI:
			return sora.New(secret, d.Model, clientOpts...)
		default:
			return nil, fmt.Errorf("no adapter for credential %q", d.CredentialKey)
		}
	}
}

func loadCatalog(cfg *config.Config, logger *slog.Logger) ([]generator.Descriptor, error) {
	if cfg.ProviderCatalogFile == "" {
		return generator.DefaultCatalog(), nil
	}
	catalog, err := generator.LoadCatalog(cfg.ProviderCatalogFile)
	if err != nil {
		return nil, err
	}
	logger.Info("provider catalog loaded",
		slog.String("file", cfg.ProviderCatalogFile),
		slog.Int("providers", len(catalog)),
	)
	return catalog, nil
}

// initMirror creates the configured mirror backend, or nil when none is set.
func initMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) (job.Mirror, error) {
	switch {
	case cfg.S3Enabled():
		m, err := storage.NewS3Mirror(ctx, cfg.ProjectsDir, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 mirror: %w", err)
		}
		logger.Info("S3 mirror configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return m, nil
	case cfg.MinIOEnabled():
		m, err := storage.NewMinIOMirror(cfg.ProjectsDir, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create MinIO mirror: %w", err)
		}
		logger.Info("MinIO mirror configured",
			slog.String("endpoint", cfg.MinIOEndpoint),
			slog.String("bucket", cfg.MinIOBucket),
		)
		return m, nil
	default:
		return nil, nil
	}
}
