// Command provisiond serves bulk and single-device provisioning
// artifact generation: handset config files, credential workbooks and
// one-shot downloadable archives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sikt-tools/provgen/internal/platform/auth"
	"github.com/sikt-tools/provgen/internal/platform/config"
	"github.com/sikt-tools/provgen/internal/platform/httpserver"
	"github.com/sikt-tools/provgen/internal/platform/objectstore"
	"github.com/sikt-tools/provgen/internal/provision"
)

const service = "provisiond"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("service exited", "service", service, "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("PROVGEN_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, checks, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	runner := &provision.Runner{
		Logger:         logger,
		Store:          store,
		WorkDir:        cfg.WorkDir,
		PasswordLength: cfg.PasswordLength,
		Workbook: provision.WorkbookOptions{
			TemplatePath:  cfg.Workbook.TemplatePath,
			TemplateSheet: cfg.Workbook.TemplateSheet,
		},
	}

	authenticator, err := buildAuthenticator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(service))
	mux.HandleFunc("GET /readyz", httpserver.Readyz(service, checks...))
	newProvisionAPI(logger, runner, store).register(mux)

	guard := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		SkipPrefixes:  []string{"/healthz", "/readyz"},
	}
	handler := httpserver.Wrap(logger, service, guard.Wrap(mux))

	return httpserver.Run(ctx, logger, httpserver.Config{
		Service:         service,
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, handler)
}

func buildStore(ctx context.Context, cfg config.Config) (provision.ArchiveStore, []httpserver.ReadinessCheck, error) {
	switch cfg.Store.Backend {
	case config.StoreFS:
		store, err := provision.NewFSStore(cfg.ArchiveDir)
		if err != nil {
			return nil, nil, fmt.Errorf("fs store: %w", err)
		}
		return store, nil, nil
	case config.StoreS3:
		client, err := objectstore.NewClient(cfg.Store.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 store: %w", err)
		}
		if err := objectstore.EnsureBucket(ctx, client, cfg.Store.S3); err != nil {
			return nil, nil, fmt.Errorf("s3 store: %w", err)
		}
		check := httpserver.ReadinessCheck{
			Name: "archive-bucket",
			Check: func(ctx context.Context) error {
				return objectstore.CheckBucket(ctx, client, cfg.Store.S3)
			},
		}
		return provision.NewS3Store(client, cfg.Store.S3.Bucket), []httpserver.ReadinessCheck{check}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func buildAuthenticator(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Authenticator, error) {
	if cfg.Auth.Mode != auth.ModeOIDC {
		logger.Warn("authentication disabled", "service", service)
		return nil, nil
	}
	authenticator, err := auth.NewOIDCAuthenticator(ctx, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("oidc authenticator: %w", err)
	}
	logger.Info("oidc authentication enabled", "issuer", cfg.Auth.IssuerURL)
	return authenticator, nil
}
