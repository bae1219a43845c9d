package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lostfound-api/internal/application/identity"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/infrastructure/google"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
	"github.com/lostfound-api/internal/infrastructure/localfs"
	"github.com/lostfound-api/internal/infrastructure/memcache"
	s3infra "github.com/lostfound-api/internal/infrastructure/s3"
	"github.com/lostfound-api/internal/infrastructure/smtp"
	"github.com/lostfound-api/internal/infrastructure/sns"
	"github.com/lostfound-api/internal/store"
	transporthttp "github.com/lostfound-api/internal/transport/http"
	"github.com/lostfound-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}
	cfg := config.Load()
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer stores.Close()

	deps, err := buildDeps(ctx, cfg, stores)
	if err != nil {
		return err
	}
	// 5 requests/second, burst of 10, on the public auth endpoints.
	deps.AuthLimiter = middleware.NewRateLimiter(rate.Limit(5), 10)
	defer deps.AuthLimiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func buildDeps(ctx context.Context, cfg *config.Config, stores *store.Set) (*transporthttp.Deps, error) {
	signer, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("jwt provider: %w", err)
	}

	images, uploadDir, err := imageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var hosted *jwtinfra.HostedVerifier
	if cfg.HostedAuthJWTSecret != "" {
		hosted = jwtinfra.NewHostedVerifier(cfg.HostedAuthJWTSecret)
	}
	var gv *google.Verifier
	if cfg.GoogleClientID != "" {
		gv = google.NewVerifier(cfg.GoogleClientID)
	}

	deps := &transporthttp.Deps{
		Users:         stores.Users,
		Items:         stores.Items,
		Claims:        stores.Claims,
		Notifications: stores.Notifications,
		Locations:     stores.Locations,
		Messages:      stores.Messages,
		Images:        images,
		Categories:    memcache.NewCategories(cfg.CategoryCacheTTL),
		Signer:        signer,
		Identity: identity.NewResolver(
			identity.NewHosted(hosted, stores.Users),
			identity.NewGoogle(gv, stores.Users),
			identity.NewLocal(signer),
		),
		UploadDir:       uploadDir,
		UploadURLPrefix: cfg.UploadURLPrefix,
	}
	if gv != nil {
		deps.Google = gv
	}

	if d := deliverer(ctx, cfg, stores); d != nil {
		deps.Dispatcher = d
	}
	return deps, nil
}

// imageStore returns the configured image backend and, for local disk, the
// directory the router should serve.
func imageStore(ctx context.Context, cfg *config.Config) (item.ImageStore, string, error) {
	if cfg.ImageStore == config.ImageStoreS3 {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("s3 client: %w", err)
		}
		return s3infra.NewStore(client, cfg), "", nil
	}
	fs, err := localfs.New(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		return nil, "", err
	}
	return fs, fs.Dir(), nil
}

// deliverer forwards notifications by email and SMS when either is enabled.
func deliverer(ctx context.Context, cfg *config.Config, stores *store.Set) *notification.Deliverer {
	if !cfg.NotifyEmail && !cfg.NotifySMS {
		return nil
	}
	deps := notification.DelivererDeps{Users: stores.Users}
	if cfg.NotifyEmail {
		deps.Mailer = smtp.NewMailer(cfg)
	}
	if cfg.NotifySMS {
		sender, err := sns.NewSender(ctx, cfg)
		if err != nil {
			slog.Warn("SNS sender not available, SMS delivery disabled", "err", err)
		} else {
			deps.SMS = sender
		}
	}
	return notification.NewDeliverer(deps)
}
