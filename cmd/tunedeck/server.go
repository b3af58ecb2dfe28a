package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"tunedeck/internal/app/playlists"
	"tunedeck/internal/app/tracks"
	"tunedeck/internal/app/users"
	"tunedeck/internal/auth"
	"tunedeck/internal/config"
	"tunedeck/internal/filestore"
	"tunedeck/internal/http/middleware"
	"tunedeck/internal/httpapi"
	"tunedeck/internal/logging"
	"tunedeck/internal/store"
	"tunedeck/migrations"
)

const (
	flagMigrate = "migrate"
	flagDemo    = "demo"
)

// backend is satisfied by both the Postgres and the JSON-file stores.
type backend interface {
	users.Store
	tracks.Store
	playlists.Store
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the REST service",
		Action: serve,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagMigrate,
				Usage: "Apply pending migrations before serving (postgres driver only)",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  flagDemo,
				Usage: "Ensure a demo account exists",
			},
		},
	}
}

func serve(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stdout})
	logging.SetGlobalLogger(logger)

	data, closeBackend, err := openBackend(ctx, cfg, c.Bool(flagMigrate), logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	if c.Bool(flagDemo) {
		if err := ensureDemoUser(ctx, data); err != nil {
			return err
		}
	}

	handler, err := newHTTPHandler(cfg, data)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("storage", cfg.Storage.Driver).Msg("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBackend(ctx context.Context, cfg *config.Config, migrate bool, logger zerolog.Logger) (backend, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := migrations.Run(db, migrations.Up); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		dataStore := store.New(db)
		if err := seedTracks(ctx, dataStore, cfg.Storage.DataDir, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return dataStore, func() { _ = db.Close() }, nil
	default:
		fileStore, err := filestore.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		nTracks, nUsers, nPlaylists := fileStore.Counts()
		logger.Info().
			Str("dir", cfg.Storage.DataDir).
			Int("tracks", nTracks).
			Int("users", nUsers).
			Int("playlists", nPlaylists).
			Msg("Loaded flat-file data")
		return fileStore, func() {}, nil
	}
}

func newHTTPHandler(cfg *config.Config, data backend) (http.Handler, error) {
	origins, err := regexp.Compile(cfg.CORS.OriginPattern)
	if err != nil {
		return nil, fmt.Errorf("compile CORS origin pattern: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	api := httpapi.New(
		users.New(data, tokens),
		tracks.New(data),
		playlists.New(data),
		httpapi.Options{
			AudioDir: cfg.Storage.AudioDir,
			Cookie: httpapi.CookieOptions{
				Secure:   cfg.Security.CookieSecure,
				SameSite: sameSiteMode(cfg.Security.CookieSameSite),
				MaxAge:   cfg.Security.TokenTTL,
			},
			AuthLimiter: middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute),
		},
	)

	var handler http.Handler = api.Routes()
	handler = middleware.CORS(origins)(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.Recovery()(handler)
	return handler, nil
}

func sameSiteMode(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
