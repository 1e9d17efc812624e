package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"

	"bookstream/internal/aggregate"
	"bookstream/internal/catalog"
	"bookstream/internal/config"
	"bookstream/internal/entity"
	"bookstream/internal/httpx"
	"bookstream/internal/interest"
	"bookstream/internal/kvstore"
	"bookstream/internal/library"
	"bookstream/internal/logging"
	"bookstream/internal/platform/fetch"
	"bookstream/internal/platform/googlebooks"
	"bookstream/internal/platform/gutendex"
	"bookstream/internal/platform/openlibrary"
	"bookstream/internal/platform/standardebooks"
	"bookstream/internal/provider"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := openDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	store, err := kvstore.Open(cfg.Storage.KVPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("close kv store")
		}
	}()

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(cfg.Storage.UploadsDir, 0o755); err != nil {
		return err
	}

	catalogService := catalog.NewService(
		catalog.NewPostgresRepo(dbPool),
		catalog.NewFileStorage(osFs, cfg.Storage.UploadsDir),
		cfg.Server.PublicURL,
		cfg.Database.QueryTimeout,
	)

	pc := cfg.Providers
	httpClient := fetch.NewClient(fetch.Options{
		UserAgent:  pc.UserAgent,
		RPS:        pc.RPS,
		MaxRetries: pc.MaxRetries,
	})
	openLibrary := openlibrary.NewClient(httpClient, pc.OpenLibraryURL)
	breaker := provider.Options{BreakerFailures: pc.BreakerFailures, BreakerCooldown: pc.BreakerCooldown}

	agg := aggregate.New(aggregate.Config{Timeout: pc.Timeout},
		provider.New(entity.SourceLocal, catalogService, provider.Options{}),
		provider.New(entity.SourceOpenLibrary, openLibrary, breaker),
		provider.New(entity.SourceGoogle, googlebooks.NewClient(httpClient, pc.GoogleBooksURL, pc.GoogleAPIKey), breaker),
		provider.New(entity.SourceGutenberg, gutendex.NewClient(httpClient, pc.GutendexURL), breaker),
		provider.New(entity.SourceStandard, standardebooks.NewClient(httpClient, pc.StandardEbooksURL), breaker),
	)

	interests := interest.NewModel(store, cfg.Interest.StopWords)
	lib := library.New(store, osFs, library.WithRecorder(interests))
	go lib.RunReconciler(ctx, cfg.Storage.ReconcileInterval)

	limiter := httpx.NewRateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	defer limiter.Close()

	handler := newRouter(cfg.Server, handlers{
		catalog:   catalog.NewHTTPHandler(catalogService),
		aggregate: aggregate.NewHTTPHandler(agg, aggregate.NewComposer(agg), interests, openLibrary),
		interest:  interest.NewHTTPHandler(interests),
		library:   library.NewHTTPHandler(lib),
		db:        dbPool,
	}, limiter)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Strs("sources", sourceNames(agg.Sources())).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		logging.Error().Str("dsn", redactDSN(dsn)).Msg("cannot ping database")
		return nil, err
	}
	logging.Info().Msg("database connection OK")
	return pool, nil
}

func sourceNames(sources []entity.Source) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, string(s))
	}
	return out
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
