// Package server wires configuration, storage, token services and the HTTP
// and gRPC transports into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/instrumentation"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokenstore"
	"github.com/dmitrijs2005/authkeeper/internal/server/users"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	httpServer *httpapi.HTTPServer
	grpcServer *gs.GRPCServer
	closers    []io.Closer
}

// NewApp validates c and builds every component. Invalid signing settings
// are reported as common.ErrSigningFailure and must stop startup.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(logOut, c.LogLevel)
	app := &App{config: c, logger: logger}

	profiles, store, err := app.initStorage(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	codec, err := auth.NewCodec(auth.CodecConfig{
		SigningKey: []byte(c.SecretKey),
		Issuer:     c.Issuer,
		Audience:   c.Audience,
		Lifetime:   c.AccessTokenValidityDuration,
		Leeway:     c.ClockSkew,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	inst, err := instrumentation.New(otel.GetMeterProvider(), otel.GetTracerProvider())
	if err != nil {
		app.close()
		return nil, fmt.Errorf("instrumentation init error: %w", err)
	}

	issuer := tokens.NewIssuer(codec, store, c.RefreshTokenValidityDuration, logger, inst)
	rotator := tokens.NewRotationService(store, issuer, logger, inst)
	us := users.NewService(profiles, auth.NewBcryptHasher(), issuer, logger)

	router := httpapi.NewRouter(httpapi.NewAuthHandler(us, rotator, logger), codec, logger, httpapi.RouterOptions{
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		AllowedOrigins: c.CORSAllowedOrigins,
	})
	app.httpServer = httpapi.NewHTTPServer(c.EndpointAddrHTTP, router, logger)
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, rotator, codec)

	return app, nil
}

// initStorage opens the backends selected by config. Users live in
// PostgreSQL unless the memory store is selected.
func (app *App) initStorage(ctx context.Context) (usersrepo.Repository, tokenstore.Store, error) {
	if app.config.TokenStore == tokenstore.KindMemory {
		app.logger.Warn(ctx, "using in-memory storage; all data is lost on restart")
		profiles := usersrepo.NewMemoryRepository()
		return profiles, tokenstore.NewMemoryStore(profiles), nil
	}

	db, err := app.openDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}
	rm := repomanager.NewPostgresRepositoryManager()
	profiles := rm.Users(db)

	if app.config.TokenStore == tokenstore.KindRedis {
		rdb := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
		app.closers = append(app.closers, rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis init error: %w", err)
		}
		return profiles, tokenstore.NewRedisStore(rdb, profiles), nil
	}

	return profiles, tokenstore.NewSQLStore(db, rm), nil
}

func (app *App) openDatabase(ctx context.Context) (*sql.DB, error) {
	db, err := repomanager.Open(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db)

	if err := repomanager.NewPostgresRepositoryManager().RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migrations error: %w", err)
	}
	return db, nil
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

type runner interface {
	Run(ctx context.Context) error
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives, or one
// of the servers fails. Storage is closed after both servers have stopped.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "token_store", app.config.TokenStore)

	stopSignals := app.initSignalHandler(cancelFunc)
	defer stopSignals()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for name, srv := range map[string]runner{"http": app.httpServer, "grpc": app.grpcServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s server: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	wg.Wait()

	start := time.Now()
	app.close()
	app.logger.Info(context.Background(), "App stopped", "close_duration", time.Since(start))

	return errors.Join(errs...)
}
