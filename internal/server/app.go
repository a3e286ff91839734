// Package server wires the gophauth server together: it opens the credential
// store, the profile cache and the image host, builds the account service and
// runs the HTTP API until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/imagehost"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	profiles cache.ProfileCache
	accounts *services.AccountService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.Migrate(ctx); err != nil {
		_ = rm.Close(ctx)
		return nil, fmt.Errorf("db migrate error: %w", err)
	}

	profiles, err := cache.Open(ctx, c.RedisURL, c.ProfileCacheTTL, logger)
	if err != nil {
		_ = rm.Close(ctx)
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	images, err := imagehost.NewS3Host(ctx, imagehost.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
		PublicURL:    c.S3PublicURL,
	}, logger)
	if err != nil {
		_ = profiles.Close()
		_ = rm.Close(ctx)
		return nil, fmt.Errorf("image host init error: %w", err)
	}

	tokens := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  c.AccessTokenSecret,
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshSecret: c.RefreshTokenSecret,
		RefreshTTL:    c.RefreshTokenValidityDuration,
	})

	svc := services.NewAccountService(rm.Accounts(), tokens, auth.NewPasswordHasher(c.BcryptCost),
		images, profiles, c, logger.With("module", "accounts"))

	return &App{config: c, logger: logger, repos: rm, profiles: profiles, accounts: svc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s, err := hs.NewHTTPServer(app.config.ServerAddr, app.logger, app.accounts, app.config)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the store and cache connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if err := app.profiles.Close(); err != nil {
		app.logger.Warn(ctx, "cache close", "error", err)
	}
	if err := app.repos.Close(ctx); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
}
