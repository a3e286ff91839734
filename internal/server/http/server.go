// Package http exposes the account service as a JSON API under
// /api/v1/auth. Every response uses the same envelope:
// {statusCode, success, message, data, errors}.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Accounts is the part of services.AccountService the transport calls.
type Accounts interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.Profile, error)
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Logout(ctx context.Context, accountID string) error
	CheckSession(ctx context.Context, token string) (*models.Profile, error)
	RefreshAccessToken(ctx context.Context, token string) (*services.RefreshResult, error)
	UpdateProfile(ctx context.Context, accountID string, in services.UpdateProfileInput) (*models.Profile, error)
	GetActiveUserCount(ctx context.Context) (int64, error)
}

type HTTPServer struct {
	address   string
	accounts  Accounts
	cfg       *config.Config
	logger    logging.Logger
	uploadDir string
}

// NewHTTPServer prepares the upload staging directory and returns a server
// that is not yet listening.
func NewHTTPServer(a string, l logging.Logger, accounts Accounts, cfg *config.Config) (*HTTPServer, error) {
	dir, err := filex.EnsureDir(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	return &HTTPServer{
		address:   a,
		accounts:  accounts,
		cfg:       cfg,
		logger:    l.With("module", "http_server"),
		uploadDir: dir,
	}, nil
}

func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
