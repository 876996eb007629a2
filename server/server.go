package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/auth"
	"github.com/simpleg-eu/cp-core/internal/config"
	"github.com/simpleg-eu/cp-core/internal/jwks"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
	"github.com/simpleg-eu/cp-core/internal/logger"
	"github.com/simpleg-eu/cp-core/internal/middleware"
	"github.com/simpleg-eu/cp-core/internal/remoteconfig"
	"github.com/simpleg-eu/cp-core/internal/svrlib"
	authorize "github.com/simpleg-eu/cp-core/server/authorize-handlers"
	health "github.com/simpleg-eu/cp-core/server/health-handlers"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RemoteFile is the remote configuration file auth settings are read from.
const RemoteFile = "application.yaml"

// Server holds the loaded key set and the HTTP handler guarded by it.
type Server struct {
	cfg     *config.Config
	fetcher *jwks.Fetcher
	store   *jwks.Store
	gate    *auth.Authorization
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithFetcher replaces the JWKS fetcher.
func WithFetcher(f *jwks.Fetcher) Option {
	return func(s *Server) {
		s.fetcher = f
	}
}

// New fetches the key set named by cfg and builds the routes. It fails when
// the key set cannot be retrieved.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindConfigurationFailure, "invalid configuration", err)
	}

	s := &Server{cfg: cfg, fetcher: jwks.NewFetcher()}
	for _, opt := range opts {
		opt(s)
	}

	set, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.store = jwks.NewStore(set)

	policy := jwtutil.NewPolicy(cfg.Issuers, cfg.Audiences, jwtutil.WithLeeway(cfg.ClockSkew))
	var gateOpts []auth.Option
	if cfg.LenientAuthScheme {
		gateOpts = append(gateOpts, auth.WithLenientScheme())
	}
	s.gate = auth.NewAuthorization(jwtutil.NewValidator(s.store, policy), gateOpts...)

	mux := http.NewServeMux()
	health.RegisterRoutes(svrlib.NewRouter(mux, "", cfg, s.store, s.gate))
	authorize.RegisterRoutes(svrlib.NewRouter(mux, "/v1", cfg, s.store, s.gate))

	s.handler = middleware.NewChain(middleware.RequestID).Then(otelhttp.NewHandler(mux, "authgate"))
	return s, nil
}

func (s *Server) fetch(ctx context.Context) (*jwks.KeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return s.fetcher.Fetch(ctx, s.cfg.JWKSURI)
}

// Refresh fetches the key set again and swaps it in. On failure the current
// set stays in place.
func (s *Server) Refresh(ctx context.Context) error {
	set, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.store.Replace(set)
	logger.Info("Refreshed key set", "keys", set.Len())
	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Keys returns the live key source.
func (s *Server) Keys() jwks.KeySource {
	return s.store
}

// Gate returns the authorization gate.
func (s *Server) Gate() auth.Authorizer {
	return s.gate
}

// ApplyRemoteConfig overlays the auth settings found in the remote
// application.yaml onto cfg. Keys absent remotely keep their local values.
func ApplyRemoteConfig(ctx context.Context, cfg *config.Config) error {
	client, err := remoteconfig.Build(remoteconfig.Options{
		Params: remoteconfig.Params{
			Host:        cfg.ConfigHost,
			Stage:       cfg.ConfigStage,
			Environment: cfg.ConfigEnvironment,
			Component:   cfg.ConfigComponent,
		},
		AccessToken: cfg.ConfigAccessToken,
		BaseDir:     cfg.ConfigWorkingDir,
		Timeout:     cfg.ConfigTimeout,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return overlay(ctx, client, cfg)
}

type keyUnmarshaler interface {
	UnmarshalKey(ctx context.Context, file, key string, out any) error
}

func overlay(ctx context.Context, src keyUnmarshaler, cfg *config.Config) error {
	targets := []struct {
		key string
		out any
	}{
		{"Auth:JwksUri", &cfg.JWKSURI},
		{"Auth:Issuers", &cfg.Issuers},
		{"Auth:Audiences", &cfg.Audiences},
	}
	for _, t := range targets {
		err := src.UnmarshalKey(ctx, RemoteFile, t.key, t.out)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read remote '%s': %w", t.key, err)
		}
	}
	return nil
}

// Start runs the server until it fails. Startup errors are fatal.
func Start(cfg *config.Config) {
	ctx := context.Background()

	if cfg.RemoteConfigEnabled() {
		if err := ApplyRemoteConfig(ctx, cfg); err != nil {
			logger.Error("Failed to load remote configuration", "error", err)
			os.Exit(1)
		}
	}

	s, err := New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize server", "error", err, "kind", apperr.KindOf(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Listening", "addr", srv.Addr, "keys", s.Keys().KeySet().Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
