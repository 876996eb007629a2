package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/config"
	"github.com/simpleg-eu/cp-core/internal/middleware"
	"github.com/simpleg-eu/cp-core/internal/testutil"
	health "github.com/simpleg-eu/cp-core/server/health-handlers"
)

func testConfig(issuer *testutil.Issuer) *config.Config {
	return &config.Config{
		AppEnv:       config.EnvTest,
		Port:         "0",
		JWKSURI:      issuer.JWKSURL(),
		Issuers:      []string{issuer.Issuer},
		Audiences:    []string{issuer.Audience},
		FetchTimeout: 5 * time.Second,
		LogLevel:     "INFO",
		LogFormat:    "text",
	}
}

func serve(t *testing.T, s *Server, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	issuer := testutil.NewIssuer(t)
	s, err := New(context.Background(), testConfig(issuer))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Run("healthz", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/healthz", "")
		if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
			t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
		}
		if rec.Header().Get(middleware.RequestIDHeader) == "" {
			t.Error("expected a request id header")
		}
	})

	t.Run("readyz reports keys", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/readyz", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("readyz status = %d", rec.Code)
		}
		var body health.ReadyResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode readyz: %v", err)
		}
		if body.Status != "ready" || body.Keys != 1 {
			t.Errorf("readyz = %+v", body)
		}
	})

	cases := []struct {
		name          string
		authorization string
		wantStatus    int
	}{
		{"valid token", "Bearer " + issuer.CreateToken(t), http.StatusNoContent},
		{"lowercase scheme", "bearer " + issuer.CreateToken(t), http.StatusNoContent},
		{"expired token", "Bearer " + issuer.CreateExpiredToken(t), http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run("authorize "+c.name, func(t *testing.T) {
			rec := serve(t, s, http.MethodGet, "/v1/authorize", c.authorization)
			if rec.Code != c.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, c.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestNewFailsWithoutKeySet(t *testing.T) {
	issuer := testutil.NewIssuer(t)
	cfg := testConfig(issuer)
	cfg.JWKSURI = testutil.UnreachableURL(t)

	_, err := New(context.Background(), cfg)
	if !errors.Is(err, apperr.ErrKeySetRetrievalFailure) {
		t.Fatalf("New() error = %v, want %s", err, apperr.KindKeySetRetrievalFailure)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	issuer := testutil.NewIssuer(t)
	cfg := testConfig(issuer)
	cfg.Audiences = nil

	_, err := New(context.Background(), cfg)
	if !errors.Is(err, apperr.ErrConfigurationFailure) {
		t.Fatalf("New() error = %v, want %s", err, apperr.KindConfigurationFailure)
	}
}

func TestRefreshPicksUpRotatedKey(t *testing.T) {
	issuer := testutil.NewIssuer(t)
	s, err := New(context.Background(), testConfig(issuer))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rotated := issuer.AddRSAKey(t, "rotated", "RS256")
	token := issuer.CreateTokenWithKey(t, rotated, "rotated", jwt.SigningMethodRS256, issuer.Claims())

	if rec := serve(t, s, http.MethodGet, "/v1/authorize", "Bearer "+token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status before refresh = %d, want 401", rec.Code)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if rec := serve(t, s, http.MethodGet, "/v1/authorize", "Bearer "+token); rec.Code != http.StatusNoContent {
		t.Errorf("status after refresh = %d, want 204", rec.Code)
	}

	issuer.SetStatus(http.StatusInternalServerError)
	if err := s.Refresh(context.Background()); !errors.Is(err, apperr.ErrKeySetRetrievalFailure) {
		t.Fatalf("Refresh() error = %v, want %s", err, apperr.KindKeySetRetrievalFailure)
	}
	if got := s.Keys().KeySet().Len(); got != 2 {
		t.Errorf("keys after failed refresh = %d, want 2", got)
	}
}

type mapSource map[string]any

func (m mapSource) UnmarshalKey(_ context.Context, file, key string, out any) error {
	if file != RemoteFile {
		return apperr.Newf(apperr.KindNotFound, "could not find file '%s'", file)
	}
	v, ok := m[key]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "could not find key '%s'", key)
	}
	switch o := out.(type) {
	case *string:
		*o = v.(string)
	case *[]string:
		*o = v.([]string)
	}
	return nil
}

type failingSource struct{}

func (failingSource) UnmarshalKey(context.Context, string, string, any) error {
	return apperr.New(apperr.KindTimedOut, "configuration download has timed out")
}

func TestOverlay(t *testing.T) {
	cfg := &config.Config{JWKSURI: "https://local/jwks.json", Issuers: []string{"local"}, Audiences: []string{"local-aud"}}
	src := mapSource{
		"Auth:JwksUri": "https://remote/jwks.json",
		"Auth:Issuers": []string{"remote-a", "remote-b"},
	}

	if err := overlay(context.Background(), src, cfg); err != nil {
		t.Fatalf("overlay() error = %v", err)
	}
	if cfg.JWKSURI != "https://remote/jwks.json" {
		t.Errorf("JWKSURI = %q", cfg.JWKSURI)
	}
	if len(cfg.Issuers) != 2 || cfg.Issuers[0] != "remote-a" {
		t.Errorf("Issuers = %v", cfg.Issuers)
	}
	if len(cfg.Audiences) != 1 || cfg.Audiences[0] != "local-aud" {
		t.Errorf("Audiences = %v, want local value kept", cfg.Audiences)
	}

	if err := overlay(context.Background(), failingSource{}, cfg); !errors.Is(err, apperr.ErrTimedOut) {
		t.Errorf("overlay() error = %v, want %s", err, apperr.KindTimedOut)
	}
}
