package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	// DefaultKeyID is the kid of the issuer's primary signing key.
	DefaultKeyID = "test-key"
	// DefaultAudience is the aud claim put on tokens by default.
	DefaultAudience = "test-audience"
)

// Issuer is an in-process token authority. It serves a JWKS document over
// HTTP and mints tokens signed with its keys.
type Issuer struct {
	Server   *httptest.Server
	Issuer   string
	Audience string
	KeyID    string

	privateKey *rsa.PrivateKey

	mu     sync.Mutex
	keys   []json.RawMessage
	status int
}

// NewIssuer starts an issuer with one RS256 key published under DefaultKeyID.
func NewIssuer(t *testing.T) *Issuer {
	t.Helper()

	i := &Issuer{
		Audience: DefaultAudience,
		KeyID:    DefaultKeyID,
		status:   http.StatusOK,
	}
	i.privateKey = i.AddRSAKey(t, DefaultKeyID, "RS256")

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", i.serveJWKS)
	i.Server = TestServer(t, mux)
	i.Issuer = i.Server.URL

	return i
}

func (i *Issuer) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	i.mu.Lock()
	status := i.status
	i.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(i.JWKS())
}

// JWKSURL returns the URL the key set is published at.
func (i *Issuer) JWKSURL() string {
	return i.Server.URL + "/.well-known/jwks.json"
}

// JWKS returns the currently published key set document.
func (i *Issuer) JWKS() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()

	doc, _ := json.Marshal(map[string]any{"keys": i.keys})
	return doc
}

// SetStatus changes the HTTP status the JWKS endpoint responds with.
func (i *Issuer) SetStatus(code int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = code
}

// AddRSAKey generates an RSA key, publishes its public half under kid with
// the given declared algorithm (omitted when empty) and returns the private key.
func (i *Issuer) AddRSAKey(t *testing.T, kid, alg string) *rsa.PrivateKey {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	key, err := jwk.FromRaw(&priv.PublicKey)
	if err != nil {
		t.Fatalf("failed to create JWK: %v", err)
	}
	_ = key.Set(jwk.KeyIDKey, kid)
	_ = key.Set(jwk.KeyUsageKey, "sig")
	if alg != "" {
		_ = key.Set(jwk.AlgorithmKey, alg)
	}

	raw, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("failed to marshal JWK: %v", err)
	}
	i.addRaw(raw)
	return priv
}

// AddRawKey publishes an arbitrary JWK object, e.g. an EC key or one with
// broken parameters.
func (i *Issuer) AddRawKey(t *testing.T, key map[string]any) {
	t.Helper()

	raw, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("failed to marshal raw key: %v", err)
	}
	i.addRaw(raw)
}

func (i *Issuer) addRaw(raw json.RawMessage) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys = append(i.keys, raw)
}

// Claims returns a valid claim set for this issuer, expiring in an hour.
func (i *Issuer) Claims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": i.Issuer,
		"aud": i.Audience,
		"sub": "user-123",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

// CreateToken signs the default claims with the primary key.
func (i *Issuer) CreateToken(t *testing.T) string {
	t.Helper()
	return i.CreateTokenWithClaims(t, i.Claims())
}

// CreateExpiredToken signs claims whose exp is an hour in the past.
func (i *Issuer) CreateExpiredToken(t *testing.T) string {
	t.Helper()

	claims := i.Claims()
	claims["iat"] = time.Now().Add(-2 * time.Hour).Unix()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	return i.CreateTokenWithClaims(t, claims)
}

// CreateTokenWithClaims signs claims with the primary key as RS256.
func (i *Issuer) CreateTokenWithClaims(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return SignToken(t, i.privateKey, i.KeyID, jwt.SigningMethodRS256, claims)
}

// CreateTokenWithKey signs claims with the given key, kid and method.
func (i *Issuer) CreateTokenWithKey(t *testing.T, key *rsa.PrivateKey, kid string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	return SignToken(t, key, kid, method, claims)
}

// SignToken signs claims with key, placing kid in the header when non-empty.
func SignToken(t *testing.T, key any, kid string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}
