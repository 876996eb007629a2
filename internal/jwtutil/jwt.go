// Package jwtutil validates bearer tokens against a JWKS key set.
package jwtutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/jwks"
)

var (
	// ErrIssuerNotAllowed is returned when the iss claim is not an expected issuer
	ErrIssuerNotAllowed = errors.New("issuer is not allowed")
	// ErrAudienceNotAllowed is returned when no aud entry is an expected audience
	ErrAudienceNotAllowed = errors.New("audience is not allowed")
	// ErrAlgorithmMismatch is returned when the header alg differs from the key's
	ErrAlgorithmMismatch = errors.New("token 'alg' does not match the key's algorithm")
)

// supportedAlgorithms maps the declared alg of an RSA key to a signature algorithm.
var supportedAlgorithms = map[string]jwa.SignatureAlgorithm{
	"RS256": jwa.RS256,
	"RS384": jwa.RS384,
	"RS512": jwa.RS512,
	"PS256": jwa.PS256,
	"PS384": jwa.PS384,
	"PS512": jwa.PS512,
}

// SupportedAlgorithm reports whether a key declaring alg can be used for verification.
func SupportedAlgorithm(alg string) bool {
	_, ok := supportedAlgorithms[alg]
	return ok
}

// TokenValidator validates a raw token string.
type TokenValidator interface {
	Validate(token string) (Token, error)
}

// JWTValidator validates RS/PS signed JWTs against keys from a KeySource.
// It holds no mutable state and is safe for concurrent use.
type JWTValidator struct {
	keys   jwks.KeySource
	policy Policy
}

// NewValidator creates a JWTValidator. keys may be a *jwks.KeySet or a *jwks.Store.
func NewValidator(keys jwks.KeySource, policy Policy) *JWTValidator {
	return &JWTValidator{keys: keys, policy: policy}
}

// Policy returns the claim policy the validator enforces.
func (v *JWTValidator) Policy() Policy {
	return v.policy
}

// Validate verifies token and returns the validated handle. Structural
// problems with the token or the selected key are KindMalformedToken;
// signature and claim failures are KindInvalidToken.
func (v *JWTValidator) Validate(token string) (Token, error) {
	header, err := DecodeHeader(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedToken, "failed to decode token's header", err)
	}
	if header.KeyID == "" {
		return nil, apperr.New(apperr.KindMalformedToken, "'kid' is missing from header")
	}

	var set *jwks.KeySet
	if v.keys != nil {
		set = v.keys.KeySet()
	}
	key, ok := set.Lookup(header.KeyID)
	if !ok {
		return nil, apperr.New(apperr.KindMalformedToken, "could not find 'kid' within 'jwk_set'")
	}

	if key.Family != jwks.FamilyRSA {
		return nil, apperr.Newf(apperr.KindMalformedToken, "unsupported key type '%s'", key.Family)
	}
	pub, err := key.RSAPublicKey()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedToken, "failed to build decoding key", err)
	}

	if key.Algorithm == "" {
		return nil, apperr.New(apperr.KindMalformedToken, "'alg' is missing from key")
	}
	alg, ok := supportedAlgorithms[key.Algorithm]
	if !ok {
		return nil, apperr.Newf(apperr.KindMalformedToken, "unsupported key algorithm '%s'", key.Algorithm)
	}

	// The key decides the algorithm; a header naming another one is rejected.
	if header.Algorithm != alg.String() {
		return nil, apperr.Wrap(apperr.KindInvalidToken, "failed to validate token", ErrAlgorithmMismatch)
	}

	// Only exp, iss and aud are checked; iat and nbf are not enforced.
	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(alg, pub),
		jwt.WithValidate(true),
		jwt.WithResetValidators(true),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithValidator(jwt.IsExpirationValid()),
		jwt.WithAcceptableSkew(v.policy.leeway),
		jwt.WithValidator(jwt.ValidatorFunc(v.checkClaims)),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidToken, "failed to validate token", err)
	}

	claims, err := parsed.AsMap(context.Background())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidToken, "failed to validate token", err)
	}
	return &ValidatedToken{claims: claims}, nil
}

func (v *JWTValidator) checkClaims(_ context.Context, t jwt.Token) jwt.ValidationError {
	if !v.policy.allowsIssuer(t.Issuer()) {
		return jwt.NewValidationError(fmt.Errorf("%w: '%s'", ErrIssuerNotAllowed, t.Issuer()))
	}
	if !v.policy.allowsAnyAudience(t.Audience()) {
		return jwt.NewValidationError(ErrAudienceNotAllowed)
	}
	return nil
}
