// Package auth extracts bearer credentials from request headers and hands
// them to a token validator.
package auth

import (
	"net/http"
	"strings"

	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
)

// HeaderName is the only header the gate reads.
const HeaderName = "Authorization"

const bearerPrefix = "Bearer "

// Authorizer decides whether a request's headers carry a valid credential.
type Authorizer interface {
	Authorize(h http.Header) error
	AuthorizeToken(h http.Header) (jwtutil.Token, error)
}

// Authorization is the bearer-token gate in front of a TokenValidator.
type Authorization struct {
	validator     jwtutil.TokenValidator
	lenientScheme bool
}

// Option configures an Authorization.
type Option func(*Authorization)

// WithLenientScheme skips the scheme comparison: any value of at least
// seven characters has its first seven dropped and the rest validated.
func WithLenientScheme() Option {
	return func(a *Authorization) {
		a.lenientScheme = true
	}
}

// NewAuthorization creates a gate that delegates to v.
func NewAuthorization(v jwtutil.TokenValidator, opts ...Option) *Authorization {
	a := &Authorization{validator: v}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize reports whether h carries a valid bearer token.
func (a *Authorization) Authorize(h http.Header) error {
	_, err := a.AuthorizeToken(h)
	return err
}

// AuthorizeToken is Authorize returning the validated token. Validator
// errors are returned unchanged.
func (a *Authorization) AuthorizeToken(h http.Header) (jwtutil.Token, error) {
	token, err := a.extract(h)
	if err != nil {
		return nil, err
	}
	return a.validator.Validate(token)
}

func (a *Authorization) extract(h http.Header) (string, error) {
	values := h.Values(HeaderName)
	if len(values) == 0 {
		return "", apperr.New(apperr.KindInvalidHeaders, "'Authorization' header is missing")
	}

	value := values[0]
	if !isHeaderText(value) {
		return "", apperr.New(apperr.KindInvalidHeaders, "could not read 'Authorization' header as string")
	}
	if len(value) < len(bearerPrefix) {
		return "", apperr.New(apperr.KindInvalidHeaders, "'Authorization' header value is invalid")
	}
	if !a.lenientScheme && !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", apperr.New(apperr.KindInvalidHeaders, "'Authorization' header scheme must be 'Bearer'")
	}

	return value[len(bearerPrefix):], nil
}

// isHeaderText reports whether every byte is visible ASCII, space or tab.
func isHeaderText(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\t' && (c < 0x20 || c > 0x7e) {
			return false
		}
	}
	return true
}
