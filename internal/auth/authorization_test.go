package auth

import (
	"errors"
	"net/http"
	"testing"

	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
)

type recordingValidator struct {
	calls  []string
	result error
}

func (v *recordingValidator) Validate(token string) (jwtutil.Token, error) {
	v.calls = append(v.calls, token)
	if v.result != nil {
		return nil, v.result
	}
	return &jwtutil.ValidatedToken{}, nil
}

func header(values ...string) http.Header {
	h := http.Header{}
	for _, v := range values {
		h.Add(HeaderName, v)
	}
	return h
}

func TestAuthorize_InvalidHeaders(t *testing.T) {
	cases := []struct {
		name    string
		headers http.Header
		opts    []Option
		message string
	}{
		{"missing", http.Header{}, nil, "'Authorization' header is missing"},
		{"other headers only", http.Header{"X-Authorization": {"Bearer abc"}}, nil, "'Authorization' header is missing"},
		{"not text", header("Bearer \xff\xfe"), nil, "could not read 'Authorization' header as string"},
		{"control character", header("Bearer a\x00b"), nil, "could not read 'Authorization' header as string"},
		{"empty", header(""), nil, "'Authorization' header value is invalid"},
		{"six characters", header("Bearer"), nil, "'Authorization' header value is invalid"},
		{"short with lenient scheme", header("abcdef"), []Option{WithLenientScheme()}, "'Authorization' header value is invalid"},
		{"basic scheme", header("Basic dXNlcjpwYXNz"), nil, "'Authorization' header scheme must be 'Bearer'"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := &recordingValidator{}
			err := NewAuthorization(v, c.opts...).Authorize(c.headers)

			if !errors.Is(err, apperr.ErrInvalidHeaders) {
				t.Fatalf("Authorize() error = %v, want %s", err, apperr.KindInvalidHeaders)
			}
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr.Message != c.message {
				t.Errorf("message = %q, want %q", appErr.Message, c.message)
			}
			if len(v.calls) != 0 {
				t.Errorf("validator called with %v, want no calls", v.calls)
			}
		})
	}
}

func TestAuthorize_Delegates(t *testing.T) {
	cases := []struct {
		name    string
		headers http.Header
		opts    []Option
		want    string
	}{
		{"bearer", header("Bearer abc.def.ghi"), nil, "abc.def.ghi"},
		{"lowercase scheme", header("bearer abc.def.ghi"), nil, "abc.def.ghi"},
		{"exactly seven characters", header("Bearer "), nil, ""},
		{"first value wins", header("Bearer first", "Bearer second"), nil, "first"},
		{"canonical header name", http.Header{"Authorization": {"Bearer tok"}}, nil, "tok"},
		{"lenient drops any prefix", header("Token: xyz"), []Option{WithLenientScheme()}, "xyz"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := &recordingValidator{}
			if err := NewAuthorization(v, c.opts...).Authorize(c.headers); err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if len(v.calls) != 1 || v.calls[0] != c.want {
				t.Errorf("validator calls = %q, want [%q]", v.calls, c.want)
			}
		})
	}
}

func TestAuthorize_PropagatesValidatorError(t *testing.T) {
	want := apperr.New(apperr.KindInvalidToken, "failed to validate token")
	v := &recordingValidator{result: want}

	tok, err := NewAuthorization(v).AuthorizeToken(header("Bearer abc"))
	if tok != nil {
		t.Error("expected no token on failure")
	}
	if err != want {
		t.Errorf("AuthorizeToken() error = %v, want the validator's error unchanged", err)
	}
}
