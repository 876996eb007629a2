package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/logger"
)

// maxDocumentSize bounds how much of a JWKS response is read.
const maxDocumentSize = 1 << 20

// Fetcher retrieves key sets over HTTP. It does not retry, cache or apply a
// timeout of its own; deadlines come from the caller's context or client.
type Fetcher struct {
	client *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// NewFetcher creates a Fetcher backed by a cleanhttp pooled client.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{client: cleanhttp.DefaultPooledClient()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues one GET against uri and parses the body into a KeySet.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*KeySet, error) {
	set, err := f.fetch(ctx, uri)
	if err != nil {
		logger.Warn("Failed to retrieve key set", "uri", uri, "error", err)
		return nil, err
	}
	logger.Debug("Retrieved key set", "uri", uri, "keys", set.Len())
	return set, nil
}

func (f *Fetcher) fetch(ctx context.Context, uri string) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindKeySetRetrievalFailure, fmt.Sprintf("failed to create request for '%s'", uri), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindKeySetRetrievalFailure, fmt.Sprintf("failed to retrieve key set from '%s'", uri), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Newf(apperr.KindKeySetRetrievalFailure, "key set endpoint '%s' returned status %d", uri, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindKeySetRetrievalFailure, fmt.Sprintf("failed to read key set from '%s'", uri), err)
	}

	return NewKeySet(body)
}

var defaultFetcher = NewFetcher()

// Fetch retrieves a key set with the package default Fetcher.
func Fetch(ctx context.Context, uri string) (*KeySet, error) {
	return defaultFetcher.Fetch(ctx, uri)
}
