// Package remoteconfig retrieves configuration packages from a remote
// config service and reads values out of the extracted YAML files.
package remoteconfig

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/validation"
	"golang.org/x/oauth2"
)

// Params identifies the configuration package to download.
type Params struct {
	Host        string
	Stage       string
	Environment string
	Component   string
}

// Validate checks that every parameter is present.
func (p Params) Validate() error {
	var errs validation.Errors
	errs.AddIf(validation.ValidateHTTPURL(p.Host, "host"))
	errs.AddIf(validation.ValidateRequired(p.Stage, "stage"))
	errs.AddIf(validation.ValidateRequired(p.Environment, "environment"))
	errs.AddIf(validation.ValidateRequired(p.Component, "component"))
	return errs.Err()
}

// PackageURL returns the download URL for p.
func (p Params) PackageURL() string {
	q := url.Values{}
	q.Set("stage", p.Stage)
	q.Set("environment", p.Environment)
	q.Set("component", p.Component)
	return strings.TrimRight(p.Host, "/") + "/config?" + q.Encode()
}

// Downloader fetches a configuration package.
type Downloader interface {
	Download(ctx context.Context, p Params) ([]byte, error)
}

// HTTPDownloader downloads packages with a bearer access token.
type HTTPDownloader struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPDownloader creates a downloader that authenticates with accessToken
// and gives up after timeout (no limit when zero).
func NewHTTPDownloader(accessToken string, timeout time.Duration) *HTTPDownloader {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, cleanhttp.DefaultPooledClient())
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &HTTPDownloader{
		client:  oauth2.NewClient(ctx, src),
		timeout: timeout,
	}
}

// Download fetches the package for p.
func (d *HTTPDownloader) Download(ctx context.Context, p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindRequestFailure, "invalid configuration request", err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.PackageURL(), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRequestFailure, "failed to create configuration request", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, downloadError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Newf(apperr.KindRequestFailure, "configuration service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, downloadError(err)
	}
	return data, nil
}

func downloadError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.KindTimedOut, "configuration download has timed out")
	}
	return apperr.Wrap(apperr.KindRequestFailure, "configuration download failed", err)
}
