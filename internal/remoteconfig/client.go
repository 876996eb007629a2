package remoteconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/logger"
)

// AccessTokenEnv names the variable holding the config service access token.
const AccessTokenEnv = "CP_CONFIG_ACCESS_TOKEN"

// Client downloads a configuration package on first use and serves values
// from its extracted files.
type Client struct {
	params     Params
	workingDir string
	downloader Downloader
	extractor  Extractor
	getter     Getter

	mu sync.Mutex
}

// NewClient wires a Client from its parts.
func NewClient(params Params, workingDir string, d Downloader, e Extractor, g Getter) *Client {
	return &Client{
		params:     params,
		workingDir: workingDir,
		downloader: d,
		extractor:  e,
		getter:     g,
	}
}

// Options configures Build.
type Options struct {
	Params      Params
	AccessToken string
	BaseDir     string
	Timeout     time.Duration
}

// Build returns a Client backed by the HTTP downloader, the zip extractor
// and a file getter, working in a fresh directory under opts.BaseDir.
// The access token falls back to CP_CONFIG_ACCESS_TOKEN.
func Build(opts Options) (*Client, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindConfigurationFailure, "invalid remote configuration settings", err)
	}
	token := opts.AccessToken
	if token == "" {
		token = os.Getenv(AccessTokenEnv)
	}
	if token == "" {
		return nil, apperr.Newf(apperr.KindConfigurationFailure, "no access token for the configuration service; set %s", AccessTokenEnv)
	}

	base := opts.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	workingDir := filepath.Join(base, uuid.NewString())

	return NewClient(opts.Params, workingDir,
		NewHTTPDownloader(token, opts.Timeout),
		ZipExtractor{},
		NewFileGetter(workingDir),
	), nil
}

// WorkingDir returns the directory the package is extracted to.
func (c *Client) WorkingDir() string {
	return c.workingDir
}

// Get returns the value at key in file, downloading the package first if
// the working directory does not exist yet.
func (c *Client) Get(ctx context.Context, file, key string) (any, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	return c.getter.Get(file, key)
}

// UnmarshalKey decodes the value at key in file into out.
func (c *Client) UnmarshalKey(ctx context.Context, file, key string, out any) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	return c.getter.UnmarshalKey(file, key, out)
}

func (c *Client) ensure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.workingDir); err == nil {
		return nil
	}

	if err := os.MkdirAll(c.workingDir, 0o755); err != nil {
		return apperr.Wrap(apperr.KindConfigurationFailure, fmt.Sprintf("failed to create '%s'", c.workingDir), err)
	}

	data, err := c.downloader.Download(ctx, c.params)
	if err == nil {
		err = c.extractor.Extract(data, c.workingDir)
	}
	if err != nil {
		// Leave no half-initialized directory behind so the next call retries.
		_ = os.RemoveAll(c.workingDir)
		return err
	}

	logger.Debug("Initialized remote configuration", "dir", c.workingDir, "component", c.params.Component)
	return nil
}

// Close removes the working directory.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.workingDir); err != nil {
		logger.Warn("Failed to remove working path", "dir", c.workingDir, "error", err)
		return err
	}
	return nil
}
