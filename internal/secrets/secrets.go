// Package secrets reads bootstrap secrets from the Bitwarden Secrets Manager CLI.
package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/simpleg-eu/cp-core/internal/apperr"
)

// AccessTokenEnv names the variable holding the secrets manager access token.
const AccessTokenEnv = "SECRETS_MANAGER_ACCESS_TOKEN"

// Manager resolves secret ids to secret values.
type Manager interface {
	GetSecret(ctx context.Context, id string) (string, error)
}

// Runner executes a command and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

type bitwardenSecret struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Bitwarden shells out to `bws get secret`.
type Bitwarden struct {
	accessToken string
	binary      string
	run         Runner
}

// Option configures a Bitwarden manager.
type Option func(*Bitwarden)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(b *Bitwarden) {
		b.run = r
	}
}

// WithBinary overrides the bws executable path.
func WithBinary(path string) Option {
	return func(b *Bitwarden) {
		b.binary = path
	}
}

// NewBitwarden creates a manager authenticating with accessToken.
func NewBitwarden(accessToken string, opts ...Option) *Bitwarden {
	b := &Bitwarden{accessToken: accessToken, binary: "bws", run: ExecRunner}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromEnv creates a Bitwarden manager using SECRETS_MANAGER_ACCESS_TOKEN.
func FromEnv(opts ...Option) (*Bitwarden, error) {
	token, ok := os.LookupEnv(AccessTokenEnv)
	if !ok || token == "" {
		return nil, apperr.Newf(apperr.KindSecretsManagerFailure, "failed to retrieve secrets manager access token from environment variable %s", AccessTokenEnv)
	}
	return NewBitwarden(token, opts...), nil
}

// GetSecret returns the value of the secret with the given id.
func (b *Bitwarden) GetSecret(ctx context.Context, id string) (string, error) {
	stdout, stderr, err := b.run(ctx, b.binary, "get", "secret", id, "--access-token", b.accessToken)
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", apperr.Newf(apperr.KindSecretsManagerFailure, "failed to run 'bws': %s", strings.TrimSpace(string(stderr)))
		}
		return "", apperr.Wrap(apperr.KindSecretsManagerFailure, "failed to run 'bws'", err)
	}

	var secret bitwardenSecret
	if err := json.Unmarshal(stdout, &secret); err != nil {
		return "", apperr.Wrap(apperr.KindSerializationFailure, fmt.Sprintf("failed to decode secret '%s'", id), err)
	}
	return secret.Value, nil
}
