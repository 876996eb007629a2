package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/config"
	"github.com/simpleg-eu/cp-core/internal/jwks"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
	"github.com/simpleg-eu/cp-core/internal/secrets"
	"github.com/spf13/cobra"
)

var (
	validateToken       string
	validateTokenSecret string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a bearer token against the configured JWKS",
	Long: `Validate a token passed with --token, read from the secrets manager
with --token-secret, or read from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		ctx := c.Context()
		token, err := resolveToken(ctx, c.InOrStdin(), validateToken, validateTokenSecret, secretsFromEnv)
		if err != nil {
			return err
		}
		if err := checkToken(ctx, cfg, jwks.NewFetcher(), token); err != nil {
			return fmt.Errorf("token rejected (%s): %w", apperr.KindOf(err), err)
		}
		fmt.Fprintln(c.OutOrStdout(), "valid")
		return nil
	},
}

func secretsFromEnv() (secrets.Manager, error) {
	return secrets.FromEnv()
}

// resolveToken picks the token from the flag, the secrets manager or stdin,
// in that order.
func resolveToken(ctx context.Context, stdin io.Reader, token, secretID string, manager func() (secrets.Manager, error)) (string, error) {
	switch {
	case token != "":
		return token, nil
	case secretID != "":
		m, err := manager()
		if err != nil {
			return "", err
		}
		return m.GetSecret(ctx, secretID)
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	token = strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("no token given; use --token, --token-secret or stdin")
	}
	return token, nil
}

func checkToken(ctx context.Context, c *config.Config, f *jwks.Fetcher, token string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
	defer cancel()

	set, err := f.Fetch(ctx, c.JWKSURI)
	if err != nil {
		return err
	}
	policy := jwtutil.NewPolicy(c.Issuers, c.Audiences, jwtutil.WithLeeway(c.ClockSkew))
	_, err = jwtutil.NewValidator(set, policy).Validate(token)
	return err
}

func init() {
	validateCmd.Flags().StringVar(&validateToken, "token", "", "token to validate")
	validateCmd.Flags().StringVar(&validateTokenSecret, "token-secret", "", "secrets manager id holding the token")
	validateCmd.MarkFlagsMutuallyExclusive("token", "token-secret")
	rootCmd.AddCommand(validateCmd)
}
