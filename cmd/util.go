package cmd

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
	"github.com/spf13/cobra"
)

var (
	jwkKeyID  string
	jwkAlg    string
	jwkOutDir string

	signKeyFile  string
	signIssuer   string
	signAudience []string
	signSubject  string
	signTTL      time.Duration
)

var utilCmd = &cobra.Command{
	Use:     "util",
	Aliases: []string{"utils"},
	Short:   "Development utilities for authgate",
	Run: func(c *cobra.Command, _ []string) {
		fmt.Fprintln(c.OutOrStdout(), "Available utility commands:")
		fmt.Fprintln(c.OutOrStdout(), "  generate-jwk - Generate an RSA signing key as JWKS files")
		fmt.Fprintln(c.OutOrStdout(), "  sign-token   - Sign a token with the private JWKS file")
	},
}

var utilGenerateJWKCmd = &cobra.Command{
	Use:   "generate-jwk",
	Short: "Generate an RSA signing key as JWKS files",
	RunE: func(c *cobra.Command, _ []string) error {
		priv, pub, err := generateJWK(jwkKeyID, jwkAlg)
		if err != nil {
			return err
		}
		pubPath := filepath.Join(jwkOutDir, "jwks.public.json")
		privPath := filepath.Join(jwkOutDir, "jwks.private.json")
		if err := writeSet(pubPath, pub); err != nil {
			return err
		}
		if err := writeSet(privPath, priv); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "JWKs written to %s and %s\n", pubPath, privPath)
		return nil
	},
}

var utilSignTokenCmd = &cobra.Command{
	Use:   "sign-token",
	Short: "Sign a token with the first key of a private JWKS file",
	RunE: func(c *cobra.Command, _ []string) error {
		set, err := jwk.ReadFile(signKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", signKeyFile, err)
		}
		key, ok := set.Key(0)
		if !ok {
			return fmt.Errorf("%s holds no keys", signKeyFile)
		}
		signed, err := signToken(key, signIssuer, signAudience, signSubject, signTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), signed)
		return nil
	},
}

// generateJWK creates an RSA key pair and returns it as private and public sets.
func generateJWK(kid, alg string) (jwk.Set, jwk.Set, error) {
	if !jwtutil.SupportedAlgorithm(alg) {
		return nil, nil, fmt.Errorf("unsupported algorithm '%s'; use RS256, RS384, RS512, PS256, PS384 or PS512", alg)
	}

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate key: %w", err)
	}

	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JWK: %w", err)
	}
	_ = key.Set(jwk.KeyIDKey, kid)
	_ = key.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(alg))
	_ = key.Set(jwk.KeyUsageKey, "sig")

	pubKey, err := key.PublicKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get public key: %w", err)
	}

	priv := jwk.NewSet()
	_ = priv.AddKey(key)
	pub := jwk.NewSet()
	_ = pub.AddKey(pubKey)
	return priv, pub, nil
}

func writeSet(path string, set jwk.Set) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o600)
}

// signToken issues a token signed by key, carrying its kid and alg.
func signToken(key jwk.Key, issuer string, audience []string, subject string, ttl time.Duration) (string, error) {
	alg := jwa.SignatureAlgorithm(key.Algorithm().String())
	if alg == "" {
		alg = jwa.RS256
	}

	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience(audience).
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	hdrs := jws.NewHeaders()
	_ = hdrs.Set(jws.KeyIDKey, key.KeyID())

	signed, err := jwt.Sign(tok, jwt.WithKey(alg, key, jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

func init() {
	utilGenerateJWKCmd.Flags().StringVar(&jwkKeyID, "kid", "authgate-key", "key id")
	utilGenerateJWKCmd.Flags().StringVar(&jwkAlg, "alg", "RS256", "signature algorithm (RS256, RS384, RS512, PS256, PS384, PS512)")
	utilGenerateJWKCmd.Flags().StringVar(&jwkOutDir, "out", ".", "output directory")

	utilSignTokenCmd.Flags().StringVar(&signKeyFile, "key", "jwks.private.json", "private JWKS file")
	utilSignTokenCmd.Flags().StringVar(&signIssuer, "issuer", "", "iss claim")
	utilSignTokenCmd.Flags().StringSliceVar(&signAudience, "audience", nil, "aud claim (repeatable)")
	utilSignTokenCmd.Flags().StringVar(&signSubject, "subject", "", "sub claim")
	utilSignTokenCmd.Flags().DurationVar(&signTTL, "ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(utilCmd)
	utilCmd.AddCommand(utilGenerateJWKCmd)
	utilCmd.AddCommand(utilSignTokenCmd)
}
