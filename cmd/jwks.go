package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/simpleg-eu/cp-core/internal/jwks"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
	"github.com/spf13/cobra"
)

var jwksCmd = &cobra.Command{
	Use:   "jwks",
	Short: "Inspect JSON Web Key Sets",
}

var jwksInspectCmd = &cobra.Command{
	Use:   "inspect <uri>",
	Short: "Fetch a JWKS and list its keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(c.Context(), cfg.FetchTimeout)
		defer cancel()

		set, err := jwks.NewFetcher().Fetch(ctx, args[0])
		if err != nil {
			return err
		}
		return printKeys(c.OutOrStdout(), set)
	},
}

type keySummary struct {
	KeyID     string `json:"kid,omitempty"`
	Family    string `json:"kty"`
	Algorithm string `json:"alg,omitempty"`
	Usable    bool   `json:"usable"`
}

func printKeys(w io.Writer, set *jwks.KeySet) error {
	summaries := lo.Map(set.Keys(), func(k *jwks.Key, _ int) keySummary {
		_, err := k.RSAPublicKey()
		return keySummary{
			KeyID:     k.KeyID,
			Family:    string(k.Family),
			Algorithm: k.Algorithm,
			Usable:    k.KeyID != "" && err == nil && jwtutil.SupportedAlgorithm(k.Algorithm),
		}
	})

	out, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode keys: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func init() {
	rootCmd.AddCommand(jwksCmd)
	jwksCmd.AddCommand(jwksInspectCmd)
}
