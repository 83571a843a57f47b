package main

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/auth/password"
)

var (
	tokenSubject string
	tokenScope   string
	tokenTTL     time.Duration
	apiKeyLength int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token for a client",
	Long: `token signs a JWT with the configured auth.jwt key. The dashboard sends it
as "Authorization: Bearer <token>", or as ?access_token= on the SSE stream.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if tokenSubject == "" {
			return fmt.Errorf("--subject is required")
		}
		svc, err := auth.NewTokenService(cfg.Auth.JWT)
		if err != nil {
			return err
		}
		token, err := svc.GenerateAccess(&auth.Claims{
			RegisteredClaims: gojwt.RegisteredClaims{Subject: tokenSubject},
			Scope:            tokenScope,
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Generate an API key and its bcrypt hash",
	Long: `apikey prints a new random key and the hash to add to auth.api_key_hashes.
Only the hash belongs in configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		// hex doubles the length; bcrypt accepts at most MaxLength bytes.
		if apiKeyLength*2 < password.MinLength || apiKeyLength*2 > password.MaxLength {
			return fmt.Errorf("--bytes must be between %d and %d", (password.MinLength+1)/2, password.MaxLength/2)
		}
		key, err := password.RandomKey(apiKeyLength)
		if err != nil {
			return err
		}
		hash, err := password.NewBcryptHasher(password.WithCost(cfg.Auth.BcryptCost)).Hash(key)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "key:  %s\n", key)
		fmt.Fprintf(out, "hash: %s\n", hash)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, e.g. the client name")
	tokenCmd.Flags().StringVar(&tokenScope, "scope", "", "space-delimited permissions, e.g. \"errors:write notifications:read\" (default: full access)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: auth.jwt.access_token_ttl)")
	apiKeyCmd.Flags().IntVar(&apiKeyLength, "bytes", 24, "random bytes in the key")
}
