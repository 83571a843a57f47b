package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/faultline/recovery"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate the configuration and print the effective values",
	Long: `config loads the configuration exactly as serve does, applies defaults,
validates it and prints the result as YAML with secrets redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		out, err := yaml.Marshal(redact(cfg))
		if err != nil {
			return fmt.Errorf("encode configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// redact blanks credentials, including the password of a URL-style DSN.
// cfg is a copy, so the caller's values are untouched.
func redact(cfg recovery.Config) recovery.Config {
	for _, s := range []*string{
		&cfg.Redis.Password,
		&cfg.Storage.S3.AccessKey,
		&cfg.Storage.S3.SecretKey,
		&cfg.Storage.S3.SessionToken,
		&cfg.Report.SigningKey,
		&cfg.Report.APIKey,
		&cfg.Events.SASL.Password,
		&cfg.Auth.JWT.Secret,
		&cfg.Storage.EncryptionKey,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	if u, err := url.Parse(cfg.Storage.SQL.DSN); err == nil && u.User != nil {
		cfg.Storage.SQL.DSN = u.Redacted()
	}
	return cfg
}
