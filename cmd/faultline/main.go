// Command faultline runs the error log, notification stream and
// diagnostics API as a standalone service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/faultline/config"
	"github.com/kbukum/faultline/recovery"
	"github.com/kbukum/faultline/version"
)

const serviceName = "faultline"

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Error classification, logging and recovery service",
	Long: `faultline classifies failures reported by the dashboard, keeps a bounded
error log with burst detection, streams toast notifications over SSE and
optionally forwards errors to a remote collector.

Running faultline without a subcommand is the same as "faultline serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: search cmd/faultline/config.yml, config/, .)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file (default: search next to the config)")
	rootCmd.Version = version.Get().Short()
	rootCmd.AddCommand(serveCmd, configCmd, tokenCmd, apiKeyCmd, versionCmd)
}

// loadConfig reads config.yml, .env and FAULTLINE_* variables.
func loadConfig() (recovery.Config, error) {
	var cfg recovery.Config
	opts := []config.Option{config.WithEnvPrefix("FAULTLINE")}
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "faultline:", err)
		os.Exit(1)
	}
}
