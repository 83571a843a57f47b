// Package config loads faultline configuration from config.yml, an optional
// .env file and the process environment using Viper and godotenv.
//
//	var cfg recovery.Config
//	err := config.LoadConfig("faultline", &cfg, config.WithEnvPrefix("FAULTLINE"))
//
// Environment variables override file values. FAULTLINE_STORE_MAX_ENTRIES
// maps to store.max_entries (and the other nestings of its parts).
package config
