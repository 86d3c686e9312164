// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env              string // local or prod
	Addr             string
	FirestoreProject string
	UseMemoryStore   bool
	LocalStatePath   string
	ProfilePath      string
	StaticDir        string
	IdentityKey      string
}

// Load reads configuration. Nothing here is fatal by itself: a missing
// backend project just disables the visitor counter for the session, which
// the core reports as an init failure.
func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	if env == "local" {
		// Best effort; system environment wins when there is no .env file.
		_ = godotenv.Load(".env")
	}

	viper.AutomaticEnv()

	cfg := &Config{
		Env:              strings.ToLower(env),
		Addr:             viper.GetString("ADDR"),
		FirestoreProject: viper.GetString("FIRESTORE_PROJECT"),
		UseMemoryStore:   viper.GetBool("MEMORY_STORE"),
		LocalStatePath:   viper.GetString("LOCAL_STATE_PATH"),
		ProfilePath:      viper.GetString("PROFILE_CONFIG"),
		StaticDir:        viper.GetString("STATIC_DIR"),
		IdentityKey:      viper.GetString("IDENTITY_SIGNING_KEY"),
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.LocalStatePath == "" {
		cfg.LocalStatePath = "data/local_state.json"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "static"
	}
	return cfg, nil
}

// StoreConfigured reports whether any counter backend is available.
func (c *Config) StoreConfigured() bool {
	return c.UseMemoryStore || c.FirestoreProject != ""
}
