package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultGitHubRedirectURL is where the GitHub consent flow redirects
// the browser. The host:port part is what the callback listener binds.
const defaultGitHubRedirectURL = "http://localhost:5173/auth/github/callback"

// Config holds all configuration for the truthlens client. Values come
// from an optional YAML config file (~/.truthlens/config.yaml or
// $TRUTHLENS_CONFIG), overridden by environment variables.
type Config struct {
	// Base URL of the TruthLens backend API (required).
	APIURL string `env:"TRUTHLENS_API_URL" yaml:"api_url"`

	// GitHub OAuth app settings, required only for GitHub login.
	GitHubClientID    string `env:"TRUTHLENS_GITHUB_CLIENT_ID" yaml:"github_client_id"`
	GitHubRedirectURL string `env:"TRUTHLENS_GITHUB_REDIRECT_URL" yaml:"github_redirect_url"`

	// Path of the session state database. Defaults to
	// ~/.truthlens/state.db.
	StateDBPath string `env:"TRUTHLENS_STATE_DB" yaml:"state_db"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" yaml:"environment"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// configFilePath returns the YAML config file path: $TRUTHLENS_CONFIG
// when set, otherwise ~/.truthlens/config.yaml.
func configFilePath() string {
	if p := os.Getenv("TRUTHLENS_CONFIG"); p != "" {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".truthlens", "config.yaml")
}

// loadFile merges the YAML config file into cfg, if one exists.
func loadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return nil
}

// Load reads configuration from the YAML config file and environment
// variables, env taking precedence. A .env file is loaded first if
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := loadFile(cfg, configFilePath()); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills fields the file and environment left empty.
// Defaults live here rather than in envDefault tags so that file-set
// values are not clobbered when the env var is unset.
func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}

	if c.GitHubRedirectURL == "" {
		c.GitHubRedirectURL = defaultGitHubRedirectURL
	}

	if c.StateDBPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.StateDBPath = filepath.Join(home, ".truthlens", "state.db")
		}
	}
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("TRUTHLENS_API_URL is required")
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TRUTHLENS_API_URL must be an absolute URL, got %q", c.APIURL)
	}

	if c.StateDBPath == "" {
		return fmt.Errorf("TRUTHLENS_STATE_DB is required when no home directory is available")
	}

	return nil
}

// RequireGitHub validates the GitHub OAuth settings. Called only by the
// GitHub login path so password-only setups need not configure them.
func (c *Config) RequireGitHub() error {
	if c.GitHubClientID == "" {
		return fmt.Errorf("TRUTHLENS_GITHUB_CLIENT_ID is required for GitHub login")
	}

	u, err := url.Parse(c.GitHubRedirectURL)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return fmt.Errorf("TRUTHLENS_GITHUB_REDIRECT_URL must be a loopback http URL, got %q", c.GitHubRedirectURL)
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
