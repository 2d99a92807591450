package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the hotline server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir    string
	HTTPPort   int
	LogLevel   string
	LogFormat  string // log output format: "text" or "json"
	PublicHost string // externally reachable host for answer webhook URLs
	Domain     string // site name mentioned in verification SMS

	// VirtualNumber is the fallback SMS sender for hotlines that have no
	// number assigned yet.
	VirtualNumber  string
	DefaultCountry string // ISO country for parsing national-format numbers

	// Vonage credentials.
	VonageAPIKey         string
	VonageAPISecret      string
	VonageApplicationID  string
	VonagePrivateKeyFile string // PEM file signing Voice API JWTs
}

// defaults
const (
	defaultDataDir   = "./data"
	defaultHTTPPort  = 8080
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultCountry   = "US"
	defaultDomain    = "friendhotline.com"
)

// envPrefix is the prefix for all hotline environment variables.
const envPrefix = "HOTLINE_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("hotline", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.PublicHost, "public-host", "", "externally reachable host used in answer webhook URLs")
	fs.StringVar(&cfg.Domain, "domain", defaultDomain, "site name mentioned in verification SMS")
	fs.StringVar(&cfg.VirtualNumber, "virtual-number", "", "fallback SMS sender for hotlines without a number")
	fs.StringVar(&cfg.DefaultCountry, "default-country", defaultCountry, "default ISO country code for number parsing")
	fs.StringVar(&cfg.VonageAPIKey, "vonage-api-key", "", "Vonage API key")
	fs.StringVar(&cfg.VonageAPISecret, "vonage-api-secret", "", "Vonage API secret")
	fs.StringVar(&cfg.VonageApplicationID, "vonage-application-id", "", "Vonage application id for the Voice API")
	fs.StringVar(&cfg.VonagePrivateKeyFile, "vonage-private-key", "", "path to the Vonage application private key PEM")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"data-dir":              envPrefix + "DATA_DIR",
		"http-port":             envPrefix + "HTTP_PORT",
		"log-level":             envPrefix + "LOG_LEVEL",
		"log-format":            envPrefix + "LOG_FORMAT",
		"public-host":           envPrefix + "PUBLIC_HOST",
		"domain":                envPrefix + "DOMAIN",
		"virtual-number":        envPrefix + "VIRTUAL_NUMBER",
		"default-country":       envPrefix + "DEFAULT_COUNTRY",
		"vonage-api-key":        envPrefix + "VONAGE_API_KEY",
		"vonage-api-secret":     envPrefix + "VONAGE_API_SECRET",
		"vonage-application-id": envPrefix + "VONAGE_APPLICATION_ID",
		"vonage-private-key":    envPrefix + "VONAGE_PRIVATE_KEY",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "public-host":
			cfg.PublicHost = val
		case "domain":
			cfg.Domain = val
		case "virtual-number":
			cfg.VirtualNumber = val
		case "default-country":
			cfg.DefaultCountry = val
		case "vonage-api-key":
			cfg.VonageAPIKey = val
		case "vonage-api-secret":
			cfg.VonageAPISecret = val
		case "vonage-application-id":
			cfg.VonageApplicationID = val
		case "vonage-private-key":
			cfg.VonagePrivateKeyFile = val
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	if len(c.DefaultCountry) != 2 {
		return fmt.Errorf("default-country must be a two-letter ISO code, got %q", c.DefaultCountry)
	}
	c.DefaultCountry = strings.ToUpper(c.DefaultCountry)

	return nil
}

// SlogHandler returns a slog.Handler configured with the appropriate
// format (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
